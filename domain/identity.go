package domain

// Identity represents the creator of an Item.
type Identity struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	URI      string `json:"uri,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// NewIdentity creates an Identity with the required display name.
func NewIdentity(name string) Identity {
	return Identity{Name: name}
}

func (i Identity) Validate() error {
	if i.Name == "" {
		return ErrMissingName
	}
	return nil
}

// Annotation decorates an Item, e.g. "Boosted by @someone" or "Replying to".
type Annotation struct {
	Text string `json:"text"`
	Icon string `json:"icon,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// NewAnnotation creates an Annotation with the required text.
func NewAnnotation(text string) Annotation {
	return Annotation{Text: text}
}

func (a Annotation) Validate() error {
	if a.Text == "" {
		return ErrMissingText
	}
	return nil
}
