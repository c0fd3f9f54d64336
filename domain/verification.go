package domain

// Verification carries the site properties a connector discovered while
// verifying a feed. A connector that only knows a name reports it through
// NewVerification.
type Verification struct {
	DisplayName string `json:"displayName,omitempty"`
	Icon        string `json:"icon,omitempty"`
	BaseURL     string `json:"baseUrl,omitempty"`
}

// NewVerification creates a Verification holding only a display name.
func NewVerification(displayName string) Verification {
	return Verification{DisplayName: displayName}
}
