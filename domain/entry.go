package domain

// Entry is an Item as the host keeps it: tagged with the feed it came from.
type Entry struct {
	Feed string `json:"feed"`
	Item Item   `json:"item"`
}
