package models

// Chat kinds.
const (
	ChatPrivate = "private"
	ChatGroup   = "group"
)

// Chat represents a chat summary as returned by the chat list endpoint.
type Chat struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Name         string   `json:"name,omitempty"`
	Avatar       string   `json:"avatar,omitempty"`
	Participants []string `json:"participants"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

// DisplayNameFor returns the name shown to the given user: the group name,
// or the other participant's username for a private chat.
func (c Chat) DisplayNameFor(self string) string {
	if c.Type == ChatGroup {
		return c.Name
	}
	for _, p := range c.Participants {
		if p != self {
			return p
		}
	}
	return c.Name
}
