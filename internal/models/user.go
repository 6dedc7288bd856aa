package models

// User mirrors the user objects returned by the directory and login endpoints.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Session is the authenticated client state tied to a server-issued token.
type Session struct {
	User      User   `json:"user"`
	SessionID string `json:"session_id"`
}
