package models

// Message payload types.
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageVideo = "video"
	MessageAudio = "audio"
)

// Message represents a chat message on the wire. Timestamps are kept as the
// ISO 8601 strings the server emits; they compare correctly as strings and
// round-trip without precision loss.
type Message struct {
	ID             string `json:"id,omitempty"`
	ChatID         string `json:"chat_id"`
	SenderUsername string `json:"sender_username"`
	Type           string `json:"type"`
	Text           string `json:"text,omitempty"`
	FileURL        string `json:"file_url,omitempty"`
	Filename       string `json:"filename,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`

	// ClientNonce marks a locally-originated message that has not been
	// acknowledged by the server yet. It never goes over the wire.
	ClientNonce string `json:"-"`
}

// Confirmed reports whether the message has been acknowledged by the server.
func (m Message) Confirmed() bool {
	return m.ClientNonce == "" || m.Timestamp != ""
}
