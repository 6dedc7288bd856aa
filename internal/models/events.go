package models

import "encoding/json"

// Outbound event kinds.
const (
	EventUserJoin       = "user_join"
	EventSendMessage    = "send_message"
	EventUserDisconnect = "user_disconnect"
	EventTyping         = "typing"
	EventStopTyping     = "stop_typing"
)

// Inbound event kinds.
const (
	EventNewMessage = "new_message"
	EventUserJoined = "user_joined"
	EventUserTyping = "user_typing"
)

// OutboundEvent is a client-originated websocket event. Unused fields are
// omitted so each kind serializes exactly as the server expects.
type OutboundEvent struct {
	Type           string `json:"type"`
	Username       string `json:"username,omitempty"`
	ChatID         string `json:"chat_id,omitempty"`
	SenderUsername string `json:"sender_username,omitempty"`
	MessageType    string `json:"message_type,omitempty"`
	Text           string `json:"text,omitempty"`
}

// InboundEvent is the server push envelope: {"type": ..., "data": {...}}.
type InboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// UserJoinedData is the payload of a user_joined event.
type UserJoinedData struct {
	Username  string `json:"username"`
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// UserTypingData is the payload of a user_typing event.
type UserTypingData struct {
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

// DecodeMessage decodes the event payload as a Message.
func (e InboundEvent) DecodeMessage() (Message, error) {
	var msg Message
	err := json.Unmarshal(e.Data, &msg)
	return msg, err
}

// DecodeUserJoined decodes the event payload as UserJoinedData.
func (e InboundEvent) DecodeUserJoined() (UserJoinedData, error) {
	var data UserJoinedData
	err := json.Unmarshal(e.Data, &data)
	return data, err
}

// DecodeUserTyping decodes the event payload as UserTypingData.
func (e InboundEvent) DecodeUserTyping() (UserTypingData, error) {
	var data UserTypingData
	err := json.Unmarshal(e.Data, &data)
	return data, err
}
