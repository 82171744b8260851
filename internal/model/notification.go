package model

// MessageRef identifies one delivered copy of an application
// notification so it can be edited in place later.
type MessageRef struct {
	ApplicationID string `json:"application_id"`
	RecipientID   int64  `json:"chat_id"`
	MessageID     int    `json:"message_id"`
}

// Actor is the principal behind a command or button press.
type Actor struct {
	ID   int64
	Name string
}
