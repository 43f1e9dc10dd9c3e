package model

// Event is a chat-client action that earns stats.
type Event string

const (
	EventMessageSent  Event = "message_sent"
	EventCallPlaced   Event = "call_placed"
	EventCallAnswered Event = "call_answered"
)
