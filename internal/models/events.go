package models

// Realtime event type tags. This is the closed set of events spoken over
// the websocket; the gateway dispatch and the client session switch on
// these values exhaustively.
const (
	// client → server
	EventJoinChat    = "join_chat"
	EventSendMessage = "send_message"
	EventMarkRead    = "mark_read"

	// server → client
	EventReceiveMessage   = "receive_message"
	EventNewNotification  = "new_notification"
	EventNotificationRead = "notification_read"
	EventMessagesRead     = "messages_read"
	EventError            = "error"
)

// InboundEvent is a client-to-server websocket frame.
type InboundEvent struct {
	Type      string `json:"type"`
	ChatID    string `json:"chat_id,omitempty"`
	Text      string `json:"text,omitempty"`
	ClientKey string `json:"client_key,omitempty"`
}

// OutboundEvent is a server-to-client websocket frame. Exactly one of the
// payload fields is set depending on Type; EventNotificationRead carries
// no payload at all, it is a refresh signal.
type OutboundEvent struct {
	Type         string        `json:"type"`
	ChatID       string        `json:"chat_id,omitempty"`
	UserID       string        `json:"user_id,omitempty"`
	Message      *Message      `json:"message,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	Error        string        `json:"error,omitempty"`
}
