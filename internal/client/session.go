// Package client implements the per-device session logic: one
// authenticated realtime connection, per-chat message lists merged and
// deduplicated by message id, and a short-lived send lock guarding
// against rapid duplicate submissions.
package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"foundlink/internal/models"
)

// sendLockWindow suppresses accidental duplicate sends from rapid
// repeated input. A UX guard only; the server-side client key is the
// idempotency mechanism.
const sendLockWindow = 300 * time.Millisecond

var (
	ErrNotConnected = errors.New("session is not connected")
	ErrSendLocked   = errors.New("send suppressed by duplicate guard")
)

// Session is one device's connection to the realtime gateway.
type Session struct {
	url   string
	token string

	mu       sync.Mutex
	conn     *websocket.Conn
	writeMu  sync.Mutex
	messages map[string][]models.Message
	seen     map[string]map[int64]struct{}
	lastSend time.Time
	done     chan struct{}

	// Optional event callbacks, invoked from the read loop.
	OnMessage             func(chatID string, msg models.Message)
	OnNotification        func(n models.Notification)
	OnNotificationRefresh func()
	OnMessagesRead        func(chatID, userID string)
}

// NewSession prepares a session for the gateway at url, authenticated
// with the bearer token.
func NewSession(url, token string) *Session {
	return &Session{
		url:      url,
		token:    token,
		messages: make(map[string][]models.Message),
		seen:     make(map[string]map[int64]struct{}),
	}
}

// Dial establishes the realtime connection and starts the read loop.
func (s *Session) Dial(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	done := make(chan struct{})
	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.done = done
	s.mu.Unlock()

	// A redial replaces the previous connection; its read loop exits on
	// the close and tears down only its own done channel.
	if old != nil {
		_ = old.Close()
	}

	go s.readLoop(conn, done)
	return nil
}

// JoinChat seeds the local list with a point-in-time history fetch and
// joins the chat's realtime group. Realtime events arriving for messages
// already in the history are deduplicated by id.
func (s *Session) JoinChat(chatID string, history []models.Message) error {
	s.mu.Lock()
	for _, msg := range history {
		s.mergeLocked(chatID, msg)
	}
	s.mu.Unlock()

	return s.writeEvent(models.InboundEvent{Type: models.EventJoinChat, ChatID: chatID})
}

// SendMessage sends one chat message. A second call inside the lock
// window returns ErrSendLocked without touching the wire.
func (s *Session) SendMessage(chatID, text string) error {
	if !s.acquireSendSlot(time.Now()) {
		return ErrSendLocked
	}
	return s.writeEvent(models.InboundEvent{
		Type:      models.EventSendMessage,
		ChatID:    chatID,
		Text:      text,
		ClientKey: uuid.NewString(),
	})
}

// MarkRead asks the server to flip unread messages in the chat.
func (s *Session) MarkRead(chatID string) error {
	return s.writeEvent(models.InboundEvent{Type: models.EventMarkRead, ChatID: chatID})
}

// Messages returns a copy of the chat's local message list, oldest first.
func (s *Session) Messages(chatID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[chatID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Close tears the connection down.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Done is closed when the read loop exits; callers use it to trigger a
// reconnect.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Session) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		var event models.OutboundEvent
		if err := conn.ReadJSON(&event); err != nil {
			return
		}
		s.ingest(event)
	}
}

func (s *Session) ingest(event models.OutboundEvent) {
	switch event.Type {
	case models.EventReceiveMessage:
		if event.Message == nil {
			return
		}
		chatID := event.ChatID
		if chatID == "" {
			chatID = event.Message.ChatID
		}
		s.mu.Lock()
		added := s.mergeLocked(chatID, *event.Message)
		s.mu.Unlock()
		if added && s.OnMessage != nil {
			s.OnMessage(chatID, *event.Message)
		}

	case models.EventNewNotification:
		if event.Notification != nil && s.OnNotification != nil {
			s.OnNotification(*event.Notification)
		}

	case models.EventNotificationRead:
		if s.OnNotificationRefresh != nil {
			s.OnNotificationRefresh()
		}

	case models.EventMessagesRead:
		if s.OnMessagesRead != nil {
			s.OnMessagesRead(event.ChatID, event.UserID)
		}
	}
}

// mergeLocked inserts a message into the chat's ordered list unless its
// id is already present. This absorbs the race where the sender's own
// message arrives back over the socket after an optimistic append.
func (s *Session) mergeLocked(chatID string, msg models.Message) bool {
	seen, ok := s.seen[chatID]
	if !ok {
		seen = make(map[int64]struct{})
		s.seen[chatID] = seen
	}
	if _, dup := seen[msg.ID]; dup {
		return false
	}
	seen[msg.ID] = struct{}{}

	msgs := s.messages[chatID]
	i := len(msgs)
	for i > 0 && laterThan(msgs[i-1], msg) {
		i--
	}
	msgs = append(msgs, models.Message{})
	copy(msgs[i+1:], msgs[i:])
	msgs[i] = msg
	s.messages[chatID] = msgs
	return true
}

func laterThan(a, b models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// acquireSendSlot reports whether a send is allowed at now, consuming
// the slot when it is.
func (s *Session) acquireSendSlot(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSend) < sendLockWindow {
		return false
	}
	s.lastSend = now
	return true
}

func (s *Session) writeEvent(event models.InboundEvent) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(event)
}
