package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"foundlink/internal/models"
	"foundlink/internal/observability"
	"foundlink/internal/repositories"
)

var (
	ErrForbidden = errors.New("not a chat participant")
	ErrEmptyText = errors.New("message text is empty")
)

const lastMessagePreviewLimit = 80

// Notifier creates a notification for a user. Implemented by the
// notification engine.
type Notifier interface {
	Notify(ctx context.Context, userID, message string, itemID, refID *string, notificationType string) (models.Notification, error)
}

// Broadcaster fans an event out to every connection in a chat room.
type Broadcaster interface {
	BroadcastToChat(chatID string, event models.OutboundEvent)
}

// Manager owns the chat lifecycle: lazy creation keyed by match id,
// membership enforcement, ordered message persistence, last-message
// summaries and realtime fan-out.
type Manager struct {
	chats       repositories.ChatRepository
	messages    repositories.MessageRepository
	matches     repositories.MatchRepository
	users       repositories.UserRepository
	notifier    Notifier
	broadcaster Broadcaster
	log         *zap.Logger
}

// NewManager constructs a Manager. notifier and broadcaster may be nil.
func NewManager(
	chats repositories.ChatRepository,
	messages repositories.MessageRepository,
	matches repositories.MatchRepository,
	users repositories.UserRepository,
	notifier Notifier,
	broadcaster Broadcaster,
	log *zap.Logger,
) *Manager {
	return &Manager{
		chats:       chats,
		messages:    messages,
		matches:     matches,
		users:       users,
		notifier:    notifier,
		broadcaster: broadcaster,
		log:         log,
	}
}

// EnsureChat idempotently creates the chat for a match. Returns nil with
// no error when both sides of the match belong to the same user: a person
// cannot chat with themself.
func (m *Manager) EnsureChat(ctx context.Context, matchID string) (*models.Chat, error) {
	match, err := m.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.LostUserID == match.FoundUserID {
		return nil, nil
	}

	chat, err := m.chats.Upsert(ctx, match.ID, match.LostUserID, match.FoundUserID)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChatsFor returns the user's chats ordered by recency, enriched with
// the related match and the other participant's profile. The joins happen
// at read time; nothing is stored denormalized beyond the last-message
// summary.
func (m *Manager) ListChatsFor(ctx context.Context, userID string) ([]models.ChatEntry, error) {
	chats, err := m.chats.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	matchIDs := make([]string, 0, len(chats))
	participantIDs := make([]string, 0, len(chats))
	for _, chat := range chats {
		matchIDs = append(matchIDs, chat.ID)
		participantIDs = append(participantIDs, chat.OtherParticipant(userID))
	}

	matches, err := m.matches.BulkGet(ctx, matchIDs)
	if err != nil {
		return nil, err
	}
	matchByID := make(map[string]models.Match, len(matches))
	for _, match := range matches {
		matchByID[match.ID] = match
	}

	users, err := m.users.BulkGet(ctx, participantIDs)
	if err != nil {
		return nil, err
	}
	userByID := make(map[string]models.User, len(users))
	for _, user := range users {
		userByID[user.ID] = user
	}

	entries := make([]models.ChatEntry, 0, len(chats))
	for _, chat := range chats {
		entry := models.ChatEntry{Chat: chat}
		if match, ok := matchByID[chat.ID]; ok {
			matchCopy := match
			entry.Match = &matchCopy
		}
		if user, ok := userByID[chat.OtherParticipant(userID)]; ok {
			userCopy := user
			entry.Participant = &userCopy
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetChat returns the chat when the user is a participant.
func (m *Manager) GetChat(ctx context.Context, userID, chatID string) (models.Chat, error) {
	chat, err := m.chats.Get(ctx, chatID)
	if err != nil {
		return models.Chat{}, err
	}
	if !chat.HasParticipant(userID) {
		return models.Chat{}, ErrForbidden
	}
	return chat, nil
}

// PostMessage appends a message with a server-assigned timestamp, updates
// the chat's last-message summary, notifies the other participant and
// fans the message out to the chat room. The notification and the summary
// update are secondary: their failure never rolls back the stored message.
func (m *Manager) PostMessage(ctx context.Context, userID, chatID, text, clientKey string) (models.Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.Message{}, ErrEmptyText
	}

	chat, err := m.GetChat(ctx, userID, chatID)
	if err != nil {
		return models.Message{}, err
	}

	var key *string
	if clientKey != "" {
		key = &clientKey
	}

	msg, created, err := m.messages.Create(ctx, chatID, userID, trimmed, key)
	if err != nil {
		return models.Message{}, err
	}
	if !created {
		// Idempotent resend: the stored message is returned without
		// repeating any side effect.
		return msg, nil
	}
	observability.IncChatMessage()

	if err := m.chats.SetLastMessage(ctx, chatID, preview(trimmed), msg.CreatedAt); err != nil {
		m.log.Warn("last-message summary update failed", zap.String("chat_id", chatID), zap.Error(err))
	}

	other := chat.OtherParticipant(userID)
	if m.notifier != nil {
		refID := chatID
		_, err := m.notifier.Notify(ctx, other, fmt.Sprintf("New message: %s", preview(trimmed)), nil, &refID, models.NotificationTypeChatMessage)
		if err != nil {
			m.log.Warn("chat notification failed", zap.String("chat_id", chatID), zap.String("user_id", other), zap.Error(err))
		}
	}

	if m.broadcaster != nil {
		m.broadcaster.BroadcastToChat(chatID, models.OutboundEvent{
			Type:    models.EventReceiveMessage,
			ChatID:  chatID,
			Message: &msg,
		})
	}

	return msg, nil
}

// ListMessages returns the chat's messages oldest first, membership-checked.
func (m *Manager) ListMessages(ctx context.Context, userID, chatID string, limit int) ([]models.Message, error) {
	if _, err := m.GetChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return m.messages.List(ctx, chatID, limit)
}

// MarkRead flips the read flag on every message in the chat not sent by
// the caller. The batch update is best-effort: a message inserted between
// the query and the commit is picked up by the next call.
func (m *Manager) MarkRead(ctx context.Context, userID, chatID string) (int64, error) {
	if _, err := m.GetChat(ctx, userID, chatID); err != nil {
		return 0, err
	}

	count, err := m.messages.MarkReadExceptSender(ctx, chatID, userID)
	if err != nil {
		return 0, err
	}

	if m.broadcaster != nil {
		m.broadcaster.BroadcastToChat(chatID, models.OutboundEvent{
			Type:   models.EventMessagesRead,
			ChatID: chatID,
			UserID: userID,
		})
	}
	return count, nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= lastMessagePreviewLimit {
		return text
	}
	return string(runes[:lastMessagePreviewLimit]) + "…"
}
