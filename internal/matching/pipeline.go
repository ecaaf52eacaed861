package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"foundlink/internal/models"
	"foundlink/internal/observability"
	"foundlink/internal/repositories"
)

var ErrInvalidEvent = errors.New("invalid match event")

// MatchEvent is the payload produced by the external similarity service,
// delivered over the internal HTTP endpoint or the event bus.
type MatchEvent struct {
	MatchID     string   `json:"match_id"`
	LostItemID  string   `json:"lost_item_id"`
	FoundItemID string   `json:"found_item_id"`
	LostUserID  string   `json:"lost_user_id"`
	FoundUserID string   `json:"found_user_id"`
	Score       float64  `json:"score"`
	TextScore   *float64 `json:"text_score,omitempty"`
	ImageScore  *float64 `json:"image_score,omitempty"`
}

// Notifier creates a notification for a user.
type Notifier interface {
	Notify(ctx context.Context, userID, message string, itemID, refID *string, notificationType string) (models.Notification, error)
}

// ChatCreator lazily creates the chat for a match.
type ChatCreator interface {
	EnsureChat(ctx context.Context, matchID string) (*models.Chat, error)
}

// Pipeline turns a match event into durable state: persist the match,
// notify both item owners, and open a chat when the score clears the
// confidence threshold. The steps run as an explicit linear sequence;
// each secondary step's failure is caught and logged without rolling
// back or aborting what already committed.
type Pipeline struct {
	matches   repositories.MatchRepository
	notifier  Notifier
	chats     ChatCreator
	threshold float64
	log       *zap.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(matches repositories.MatchRepository, notifier Notifier, chats ChatCreator, threshold float64, log *zap.Logger) *Pipeline {
	return &Pipeline{
		matches:   matches,
		notifier:  notifier,
		chats:     chats,
		threshold: threshold,
		log:       log,
	}
}

// Ingest validates and processes one match event.
func (p *Pipeline) Ingest(ctx context.Context, event MatchEvent) (models.Match, error) {
	if err := validate(event); err != nil {
		observability.IncMatchIngested("invalid")
		return models.Match{}, err
	}
	if event.MatchID == "" {
		event.MatchID = uuid.NewString()
	}

	match, err := p.matches.Create(ctx, models.Match{
		ID:          event.MatchID,
		LostItemID:  event.LostItemID,
		FoundItemID: event.FoundItemID,
		LostUserID:  event.LostUserID,
		FoundUserID: event.FoundUserID,
		Score:       event.Score,
		TextScore:   event.TextScore,
		ImageScore:  event.ImageScore,
	})
	if err != nil {
		observability.IncMatchIngested("store_error")
		return models.Match{}, err
	}

	p.notifyOwner(ctx, match.LostUserID, match.LostItemID, match,
		fmt.Sprintf("A found item matches your lost item at %.0f%% similarity", match.Score))
	p.notifyOwner(ctx, match.FoundUserID, match.FoundItemID, match,
		fmt.Sprintf("The item you found matches a lost item at %.0f%% similarity", match.Score))

	if match.Score >= p.threshold {
		if _, err := p.chats.EnsureChat(ctx, match.ID); err != nil {
			p.log.Warn("chat creation for match failed", zap.String("match_id", match.ID), zap.Error(err))
		}
	}

	observability.IncMatchIngested("ok")
	return match, nil
}

func (p *Pipeline) notifyOwner(ctx context.Context, userID, itemID string, match models.Match, message string) {
	refID := match.ID
	_, err := p.notifier.Notify(ctx, userID, message, &itemID, &refID, models.NotificationTypeMatch)
	if err != nil {
		p.log.Warn("match notification failed", zap.String("match_id", match.ID), zap.String("user_id", userID), zap.Error(err))
	}
}

func validate(event MatchEvent) error {
	if event.LostItemID == "" || event.FoundItemID == "" {
		return fmt.Errorf("%w: missing item reference", ErrInvalidEvent)
	}
	if event.LostUserID == "" || event.FoundUserID == "" {
		return fmt.Errorf("%w: missing owner reference", ErrInvalidEvent)
	}
	if event.Score < 0 || event.Score > 100 {
		return fmt.Errorf("%w: score %.2f out of range", ErrInvalidEvent, event.Score)
	}
	return nil
}
