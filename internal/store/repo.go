package store

import (
	"context"
	"errors"

	"github.com/ykvlv/schedule-bot/internal/domain"
)

// ErrNotFound is returned when no preference matches the lookup.
var ErrNotFound = errors.New("preference not found")

// Repo defines storage operations for chat preferences and the bot's
// message history.
type Repo interface {
	// GetPreference looks a preference up by (userID, chatID). Group chats
	// also match on their chat id alone, whoever created the row.
	GetPreference(ctx context.Context, userID, chatID int64) (*domain.UserPreference, error)
	UpsertPreference(ctx context.Context, p *domain.UserPreference) error
	// ListNotifiable returns every preference with notifications on and a group set.
	ListNotifiable(ctx context.Context) ([]domain.UserPreference, error)
	SetNotifications(ctx context.Context, chatID int64, enabled bool) error

	BotMessages(ctx context.Context, chatID int64) ([]int, error)
	ReplaceBotMessages(ctx context.Context, chatID int64, messageIDs []int) error

	Close() error
}
