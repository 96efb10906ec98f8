package delivery

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ykvlv/schedule-bot/internal/domain"
	"github.com/ykvlv/schedule-bot/internal/metrics"
)

const (
	DefaultSendRate      = 25 // messages per second, below Telegram's global limit
	DefaultSweepInterval = 24 * time.Hour
)

// Bot is the subset of *tgbotapi.BotAPI used for delivery.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Store persists the notification switch and the bot's message history.
type Store interface {
	ListNotifiable(ctx context.Context) ([]domain.UserPreference, error)
	SetNotifications(ctx context.Context, chatID int64, enabled bool) error
	BotMessages(ctx context.Context, chatID int64) ([]int, error)
	ReplaceBotMessages(ctx context.Context, chatID int64, messageIDs []int) error
}

// ChatCache drops everything cached for a chat.
type ChatCache interface {
	ClearChat(chatID int64)
}

// Formatter renders a schedule notification.
type Formatter func(s domain.Schedule) string

// Service sends notifications and turns off chats that can no longer be
// reached.
type Service struct {
	bot       Bot
	botID     int64
	store     Store
	cache     ChatCache
	format    Formatter
	parseMode string
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	log       *zap.Logger

	onDeactivate func(chatID int64)
}

// Option configures a Service.
type Option func(*Service)

// WithRate limits outgoing messages to perSecond.
func WithRate(perSecond int) Option {
	return func(s *Service) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
	}
}

// New creates a delivery service for the bot whose user id is botID.
func New(bot Bot, botID int64, store Store, cache ChatCache, format Formatter, m *metrics.Metrics, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		bot:       bot,
		botID:     botID,
		store:     store,
		cache:     cache,
		format:    format,
		parseMode: tgbotapi.ModeHTML,
		limiter:   rate.NewLimiter(rate.Limit(DefaultSendRate), DefaultSendRate),
		metrics:   m,
		log:       log.Named("delivery"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OnDeactivate registers fn to run after a chat has been turned off.
func (s *Service) OnDeactivate(fn func(chatID int64)) {
	s.onDeactivate = fn
}

// Deliver sends the notification for sched to chatID. Permanent failures
// turn the chat's notifications off and purge its cache before returning.
func (s *Service) Deliver(ctx context.Context, chatID int64, sched domain.Schedule) error {
	if err := s.Probe(ctx, chatID); err != nil {
		return s.fail(ctx, chatID, "probe", err)
	}

	msg := tgbotapi.NewMessage(chatID, s.format(sched))
	msg.ParseMode = s.parseMode
	msg.DisableWebPagePreview = true

	sent, err := s.send(ctx, msg)
	if err != nil {
		return s.fail(ctx, chatID, "send", err)
	}

	s.Remember(ctx, chatID, sent.MessageID)
	return nil
}

// Probe checks that the bot is still a member of chatID.
func (s *Service) Probe(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	member, err := s.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: s.botID},
	})
	if err != nil {
		return err
	}
	if member.HasLeft() || member.WasKicked() {
		return errUnreachable
	}
	return nil
}

// Remember deletes the bot's previously tracked messages in chatID and
// tracks messageID instead. Failures are logged only.
func (s *Service) Remember(ctx context.Context, chatID int64, messageID int) {
	old, err := s.store.BotMessages(ctx, chatID)
	if err != nil {
		s.log.Warn("read message history failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	for _, id := range old {
		if id == messageID {
			continue
		}
		if _, err := s.bot.Request(tgbotapi.NewDeleteMessage(chatID, id)); err != nil {
			s.log.Debug("delete old message failed",
				zap.Int64("chat_id", chatID),
				zap.Int("message_id", id),
				zap.Error(err),
			)
		}
	}
	if err := s.store.ReplaceBotMessages(ctx, chatID, []int{messageID}); err != nil {
		s.log.Warn("write message history failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// Deactivate turns notifications off for chatID and purges its cache.
func (s *Service) Deactivate(ctx context.Context, chatID int64, reason error) error {
	s.log.Warn("chat unreachable, notifications disabled",
		zap.Int64("chat_id", chatID),
		zap.Error(reason),
	)
	err := s.store.SetNotifications(ctx, chatID, false)
	if err != nil {
		s.log.Error("disable notifications failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	s.cache.ClearChat(chatID)
	if s.onDeactivate != nil {
		s.onDeactivate(chatID)
	}
	s.metrics.RecordDeactivation()
	return err
}

// Sweep probes every chat with notifications on and deactivates the
// unreachable ones. It returns how many chats were turned off.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	prefs, err := s.store.ListNotifiable(ctx)
	if err != nil {
		return 0, err
	}

	seen := make(map[int64]struct{}, len(prefs))
	deactivated := 0
	for _, p := range prefs {
		if _, ok := seen[p.ChatID]; ok {
			continue
		}
		seen[p.ChatID] = struct{}{}

		if err := s.limiter.Wait(ctx); err != nil {
			return deactivated, err
		}
		err := s.Probe(ctx, p.ChatID)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return deactivated, ctx.Err()
		}
		if Classify(err) != Permanent {
			s.log.Debug("sweep probe failed", zap.Int64("chat_id", p.ChatID), zap.Error(err))
			continue
		}
		_ = s.Deactivate(ctx, p.ChatID, err)
		deactivated++
	}
	return deactivated, nil
}

// RunSweep runs Sweep every interval until ctx is canceled.
func (s *Service) RunSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error("reachability sweep failed", zap.Error(err))
				continue
			}
			s.log.Info("reachability sweep done", zap.Int("deactivated", n))
		}
	}
}

func (s *Service) send(ctx context.Context, msg tgbotapi.MessageConfig) (tgbotapi.Message, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	return s.bot.Send(msg)
}

func (s *Service) fail(ctx context.Context, chatID int64, op string, err error) error {
	kind := Classify(err)
	if ctx.Err() != nil {
		kind = Transient
	}
	s.metrics.RecordDeliveryError(kind.String())

	if kind == Permanent {
		_ = s.Deactivate(ctx, chatID, err)
	}
	return &Error{Kind: kind, ChatID: chatID, Op: op, Err: err}
}
