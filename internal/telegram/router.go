package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/schedule-bot/internal/domain"
	"github.com/ykvlv/schedule-bot/internal/store"
)

// Pending state keys used in conversational flows.
const (
	pendingOtherGroup = "await_other_group"
	pendingTime       = "await_time"
)

// Bot is the subset of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Schedules is the read side of the schedule source.
type Schedules interface {
	Fetch(ctx context.Context, groupID string, date time.Time) (domain.Schedule, error)
	Groups(ctx context.Context) (map[string]string, error)
	NextAvailableDay(ctx context.Context, groupID string, from time.Time, direction int) time.Time
}

// History keeps only the bot's latest message in a chat.
type History interface {
	Remember(ctx context.Context, chatID int64, messageID int)
}

// Router wires Telegram updates to handlers and holds minimal in-memory state.
// Preference changes only go to the store; the scheduler's watcher picks
// them up.
type Router struct {
	bot       Bot
	self      tgbotapi.User
	repo      store.Repo
	schedules Schedules
	history   History
	loc       *time.Location
	now       func() time.Time
	log       *zap.Logger
	spam      *spamGuard

	mu    sync.RWMutex
	state map[int64]string    // chatID -> pending state
	dates map[int64]time.Time // chatID -> day last shown
}

// NewRouter creates a router for the bot account self.
func NewRouter(bot Bot, self tgbotapi.User, repo store.Repo, schedules Schedules, history History, loc *time.Location, log *zap.Logger) *Router {
	return &Router{
		bot:       bot,
		self:      self,
		repo:      repo,
		schedules: schedules,
		history:   history,
		loc:       loc,
		now:       time.Now,
		log:       log.Named("router"),
		spam:      newSpamGuard(),
		state:     make(map[int64]string),
		dates:     make(map[int64]time.Time),
	}
}

// RunJanitor drops idle spam counters until ctx is canceled.
func (r *Router) RunJanitor(ctx context.Context) {
	r.spam.run(ctx, time.Hour)
}

func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

func (r *Router) getPending(chatID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

func (r *Router) setShownDate(chatID int64, d time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates[chatID] = d
}

func (r *Router) shownDate(chatID int64) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dates[chatID]
	return d, ok
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		r.handleMessage(ctx, upd.Message)
		return
	}
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	if !r.spam.Allow(msg.From.ID) {
		r.log.Debug("message dropped by spam guard", zap.Int64("user_id", msg.From.ID))
		return
	}

	for _, m := range msg.NewChatMembers {
		if m.ID == r.self.ID {
			r.handleStart(ctx, msg)
			return
		}
	}

	text, ok := r.addressedText(msg)
	if !ok {
		return
	}

	cmd, args := splitCommand(text)
	switch cmd {
	case "/start":
		r.handleStart(ctx, msg)
	case "/schedule", btnSchedule:
		r.handleSchedule(ctx, msg)
	case "/other", btnOtherGroup:
		r.handleOther(ctx, msg)
	case "/notifications", btnNotifications:
		r.handleNotifications(ctx, msg)
	case "/time", btnTime:
		r.handleTime(ctx, msg, args)
	case "/profile", btnProfile:
		r.handleProfile(ctx, msg)
	case "/help":
		r.handleHelp(ctx, msg)
	case btnPickDate:
		r.handlePickDate(ctx, msg)
	case btnChangeGroup:
		r.askGroup(ctx, msg)
	default:
		r.handleFreeForm(ctx, msg, text)
	}
}

// addressedText returns the message text with the bot mention removed. In
// group chats only commands, mentions and replies to the bot are handled.
func (r *Router) addressedText(msg *tgbotapi.Message) (string, bool) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return "", false
	}
	if !isGroupChat(msg.Chat) {
		return text, true
	}

	mention := ""
	if r.self.UserName != "" {
		mention = "@" + r.self.UserName
	}
	mentioned := mention != "" && strings.Contains(text, mention)
	replyToBot := msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil &&
		msg.ReplyToMessage.From.ID == r.self.ID
	command := strings.HasPrefix(text, "/")
	if !command && !mentioned && !replyToBot {
		return "", false
	}
	if mentioned {
		text = strings.TrimSpace(strings.ReplaceAll(text, mention, ""))
	}
	return text, true
}

// handleCallback handles inline keyboard presses.
func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := r.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			r.log.Debug("answer callback failed", zap.Error(err))
		}
	}()
	if cb.Message == nil || cb.Message.Chat == nil || cb.From == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	switch data := cb.Data; {
	case data == cbPrevDay:
		r.navigate(ctx, chatID, cb.From.ID, -1)
	case data == cbNextDay:
		r.navigate(ctx, chatID, cb.From.ID, 1)
	case strings.HasPrefix(data, cbDatePrefix):
		r.handleDatePicked(ctx, chatID, cb.From.ID, strings.TrimPrefix(data, cbDatePrefix))
	default:
		// Unknown callback: ignore silently
	}
}

// send delivers an HTML message with the main keyboard unless markup is set,
// and makes it the chat's only tracked bot message.
func (r *Router) send(ctx context.Context, chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup == nil {
		markup = mainKeyboard()
	}
	msg.ReplyMarkup = markup

	sent, err := r.bot.Send(msg)
	if err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	if r.history != nil {
		r.history.Remember(ctx, chatID, sent.MessageID)
	}
}

// isAdmin reports whether userID is the creator or an administrator of chatID.
func (r *Router) isAdmin(chatID, userID int64) bool {
	member, err := r.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		r.log.Warn("admin check failed", zap.Int64("chat_id", chatID), zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	return member.IsCreator() || member.IsAdministrator()
}

func isGroupChat(c *tgbotapi.Chat) bool {
	return c != nil && (c.IsGroup() || c.IsSuperGroup())
}

// splitCommand splits "/cmd@bot arg" into "/cmd" and "arg". Non-command
// text is returned whole as cmd.
func splitCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return text, ""
	}
	cmd, args, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(args)
}
