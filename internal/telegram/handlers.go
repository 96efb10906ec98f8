package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/schedule-bot/internal/domain"
	"github.com/ykvlv/schedule-bot/internal/store"
)

// pickDateDays is how many days the date picker offers.
const pickDateDays = 14

// preference loads the chat's preference; ok is false when there is none
// or it could not be read.
func (r *Router) preference(ctx context.Context, msg *tgbotapi.Message) (*domain.UserPreference, bool) {
	return r.preferenceOf(ctx, msg.From.ID, msg.Chat.ID)
}

func (r *Router) preferenceOf(ctx context.Context, userID, chatID int64) (*domain.UserPreference, bool) {
	p, err := r.repo.GetPreference(ctx, userID, chatID)
	if err == nil {
		return p, true
	}
	if !errors.Is(err, store.ErrNotFound) {
		r.log.Error("read preference failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return nil, false
}

// newPreference returns the row a chat gets on its first group choice.
func newPreference(msg *tgbotapi.Message) *domain.UserPreference {
	p := &domain.UserPreference{
		UserID:           msg.From.ID,
		ChatID:           msg.Chat.ID,
		NotificationTime: domain.DefaultNotificationTime,
	}
	if isGroupChat(msg.Chat) {
		p.IsGroupChat = true
		p.GroupChatID = msg.Chat.ID
	}
	return p
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	group := isGroupChat(msg.Chat)
	welcome := welcomePrivate
	if group {
		welcome = welcomeGroup
	}
	r.send(ctx, msg.Chat.ID, welcome, nil)

	if !group || r.isAdmin(msg.Chat.ID, msg.From.ID) {
		r.askGroup(ctx, msg)
	}
}

func (r *Router) askGroup(ctx context.Context, msg *tgbotapi.Message) {
	if isGroupChat(msg.Chat) {
		if !r.isAdmin(msg.Chat.ID, msg.From.ID) {
			r.send(ctx, msg.Chat.ID, adminsOnlyGroup, nil)
			return
		}
		r.send(ctx, msg.Chat.ID, askGroupChat, nil)
		return
	}
	r.send(ctx, msg.Chat.ID, askGroupPrivate, nil)
}

func (r *Router) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	name := r.self.UserName
	if name == "" {
		name = "имя_бота"
	}
	r.send(ctx, msg.Chat.ID, fmt.Sprintf(helpText, name), nil)
}

func (r *Router) handleProfile(ctx context.Context, msg *tgbotapi.Message) {
	p, ok := r.preference(ctx, msg)
	if !ok {
		r.send(ctx, msg.Chat.ID, noProfile, nil)
		return
	}
	group := isGroupChat(msg.Chat)
	admin := group && r.isAdmin(msg.Chat.ID, msg.From.ID)
	r.send(ctx, msg.Chat.ID, formatProfile(p, group, admin), nil)
}

// --- Schedule viewing ---

func (r *Router) handleSchedule(ctx context.Context, msg *tgbotapi.Message) {
	p, ok := r.preference(ctx, msg)
	if !ok {
		r.askGroup(ctx, msg)
		return
	}
	r.showDay(ctx, msg.Chat.ID, p.GroupID, "", r.today(), true)
}

func (r *Router) handleOther(ctx context.Context, msg *tgbotapi.Message) {
	r.setPending(msg.Chat.ID, pendingOtherGroup)
	r.send(ctx, msg.Chat.ID, askOtherGroup, nil)
}

// showDay sends the schedule of groupID for date. With seek set, an empty
// day is replaced by the next day that has lessons.
func (r *Router) showDay(ctx context.Context, chatID int64, groupID, title string, date time.Time, seek bool) {
	s, err := r.schedules.Fetch(ctx, groupID, date)
	if err != nil {
		r.log.Error("fetch schedule failed",
			zap.Int64("chat_id", chatID),
			zap.String("group_id", groupID),
			zap.String("date", domain.FormatDate(date)),
			zap.Error(err),
		)
		r.send(ctx, chatID, fetchError, nil)
		return
	}
	if seek && s.Empty() {
		if next := r.schedules.NextAvailableDay(ctx, groupID, date, 1); !next.Equal(date) {
			date = next
			if s, err = r.schedules.Fetch(ctx, groupID, date); err != nil {
				r.send(ctx, chatID, fetchError, nil)
				return
			}
		}
	}

	r.setShownDate(chatID, date)
	r.send(ctx, chatID, FormatSchedule(s, title), dayNavKeyboard())
}

// navigate moves the shown day to the previous or next weekday with lessons.
func (r *Router) navigate(ctx context.Context, chatID, userID int64, direction int) {
	p, ok := r.preferenceOf(ctx, userID, chatID)
	if !ok {
		r.send(ctx, chatID, chooseFirst, nil)
		return
	}

	from, ok := r.shownDate(chatID)
	if !ok {
		from = r.today()
	}
	next := from.AddDate(0, 0, direction)
	for domain.IsWeekend(next) {
		next = next.AddDate(0, 0, direction)
	}
	next = r.schedules.NextAvailableDay(ctx, p.GroupID, next, direction)
	r.showDay(ctx, chatID, p.GroupID, "", next, false)
}

func (r *Router) handlePickDate(ctx context.Context, msg *tgbotapi.Message) {
	p, ok := r.preference(ctx, msg)
	if !ok {
		r.send(ctx, msg.Chat.ID, chooseFirst, nil)
		return
	}

	today := r.today()
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < pickDateDays; i++ {
		date := today.AddDate(0, 0, i)
		s, err := r.schedules.Fetch(ctx, p.GroupID, date)
		hasLessons := err == nil && !s.Empty()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(dateButton(date, hasLessons)))
	}
	r.send(ctx, msg.Chat.ID, pickDateTitle, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (r *Router) handleDatePicked(ctx context.Context, chatID, userID int64, raw string) {
	p, ok := r.preferenceOf(ctx, userID, chatID)
	if !ok {
		r.send(ctx, chatID, chooseFirst, nil)
		return
	}
	date, err := time.ParseInLocation(domain.DateLayout, raw, r.loc)
	if err != nil {
		r.log.Warn("bad date callback", zap.String("data", raw), zap.Error(err))
		return
	}
	r.showDay(ctx, chatID, p.GroupID, "", date, false)
}

// --- Preferences ---

func (r *Router) handleNotifications(ctx context.Context, msg *tgbotapi.Message) {
	if isGroupChat(msg.Chat) && !r.isAdmin(msg.Chat.ID, msg.From.ID) {
		r.send(ctx, msg.Chat.ID, adminsOnlyNotifications, nil)
		return
	}
	p, ok := r.preference(ctx, msg)
	if !ok {
		r.send(ctx, msg.Chat.ID, chooseFirst, nil)
		return
	}

	p.Notifications = !p.Notifications
	if err := r.repo.UpsertPreference(ctx, p); err != nil {
		r.log.Error("save notifications failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		r.send(ctx, msg.Chat.ID, genericError, nil)
		return
	}
	r.send(ctx, msg.Chat.ID, notificationsToggled(p), nil)
}

func (r *Router) handleTime(ctx context.Context, msg *tgbotapi.Message, args string) {
	if isGroupChat(msg.Chat) && !r.isAdmin(msg.Chat.ID, msg.From.ID) {
		r.send(ctx, msg.Chat.ID, adminsOnlyNotifications, nil)
		return
	}
	if args == "" {
		r.setPending(msg.Chat.ID, pendingTime)
		r.send(ctx, msg.Chat.ID, askTime, nil)
		return
	}
	r.saveTime(ctx, msg, args)
}

func (r *Router) saveTime(ctx context.Context, msg *tgbotapi.Message, input string) {
	r.clearPending(msg.Chat.ID)
	clock, err := domain.ParseClockInput(input)
	if err != nil {
		r.send(ctx, msg.Chat.ID, timeInvalid(err), nil)
		return
	}
	p, ok := r.preference(ctx, msg)
	if !ok {
		r.send(ctx, msg.Chat.ID, chooseFirst, nil)
		return
	}

	p.NotificationTime = clock.String()
	if err := r.repo.UpsertPreference(ctx, p); err != nil {
		r.log.Error("save time failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		r.send(ctx, msg.Chat.ID, genericError, nil)
		return
	}
	r.send(ctx, msg.Chat.ID, timeSaved(clock), nil)
}

func (r *Router) handleGroupInput(ctx context.Context, msg *tgbotapi.Message, code string) {
	if isGroupChat(msg.Chat) && !r.isAdmin(msg.Chat.ID, msg.From.ID) {
		r.send(ctx, msg.Chat.ID, adminsOnlyGroup, nil)
		return
	}
	groupID, ok := r.resolveGroup(ctx, msg.Chat.ID, code)
	if !ok {
		r.askGroup(ctx, msg)
		return
	}

	p, found := r.preference(ctx, msg)
	if !found {
		p = newPreference(msg)
	}
	p.GroupID = groupID
	p.GroupName = code
	if err := r.repo.UpsertPreference(ctx, p); err != nil {
		r.log.Error("save group failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		r.send(ctx, msg.Chat.ID, genericError, nil)
		return
	}

	r.clearPending(msg.Chat.ID)
	r.send(ctx, msg.Chat.ID, groupSelected(code), nil)
	r.showDay(ctx, msg.Chat.ID, groupID, "", r.today(), true)
}

func (r *Router) handleOtherGroup(ctx context.Context, msg *tgbotapi.Message, code string) {
	groupID, ok := r.resolveGroup(ctx, msg.Chat.ID, code)
	if !ok {
		return
	}
	r.clearPending(msg.Chat.ID)
	r.showDay(ctx, msg.Chat.ID, groupID, "Группа "+code, r.today(), true)
}

// resolveGroup maps a normalized group code to its id, telling the user
// when it is unknown.
func (r *Router) resolveGroup(ctx context.Context, chatID int64, code string) (string, bool) {
	groups, err := r.schedules.Groups(ctx)
	if err != nil {
		r.log.Error("load groups failed", zap.Error(err))
		r.send(ctx, chatID, groupsError, nil)
		return "", false
	}
	id, ok := groups[code]
	if !ok {
		r.send(ctx, chatID, groupNotFound(code), nil)
		return "", false
	}
	return id, true
}

// --- Free-form dispatcher ---

func (r *Router) handleFreeForm(ctx context.Context, msg *tgbotapi.Message, text string) {
	if r.getPending(msg.Chat.ID) == pendingTime {
		r.saveTime(ctx, msg, text)
		return
	}

	code, err := domain.NormalizeGroupCode(text)
	if err != nil {
		// Not a group code and no pending flow: ignore.
		return
	}
	if r.getPending(msg.Chat.ID) == pendingOtherGroup {
		r.handleOtherGroup(ctx, msg, code)
		return
	}
	r.handleGroupInput(ctx, msg, code)
}

func (r *Router) today() time.Time {
	return domain.StartOfDay(r.now().In(r.loc))
}
