package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/schedule-bot/internal/domain"
)

// Reply keyboard buttons.
const (
	btnSchedule      = "📅 Расписание"
	btnPickDate      = "📆 Выбрать дату"
	btnChangeGroup   = "👥 Сменить группу"
	btnNotifications = "🔔 Уведомления"
	btnProfile       = "👤 Профиль"
	btnOtherGroup    = "📋 Другая группа"
	btnTime          = "⏰ Время уведомлений"
)

// Callback data.
const (
	cbPrevDay    = "prev_day"
	cbNextDay    = "next_day"
	cbDatePrefix = "date:"
)

const (
	welcomePrivate = "Привет! Я бот для отслеживания расписания. Давай начнем с выбора твоей группы."
	welcomeGroup   = "Привет! Я бот для отслеживания расписания. Для начала работы администратор группы должен выбрать группу."

	askGroupPrivate = "Введите вашу группу (например, 1521-2):"
	askGroupChat    = "Введите номер группы для всего чата (например, 1521-2):"
	askOtherGroup   = "Введите номер группы, расписание которой хотите посмотреть (например, 1521-2):"
	askTime         = "Во сколько присылать уведомления? Например: 15:00, 15.00, 15 00 или 1500"

	adminsOnlyGroup         = "Только администраторы могут менять группу."
	adminsOnlyNotifications = "Только администраторы могут управлять уведомлениями в группе."

	noProfile    = "⚠️ Профиль не настроен. Используйте /start для настройки."
	chooseFirst  = "Сначала выберите группу с помощью команды /start"
	genericError = "Произошла ошибка. Попробуйте позже."
	fetchError   = "Произошла ошибка при получении расписания. Попробуйте позже."
	groupsError  = "Не удалось загрузить список групп. Попробуйте позже."

	pickDateTitle = "Выберите дату:\n📚 - есть пары\n⭕️ - нет пар"
)

const helpText = `🤖 <b>Помощь по использованию бота</b>

📝 <b>Основные команды:</b>
• /start - Начать работу с ботом и выбрать группу
• /schedule - Показать расписание
• /other - Посмотреть расписание другой группы
• /notifications - Включить/выключить уведомления
• /time ЧЧ:ММ - Время уведомлений
• /profile - Показать информацию о профиле
• /help - Показать это сообщение

💡 <b>Как пользоваться в групповом чате:</b>
• Добавьте бота в группу как администратора
• Используйте команды, добавляя @%[1]s
• Например: /schedule@%[1]s
• При вводе номера группы используйте формат: 1234-1@%[1]s

❗️ <b>Права доступа в группах:</b>
• Изменять группу и уведомления могут только администраторы
• Просматривать расписание могут все участники

📌 <b>Формат номера группы:</b> XXXX-X (например: 1521-2)`

var botCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Начать работу с ботом"},
	{Command: "schedule", Description: "Показать расписание"},
	{Command: "other", Description: "Посмотреть расписание другой группы"},
	{Command: "notifications", Description: "Управление уведомлениями"},
	{Command: "time", Description: "Время уведомлений"},
	{Command: "profile", Description: "Показать профиль"},
	{Command: "help", Description: "Помощь по использованию бота"},
}

// Commands returns the command list for setMyCommands.
func Commands() tgbotapi.SetMyCommandsConfig {
	return tgbotapi.NewSetMyCommands(botCommands...)
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSchedule),
			tgbotapi.NewKeyboardButton(btnPickDate),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnChangeGroup),
			tgbotapi.NewKeyboardButton(btnNotifications),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnProfile),
			tgbotapi.NewKeyboardButton(btnOtherGroup),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnTime),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func dayNavKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Предыдущий день", cbPrevDay),
			tgbotapi.NewInlineKeyboardButtonData("Следующий день ➡️", cbNextDay),
		),
	)
}

var shortWeekdays = [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

func dateButton(date time.Time, hasLessons bool) tgbotapi.InlineKeyboardButton {
	icon := "⭕️"
	if hasLessons {
		icon = "📚"
	}
	label := fmt.Sprintf("%s (%s) %s", domain.FormatDate(date), shortWeekdays[date.Weekday()], icon)
	return tgbotapi.NewInlineKeyboardButtonData(label, cbDatePrefix+domain.FormatDate(date))
}

// FormatNotification renders the "tomorrow's schedule" notification.
func FormatNotification(s domain.Schedule) string {
	var b strings.Builder
	b.WriteString("🔔 Уведомление о расписании\n")
	writeDay(&b, s, "📢 <i>На завтра занятия не найдены</i>\n")
	return b.String()
}

// FormatSchedule renders a day for on-demand viewing. title is optional.
func FormatSchedule(s domain.Schedule, title string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "👥 <b>%s</b>\n", html.EscapeString(title))
	}
	writeDay(&b, s, "📢 <i>На этот день занятия не найдены</i>\n")
	return b.String()
}

func writeDay(b *strings.Builder, s domain.Schedule, empty string) {
	fmt.Fprintf(b, "📅 <b>%s (%s)</b>\n\n", s.Date, s.DayOfWeek)
	if s.Empty() {
		b.WriteString(empty)
		return
	}
	for _, slot := range domain.Timetable {
		fmt.Fprintf(b, "%d. ⏰ <b>%s</b>\n", slot.Number, slot.Time)
		if l, ok := s.Lesson(slot.Number); ok {
			fmt.Fprintf(b, "📚 %s\n", html.EscapeString(l.Subject))
			if l.Teacher != "" {
				fmt.Fprintf(b, "👩‍🏫 %s\n", html.EscapeString(l.Teacher))
			}
			if l.Room != "" {
				fmt.Fprintf(b, "🏫 Аудитория: %s\n", html.EscapeString(l.Room))
			}
		} else {
			b.WriteString("❌ Нет пары\n")
		}
		b.WriteString("\n")
	}
}

func formatProfile(p *domain.UserPreference, isGroupChat bool, isAdmin bool) string {
	var b strings.Builder
	b.WriteString("👤 <b>Профиль</b>\n\n")
	if isGroupChat {
		b.WriteString("📚 <b>Информация о чате:</b>\n")
	} else {
		b.WriteString("📚 <b>Ваша информация:</b>\n")
	}

	group := p.GroupName
	if group == "" {
		group = "Неизвестная группа"
	}
	fmt.Fprintf(&b, "• Группа: %s\n", html.EscapeString(group))
	fmt.Fprintf(&b, "• Уведомления: %s\n", onOff(p.Notifications))
	fmt.Fprintf(&b, "• Время уведомлений: %s\n", p.DeliveryTime())
	if isGroupChat {
		fmt.Fprintf(&b, "• Права администратора: %s\n", yesNo(isAdmin))
	}
	return b.String()
}

func notificationsToggled(p *domain.UserPreference) string {
	if p.Notifications {
		return fmt.Sprintf("🔔 Уведомления включены. Пришлю расписание на завтра в %s, если оно изменится.", p.DeliveryTime())
	}
	return "🔕 Уведомления выключены"
}

func groupSelected(code string) string {
	return fmt.Sprintf("Группа %s успешно выбрана!", html.EscapeString(code))
}

func groupNotFound(code string) string {
	return fmt.Sprintf("Группа \"%s\" не найдена. Попробуйте снова.", html.EscapeString(code))
}

func timeSaved(c domain.Clock) string {
	return fmt.Sprintf("⏰ Время уведомлений: %s", c)
}

func timeInvalid(err error) string {
	return "Не удалось разобрать время: " + html.EscapeString(err.Error())
}

func onOff(b bool) string {
	if b {
		return "✅ Включены"
	}
	return "❌ Выключены"
}

func yesNo(b bool) string {
	if b {
		return "✅ Есть"
	}
	return "❌ Нет"
}
