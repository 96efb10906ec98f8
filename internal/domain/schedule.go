package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// DateLayout is the dd.mm.yyyy form the school page uses for dates.
const DateLayout = "02.01.2006"

// Lesson is one occupied slot of a day.
type Lesson struct {
	Number  int    `json:"number"` // 1..6
	Time    string `json:"time"`
	Subject string `json:"subject"`
	Teacher string `json:"teacher"`
	Room    string `json:"room"`
}

// Schedule is a group's lessons for one date. An empty Lessons slice means
// there are no lessons that day, not an error.
type Schedule struct {
	Date      string
	DayOfWeek string
	Lessons   []Lesson
}

// Empty reports whether the day has no lessons.
func (s Schedule) Empty() bool { return len(s.Lessons) == 0 }

// Lesson returns the lesson in the given slot, if any.
func (s Schedule) Lesson(number int) (Lesson, bool) {
	for _, l := range s.Lessons {
		if l.Number == number {
			return l, true
		}
	}
	return Lesson{}, false
}

// Slot is a fixed period of the daily timetable.
type Slot struct {
	Number int
	Time   string
}

// Timetable is the fixed six-slot day.
var Timetable = []Slot{
	{1, "8:30-10:00"},
	{2, "10:10-11:40"},
	{3, "12:10-13:40"},
	{4, "13:50-15:20"},
	{5, "15:30-17:00"},
	{6, "17:10-18:40"},
}

// HashLessons returns a stable digest of the lesson list. Date and weekday
// are deliberately not part of it.
func HashLessons(lessons []Lesson) string {
	if lessons == nil {
		lessons = []Lesson{}
	}
	// Marshalling a slice of plain structs cannot fail.
	b, _ := json.Marshal(lessons)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Hash is HashLessons over s.Lessons.
func (s Schedule) Hash() string { return HashLessons(s.Lessons) }

var weekdays = [...]string{
	time.Sunday:    "воскресенье",
	time.Monday:    "понедельник",
	time.Tuesday:   "вторник",
	time.Wednesday: "среда",
	time.Thursday:  "четверг",
	time.Friday:    "пятница",
	time.Saturday:  "суббота",
}

// FormatDate formats t as dd.mm.yyyy.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// FormatWeekday returns the Russian weekday name of t.
func FormatWeekday(t time.Time) string { return weekdays[t.Weekday()] }

// NewSchedule builds a Schedule stamped with t's date and weekday.
func NewSchedule(t time.Time, lessons []Lesson) Schedule {
	if lessons == nil {
		lessons = []Lesson{}
	}
	return Schedule{Date: FormatDate(t), DayOfWeek: FormatWeekday(t), Lessons: lessons}
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Tomorrow returns the start of the day after now, in now's location.
func Tomorrow(now time.Time) time.Time {
	return StartOfDay(now).AddDate(0, 0, 1)
}

// UntilEndOfDay returns how long remains from now until the midnight that
// ends date's day. It is non-positive once that midnight has passed.
func UntilEndOfDay(date, now time.Time) time.Duration {
	return StartOfDay(date).AddDate(0, 0, 1).Sub(now)
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
