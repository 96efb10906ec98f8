package domain

import (
	"errors"
	"testing"
	"time"
)

// helper: build a local time in the given tz
func mustLocal(t *testing.T, tz string, y int, m time.Month, d, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

func TestHashLessons_IgnoresDateAndWeekday(t *testing.T) {
	lessons := []Lesson{
		{Number: 1, Time: "8.30-10.00", Subject: "Математика", Teacher: "Иванов И.И.", Room: "101"},
		{Number: 3, Time: "12.10-13.40", Subject: "Физика", Teacher: "Петров П.П.", Room: "202"},
	}
	a := Schedule{Date: "01.09.2024", DayOfWeek: "воскресенье", Lessons: lessons}
	b := Schedule{Date: "02.09.2024", DayOfWeek: "понедельник", Lessons: append([]Lesson(nil), lessons...)}

	if a.Hash() != b.Hash() {
		t.Fatalf("hashes differ for identical lessons: %s vs %s", a.Hash(), b.Hash())
	}
}

func TestHashLessons_DetectsChanges(t *testing.T) {
	base := []Lesson{{Number: 1, Time: "8.30-10.00", Subject: "Математика", Teacher: "A", Room: "101"}}
	changed := []Lesson{{Number: 1, Time: "8.30-10.00", Subject: "Математика", Teacher: "A", Room: "102"}}

	if HashLessons(base) == HashLessons(changed) {
		t.Fatal("room change must change the hash")
	}
	if HashLessons(nil) != HashLessons([]Lesson{}) {
		t.Fatal("nil and empty lesson lists must hash equal")
	}
	if HashLessons(nil) == HashLessons(base) {
		t.Fatal("empty and non-empty lists must differ")
	}
}

func TestNewSchedule_FormatsDateAndWeekday(t *testing.T) {
	d := mustLocal(t, "Europe/Moscow", 2024, time.September, 2, 0, 0)
	s := NewSchedule(d, nil)
	if s.Date != "02.09.2024" {
		t.Fatalf("want 02.09.2024, got %s", s.Date)
	}
	if s.DayOfWeek != "понедельник" {
		t.Fatalf("want понедельник, got %s", s.DayOfWeek)
	}
	if s.Lessons == nil || !s.Empty() {
		t.Fatal("lessons must be an empty, non-nil slice")
	}
}

func TestUntilEndOfDay(t *testing.T) {
	now := mustLocal(t, "Europe/Moscow", 2024, time.September, 1, 21, 30)
	tomorrow := Tomorrow(now)

	if got := UntilEndOfDay(now, now); got != 150*time.Minute {
		t.Fatalf("today: want 2h30m, got %s", got)
	}
	if got := UntilEndOfDay(tomorrow, now); got != 150*time.Minute+24*time.Hour {
		t.Fatalf("tomorrow: want 26h30m, got %s", got)
	}
	yesterday := now.AddDate(0, 0, -1)
	if got := UntilEndOfDay(yesterday, now); got > 0 {
		t.Fatalf("past day must be non-positive, got %s", got)
	}
}

func TestParseClockInput(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  bool
	}{
		{"14:30", "14:30", false},
		{"14.30", "14:30", false},
		{"9,05", "09:05", false},
		{"14 30", "14:30", false},
		{"1430", "14:30", false},
		{"930", "09:30", false},
		{"24:00", "", true},
		{"12:60", "", true},
		{"noon", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseClockInput(tc.in)
		if tc.err {
			if err == nil {
				t.Errorf("%q: want error, got %s", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.in, err)
			continue
		}
		if got.String() != tc.want {
			t.Errorf("%q: want %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestParseClock_RejectsLooseForms(t *testing.T) {
	if _, err := ParseClock("1430"); !errors.Is(err, ErrInvalidClock) {
		t.Fatalf("want ErrInvalidClock, got %v", err)
	}
	c, err := ParseClock("07:45")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	day := mustLocal(t, "Europe/Moscow", 2024, time.September, 1, 22, 10)
	at := c.On(day)
	if at.Hour() != 7 || at.Minute() != 45 || at.Day() != 1 {
		t.Fatalf("unexpected instant %v", at)
	}
}

func TestNormalizeGroupCode(t *testing.T) {
	if code, err := NormalizeGroupCode(" 1521-2 "); err != nil || code != "1521-2" {
		t.Fatalf("got %q, %v", code, err)
	}
	if code, err := NormalizeGroupCode("1521-ит"); err != nil || code != "1521-ИТ" {
		t.Fatalf("got %q, %v", code, err)
	}
	if _, err := NormalizeGroupCode("15212"); !errors.Is(err, ErrInvalidGroup) {
		t.Fatalf("15212: got %v, want ErrInvalidGroup", err)
	}
}

func TestUserPreference_DeliveryTimeDefault(t *testing.T) {
	p := UserPreference{}
	if p.DeliveryTime() != DefaultNotificationTime {
		t.Fatalf("want default, got %s", p.DeliveryTime())
	}
	p.NotificationTime = "08:00"
	if p.DeliveryTime() != "08:00" {
		t.Fatalf("want 08:00, got %s", p.DeliveryTime())
	}
}
