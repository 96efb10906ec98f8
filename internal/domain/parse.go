package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyClock   = errors.New("empty time")
	ErrInvalidClock = errors.New("invalid time")
	ErrInvalidGroup = errors.New("invalid group code")
)

// Accepted user inputs: "14:30", "14.30", "14,30", "14 30", "1430".
var clockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d{1,2})[:.,](\d{2})$`),
	regexp.MustCompile(`^(\d{1,2})\s+(\d{2})$`),
	regexp.MustCompile(`^(\d{1,2})(\d{2})$`),
}

var groupCodeRe = regexp.MustCompile(`^\d{4}-(\d|[А-ЯA-Z]{2})$`)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// String formats the clock as HH:MM.
func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// On returns the instant of c on t's calendar day, in t's location.
func (c Clock) On(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, t.Location())
}

// ParseClock parses the stored "HH:MM" form.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Clock{}, ErrEmptyClock
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("%w: expected HH:MM, got %q", ErrInvalidClock, s)
	}
	return clockFromParts(parts[0], parts[1])
}

// ParseClockInput parses free-form user input in any of the accepted forms.
func ParseClockInput(s string) (Clock, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Clock{}, ErrEmptyClock
	}
	for _, re := range clockPatterns {
		if m := re.FindStringSubmatch(s); len(m) == 3 {
			return clockFromParts(m[1], m[2])
		}
	}
	return Clock{}, fmt.Errorf("%w: use HH:MM, HH.MM, HH MM or HHMM", ErrInvalidClock)
}

func clockFromParts(hs, ms string) (Clock, error) {
	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("%w: hour must be 0..23", ErrInvalidClock)
	}
	m, err := strconv.Atoi(strings.TrimSpace(ms))
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("%w: minute must be 0..59", ErrInvalidClock)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// NormalizeGroupCode upper-cases and validates a group code like "1521-2".
func NormalizeGroupCode(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if !groupCodeRe.MatchString(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidGroup, s)
	}
	return code, nil
}

// ValidateTZ checks that the tz is a valid IANA location.
func ValidateTZ(tz string) (*time.Location, error) {
	return time.LoadLocation(tz)
}
