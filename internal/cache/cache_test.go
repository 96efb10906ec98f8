package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ykvlv/schedule-bot/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, start time.Time) (*Cache, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: start}
	return New(start.Location(), zap.NewNop(), WithClock(clk.Now)), clk
}

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	return loc
}

func TestSchedule_ExpiresAfterTTL(t *testing.T) {
	start := time.Date(2024, time.September, 1, 10, 0, 0, 0, moscow(t))
	c, clk := newTestCache(t, start)
	day := domain.Tomorrow(start)
	s := domain.NewSchedule(day, []domain.Lesson{{Number: 1, Subject: "Математика"}})

	c.SetSchedule("42", day, s)
	got, ok := c.Schedule("42", day)
	require.True(t, ok)
	require.Equal(t, s, got)

	_, ok = c.Schedule("43", day)
	require.False(t, ok, "other group must miss")

	clk.Advance(DefaultScheduleTTL)
	_, ok = c.Schedule("42", day)
	require.False(t, ok, "entry must expire after 24h")
}

func TestHash_ExpiresAtMidnightOfDate(t *testing.T) {
	start := time.Date(2024, time.September, 1, 20, 0, 0, 0, moscow(t))
	c, clk := newTestCache(t, start)
	tomorrow := domain.Tomorrow(start)

	c.SetHash(7, tomorrow, "abc")
	got, ok := c.Hash(7, tomorrow)
	require.True(t, ok)
	require.Equal(t, "abc", got)

	// 20:00 today -> midnight ending tomorrow is 28h away.
	clk.Advance(28*time.Hour - time.Second)
	_, ok = c.Hash(7, tomorrow)
	require.True(t, ok)

	clk.Advance(time.Second)
	_, ok = c.Hash(7, tomorrow)
	require.False(t, ok)
}

func TestSetHash_PastDayIsNotStored(t *testing.T) {
	start := time.Date(2024, time.September, 1, 20, 0, 0, 0, moscow(t))
	c, _ := newTestCache(t, start)

	c.SetHash(7, start.AddDate(0, 0, -1), "old")
	_, ok := c.Hash(7, start.AddDate(0, 0, -1))
	require.False(t, ok)
}

func TestClearSchedules_KeepsHashes(t *testing.T) {
	start := time.Date(2024, time.September, 1, 12, 0, 0, 0, moscow(t))
	c, _ := newTestCache(t, start)
	day := domain.Tomorrow(start)

	c.SetSchedule("1", day, domain.NewSchedule(day, nil))
	c.SetSchedule("2", day, domain.NewSchedule(day, nil))
	c.SetHash(100, day, "h")

	c.ClearSchedules()

	schedules, hashes := c.Len()
	require.Equal(t, 0, schedules)
	require.Equal(t, 1, hashes)
}

func TestClearChat_OnlyTouchesThatChat(t *testing.T) {
	start := time.Date(2024, time.September, 1, 12, 0, 0, 0, moscow(t))
	c, _ := newTestCache(t, start)
	day := domain.Tomorrow(start)

	c.SetHash(100, day, "a")
	c.SetHash(100, start, "b")
	c.SetHash(1000, day, "c")

	c.ClearChat(100)

	_, ok := c.Hash(100, day)
	require.False(t, ok)
	_, ok = c.Hash(100, start)
	require.False(t, ok)
	got, ok := c.Hash(1000, day)
	require.True(t, ok)
	require.Equal(t, "c", got)

	c.ClearHashes()
	_, hashes := c.Len()
	require.Zero(t, hashes)
}

func TestPurge_DropsExpired(t *testing.T) {
	start := time.Date(2024, time.September, 1, 12, 0, 0, 0, moscow(t))
	c, clk := newTestCache(t, start)
	c.SetSchedule("1", start, domain.NewSchedule(start, nil))
	c.SetHash(1, start, "x")

	clk.Advance(13 * time.Hour)
	c.Purge()

	schedules, hashes := c.Len()
	require.Equal(t, 1, schedules, "schedule TTL is 24h")
	require.Equal(t, 0, hashes, "today's hash expired at midnight")
}
