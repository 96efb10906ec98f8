package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/schedule-bot/internal/domain"
)

// DefaultScheduleTTL is how long a parsed schedule stays valid.
const DefaultScheduleTTL = 24 * time.Hour

type scheduleKey struct {
	groupID string
	date    string
}

type hashKey struct {
	chatID int64
	date   string
}

type scheduleEntry struct {
	schedule  domain.Schedule
	expiresAt time.Time
}

type hashEntry struct {
	hash      string
	expiresAt time.Time
}

// Cache memoizes parsed schedules per (group, date) and last-sent content
// hashes per (chat, date). It is advisory: a miss only costs a fetch.
type Cache struct {
	mu          sync.RWMutex
	schedules   map[scheduleKey]scheduleEntry
	hashes      map[hashKey]hashEntry
	scheduleTTL time.Duration
	loc         *time.Location
	now         func() time.Time
	log         *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithScheduleTTL overrides DefaultScheduleTTL.
func WithScheduleTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.scheduleTTL = ttl
		}
	}
}

// New creates an empty cache. Hash TTLs are computed against midnight in loc.
func New(loc *time.Location, log *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		schedules:   make(map[scheduleKey]scheduleEntry),
		hashes:      make(map[hashKey]hashEntry),
		scheduleTTL: DefaultScheduleTTL,
		loc:         loc,
		now:         time.Now,
		log:         log.Named("cache"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func dateKey(t time.Time, loc *time.Location) string {
	return domain.FormatDate(t.In(loc))
}

// Schedule returns a cached schedule for groupID on date.
func (c *Cache) Schedule(groupID string, date time.Time) (domain.Schedule, bool) {
	k := scheduleKey{groupID: groupID, date: dateKey(date, c.loc)}

	c.mu.RLock()
	e, ok := c.schedules[k]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return domain.Schedule{}, false
	}
	return e.schedule, true
}

// SetSchedule stores s for groupID on date with the schedule TTL.
func (c *Cache) SetSchedule(groupID string, date time.Time, s domain.Schedule) {
	k := scheduleKey{groupID: groupID, date: dateKey(date, c.loc)}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.schedules[k] = scheduleEntry{schedule: s, expiresAt: c.now().Add(c.scheduleTTL)}
}

// Hash returns the last content hash sent to chatID for date.
func (c *Cache) Hash(chatID int64, date time.Time) (string, bool) {
	k := hashKey{chatID: chatID, date: dateKey(date, c.loc)}

	c.mu.RLock()
	e, ok := c.hashes[k]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return "", false
	}
	return e.hash, true
}

// SetHash records hash for chatID on date. The entry expires at the local
// midnight that ends date, so it never leaks into the next day's decision.
func (c *Cache) SetHash(chatID int64, date time.Time, hash string) {
	now := c.now()
	ttl := domain.UntilEndOfDay(date.In(c.loc), now.In(c.loc))
	if ttl <= 0 {
		c.log.Debug("hash for past day not cached",
			zap.Int64("chat_id", chatID), zap.String("date", dateKey(date, c.loc)))
		return
	}
	k := hashKey{chatID: chatID, date: dateKey(date, c.loc)}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashes[k] = hashEntry{hash: hash, expiresAt: now.Add(ttl)}
}

// ClearSchedules drops every schedule entry, leaving hashes in place.
func (c *Cache) ClearSchedules() {
	c.mu.Lock()
	n := len(c.schedules)
	c.schedules = make(map[scheduleKey]scheduleEntry)
	c.mu.Unlock()

	c.log.Info("schedule cache cleared", zap.Int("entries", n))
}

// ClearHashes drops every content hash.
func (c *Cache) ClearHashes() {
	c.mu.Lock()
	n := len(c.hashes)
	c.hashes = make(map[hashKey]hashEntry)
	c.mu.Unlock()

	c.log.Info("hash cache cleared", zap.Int("entries", n))
}

// ClearChat drops every hash recorded for chatID.
func (c *Cache) ClearChat(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.hashes {
		if k.chatID == chatID {
			delete(c.hashes, k)
		}
	}
}

// Len returns the number of live schedule and hash entries.
func (c *Cache) Len() (schedules, hashes int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.schedules), len(c.hashes)
}

// Purge removes expired entries.
func (c *Cache) Purge() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.schedules {
		if !now.Before(e.expiresAt) {
			delete(c.schedules, k)
		}
	}
	for k, e := range c.hashes {
		if !now.Before(e.expiresAt) {
			delete(c.hashes, k)
		}
	}
}

// Run purges expired entries every interval until ctx is canceled.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}
