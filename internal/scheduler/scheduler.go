package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/schedule-bot/internal/domain"
	"github.com/ykvlv/schedule-bot/internal/metrics"
)

// DefaultWatchInterval is how often Watch re-reads stored preferences.
const DefaultWatchInterval = 5 * time.Second

// ScheduleFetcher returns a group's schedule for a date.
type ScheduleFetcher interface {
	Fetch(ctx context.Context, groupID string, date time.Time) (domain.Schedule, error)
}

// HashCache remembers the last delivered content hash per (chat, date).
type HashCache interface {
	Hash(chatID int64, date time.Time) (string, bool)
	SetHash(chatID int64, date time.Time, hash string)
}

// Deliverer sends a schedule notification to a chat.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, s domain.Schedule) error
}

// PreferenceLister lists chats that want notifications.
type PreferenceLister interface {
	ListNotifiable(ctx context.Context) ([]domain.UserPreference, error)
}

type pending struct {
	id    uint64
	at    time.Time
	timer *time.Timer
}

// Scheduler keeps one pending delivery timer per chat. A timer fires once at
// the chat's local delivery time; it is re-armed only by ScheduleAll or a
// preference change.
type Scheduler struct {
	prefs     PreferenceLister
	fetcher   ScheduleFetcher
	hashes    HashCache
	deliverer Deliverer
	metrics   *metrics.Metrics
	log       *zap.Logger

	loc           *time.Location
	now           func() time.Time
	defaultClock  domain.Clock
	watchInterval time.Duration

	mu       sync.Mutex
	timers   map[int64]*pending
	inflight map[int64]bool
	seq      uint64

	watchMu sync.Mutex
	seen    map[int64]watched // chat -> state at last watch pass
}

// watched is what the watcher compares between passes.
type watched struct {
	time    string
	groupID string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithWatchInterval overrides DefaultWatchInterval.
func WithWatchInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.watchInterval = d
		}
	}
}

// WithDefaultTime sets the delivery time used when a preference carries an
// unusable one.
func WithDefaultTime(hhmm string) Option {
	return func(s *Scheduler) {
		if c, err := domain.ParseClock(hhmm); err == nil {
			s.defaultClock = c
		}
	}
}

// New creates a Scheduler. Delivery times are interpreted in loc.
func New(
	prefs PreferenceLister,
	fetcher ScheduleFetcher,
	hashes HashCache,
	deliverer Deliverer,
	loc *time.Location,
	m *metrics.Metrics,
	log *zap.Logger,
	opts ...Option,
) *Scheduler {
	def, _ := domain.ParseClock(domain.DefaultNotificationTime)
	s := &Scheduler{
		prefs:         prefs,
		fetcher:       fetcher,
		hashes:        hashes,
		deliverer:     deliverer,
		metrics:       m,
		log:           log.Named("scheduler"),
		loc:           loc,
		now:           time.Now,
		defaultClock:  def,
		watchInterval: DefaultWatchInterval,
		timers:        make(map[int64]*pending),
		inflight:      make(map[int64]bool),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ScheduleAll arms a timer for every chat with notifications enabled and
// drops timers of chats that are no longer listed.
func (s *Scheduler) ScheduleAll(ctx context.Context) {
	prefs, err := s.prefs.ListNotifiable(ctx)
	if err != nil {
		s.log.Error("list preferences failed, nothing scheduled", zap.Error(err))
		return
	}

	listed := make(map[int64]struct{}, len(prefs))
	for _, p := range prefs {
		listed[p.ChatID] = struct{}{}
	}
	for _, chatID := range s.pendingChats() {
		if _, ok := listed[chatID]; !ok {
			s.Cancel(chatID)
		}
	}

	s.log.Info("scheduling notifications", zap.Int("chats", len(prefs)))
	for _, p := range prefs {
		if ctx.Err() != nil {
			return
		}
		s.RescheduleOne(ctx, p)
	}
}

// RescheduleOne replaces the chat's timer. When the delivery time has already
// passed today the check runs synchronously before RescheduleOne returns.
func (s *Scheduler) RescheduleOne(ctx context.Context, pref domain.UserPreference) {
	s.Cancel(pref.ChatID)
	if !pref.Notifications || pref.GroupID == "" {
		return
	}

	now := s.now().In(s.loc)
	at := s.clockOf(pref).On(now)
	if !now.Before(at) {
		s.run(ctx, pref)
		return
	}

	s.mu.Lock()
	if old := s.timers[pref.ChatID]; old != nil {
		old.timer.Stop()
	}
	s.seq++
	p := &pending{id: s.seq, at: at}
	id := p.id
	p.timer = time.AfterFunc(at.Sub(now), func() { s.fire(ctx, pref, id) })
	s.timers[pref.ChatID] = p
	n := len(s.timers)
	s.mu.Unlock()

	s.metrics.SetPendingTimers(n)
	s.log.Debug("timer armed",
		zap.Int64("chat_id", pref.ChatID),
		zap.Time("at", at),
	)
}

// CheckAndSend fetches tomorrow's schedule of the chat's group and delivers
// it when its content hash differs from the last one sent, including when
// none was sent yet.
func (s *Scheduler) CheckAndSend(ctx context.Context, pref domain.UserPreference) (bool, error) {
	s.mu.Lock()
	if s.inflight[pref.ChatID] {
		s.mu.Unlock()
		return false, nil
	}
	s.inflight[pref.ChatID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, pref.ChatID)
		s.mu.Unlock()
	}()

	tomorrow := domain.Tomorrow(s.now().In(s.loc))
	sched, err := s.fetcher.Fetch(ctx, pref.GroupID, tomorrow)
	if err != nil {
		return false, fmt.Errorf("fetch schedule: %w", err)
	}

	hash := sched.Hash()
	if prev, ok := s.hashes.Hash(pref.ChatID, tomorrow); ok && prev == hash {
		s.metrics.RecordNotification(false)
		return false, nil
	}

	if err := s.deliverer.Deliver(ctx, pref.ChatID, sched); err != nil {
		return false, fmt.Errorf("deliver: %w", err)
	}
	s.hashes.SetHash(pref.ChatID, tomorrow, hash)
	s.metrics.RecordNotification(true)
	return true, nil
}

// Cancel stops the chat's pending timer, if any.
func (s *Scheduler) Cancel(chatID int64) {
	s.mu.Lock()
	p, ok := s.timers[chatID]
	if ok {
		p.timer.Stop()
		delete(s.timers, chatID)
	}
	n := len(s.timers)
	s.mu.Unlock()

	if ok {
		s.metrics.SetPendingTimers(n)
	}
}

// Pending reports whether the chat has an armed timer.
func (s *Scheduler) Pending(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[chatID]
	return ok
}

// NextFire returns when the chat's timer fires.
func (s *Scheduler) NextFire(chatID int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.timers[chatID]
	if !ok {
		return time.Time{}, false
	}
	return p.at, true
}

// Stop cancels every pending timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for chatID, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, chatID)
	}
	s.mu.Unlock()
	s.metrics.SetPendingTimers(0)
}

// Watch re-reads preferences every watch interval until ctx is canceled.
// Chats seen on the first pass are only recorded; afterwards a changed
// delivery time or group, or a newly enabled chat, is rescheduled and a disabled chat
// is cancelled.
func (s *Scheduler) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.watchInterval)
	defer ticker.Stop()
	defer s.Stop()

	s.watchOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.watchOnce(ctx)
		}
	}
}

func (s *Scheduler) watchOnce(ctx context.Context) {
	prefs, err := s.prefs.ListNotifiable(ctx)
	if err != nil {
		s.log.Warn("watch: list preferences failed", zap.Error(err))
		return
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	first := s.seen == nil
	current := make(map[int64]watched, len(prefs))
	for _, p := range prefs {
		w := watched{time: p.DeliveryTime(), groupID: p.GroupID}
		current[p.ChatID] = w
		if first {
			continue
		}
		prev, known := s.seen[p.ChatID]
		if known && prev == w {
			continue
		}
		s.log.Info("preference changed",
			zap.Int64("chat_id", p.ChatID),
			zap.String("time", w.time),
			zap.String("group_id", w.groupID),
			zap.String("prev_time", prev.time),
			zap.String("prev_group_id", prev.groupID),
		)
		s.RescheduleOne(ctx, p)
	}

	for chatID := range s.seen {
		if _, ok := current[chatID]; !ok {
			s.Cancel(chatID)
		}
	}
	s.seen = current
}

// fire is the timer callback of generation id.
func (s *Scheduler) fire(ctx context.Context, pref domain.UserPreference, id uint64) {
	s.mu.Lock()
	cur, ok := s.timers[pref.ChatID]
	current := ok && cur.id == id
	s.mu.Unlock()
	if !current || ctx.Err() != nil {
		return
	}

	s.run(ctx, pref)

	s.mu.Lock()
	if cur, ok := s.timers[pref.ChatID]; ok && cur.id == id {
		delete(s.timers, pref.ChatID)
	}
	n := len(s.timers)
	s.mu.Unlock()
	s.metrics.SetPendingTimers(n)
}

func (s *Scheduler) run(ctx context.Context, pref domain.UserPreference) {
	sent, err := s.CheckAndSend(ctx, pref)
	if err != nil {
		s.log.Error("notification check failed",
			zap.Int64("chat_id", pref.ChatID),
			zap.String("group_id", pref.GroupID),
			zap.String("date", domain.FormatDate(domain.Tomorrow(s.now().In(s.loc)))),
			zap.Error(err),
		)
		return
	}
	if sent {
		s.log.Info("notification sent",
			zap.Int64("chat_id", pref.ChatID),
			zap.String("group_id", pref.GroupID),
		)
	}
}

func (s *Scheduler) clockOf(pref domain.UserPreference) domain.Clock {
	c, err := domain.ParseClock(pref.DeliveryTime())
	if err != nil {
		s.log.Warn("bad delivery time, using default",
			zap.Int64("chat_id", pref.ChatID),
			zap.String("time", pref.NotificationTime),
			zap.Error(err),
		)
		return s.defaultClock
	}
	return c
}

func (s *Scheduler) pendingChats() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.timers))
	for id := range s.timers {
		ids = append(ids, id)
	}
	return ids
}
