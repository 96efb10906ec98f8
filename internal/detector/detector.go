package detector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/schedule-bot/internal/metrics"
)

const (
	DefaultPollInterval = time.Minute
	DefaultDebounce     = 10 * time.Second
)

// State of the change detector.
type State int

const (
	Uninitialized State = iota
	Idle
	Debouncing
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	default:
		return "unknown"
	}
}

// Source reports the upstream "last updated" stamp and owns the raw page memo.
type Source interface {
	LastUpdated(ctx context.Context) (string, error)
	InvalidateRaw()
}

// ScheduleCache is cleared on every committed change.
type ScheduleCache interface {
	ClearSchedules()
}

// Detector polls the upstream stamp and fires OnChange once per burst of
// upstream edits.
type Detector struct {
	source   Source
	cache    ScheduleCache
	onChange func(ctx context.Context)
	metrics  *metrics.Metrics
	log      *zap.Logger

	interval time.Duration
	debounce time.Duration

	// ticking is set while a poll is in flight; overlapping ticks are dropped.
	ticking atomic.Bool

	mu       sync.Mutex
	state    State
	baseline string
	pending  string
	timer    *time.Timer
	gen      uint64
}

// Option configures a Detector.
type Option func(*Detector)

// WithInterval overrides DefaultPollInterval.
func WithInterval(d time.Duration) Option {
	return func(det *Detector) {
		if d > 0 {
			det.interval = d
		}
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(det *Detector) {
		if d > 0 {
			det.debounce = d
		}
	}
}

// New creates a detector. onChange runs after the schedule cache and the page
// memo have been cleared.
func New(src Source, cache ScheduleCache, onChange func(ctx context.Context), m *metrics.Metrics, log *zap.Logger, opts ...Option) *Detector {
	d := &Detector{
		source:   src,
		cache:    cache,
		onChange: onChange,
		metrics:  m,
		log:      log.Named("detector"),
		interval: DefaultPollInterval,
		debounce: DefaultDebounce,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run polls until ctx is canceled.
func (d *Detector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	defer d.stop()

	d.log.Info("detector started",
		zap.Duration("interval", d.interval),
		zap.Duration("debounce", d.debounce),
	)

	go d.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			d.log.Info("detector stopping")
			return
		case <-ticker.C:
			go d.Tick(ctx)
		}
	}
}

// State returns the current state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Baseline returns the last committed stamp.
func (d *Detector) Baseline() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseline
}

// Tick performs one poll. It returns false when it was dropped because
// another poll is still running.
func (d *Detector) Tick(ctx context.Context) bool {
	if !d.ticking.CompareAndSwap(false, true) {
		d.metrics.RecordDroppedTick()
		d.log.Debug("previous poll still running, tick dropped")
		return false
	}
	defer d.ticking.Store(false)

	stamp, err := d.source.LastUpdated(ctx)
	if err != nil {
		d.log.Warn("last-updated stamp unavailable", zap.Error(err))
		return true
	}
	d.observe(ctx, stamp)
	return true
}

func (d *Detector) observe(ctx context.Context, stamp string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case Uninitialized:
		d.baseline = stamp
		d.state = Idle
		d.log.Info("baseline recorded", zap.String("stamp", stamp))
		return
	case Idle:
		if stamp == d.baseline {
			return
		}
	case Debouncing:
		if stamp == d.pending {
			return
		}
	}

	d.metrics.RecordStampChange()
	d.pending = stamp
	d.state = Debouncing
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, func() { d.commit(ctx, gen) })

	d.log.Info("upstream change seen, debouncing",
		zap.String("stamp", stamp),
		zap.String("baseline", d.baseline),
	)
}

// commit runs when the debounce window of generation gen elapses.
func (d *Detector) commit(ctx context.Context, gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.state != Debouncing {
		d.mu.Unlock()
		return
	}
	prev := d.baseline
	d.baseline = d.pending
	d.pending = ""
	d.state = Idle
	d.timer = nil
	stamp := d.baseline
	d.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if stamp == prev {
		d.log.Info("upstream change reverted within debounce window", zap.String("stamp", stamp))
		return
	}

	d.log.Info("upstream change committed",
		zap.String("stamp", stamp),
		zap.String("previous", prev),
	)
	d.cache.ClearSchedules()
	d.source.InvalidateRaw()
	d.metrics.RecordBroadcast()
	if d.onChange != nil {
		d.onChange(ctx)
	}
}

func (d *Detector) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	if d.state == Debouncing {
		d.state = Idle
		d.pending = ""
	}
}
