package detector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ykvlv/schedule-bot/internal/metrics"
)

type fakeSource struct {
	mu          sync.Mutex
	stamp       string
	err         error
	block       chan struct{} // when set, LastUpdated waits on it
	entered     chan struct{}
	invalidated atomic.Int32
}

func (f *fakeSource) LastUpdated(ctx context.Context) (string, error) {
	f.mu.Lock()
	block, entered := f.block, f.entered
	stamp, err := f.stamp, f.err
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return stamp, err
}

func (f *fakeSource) InvalidateRaw() { f.invalidated.Add(1) }

func (f *fakeSource) set(stamp string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stamp, f.err = stamp, err
}

type fakeCache struct{ cleared atomic.Int32 }

func (c *fakeCache) ClearSchedules() { c.cleared.Add(1) }

type harness struct {
	src     *fakeSource
	cache   *fakeCache
	changes atomic.Int32
	det     *Detector
}

func newHarness(t *testing.T, debounce time.Duration, m *metrics.Metrics) *harness {
	t.Helper()
	h := &harness{src: &fakeSource{}, cache: &fakeCache{}}
	h.det = New(h.src, h.cache, func(context.Context) { h.changes.Add(1) }, m, zap.NewNop(),
		WithDebounce(debounce))
	t.Cleanup(h.det.stop)
	return h
}

func (h *harness) tick(t *testing.T, stamp string) {
	t.Helper()
	h.src.set(stamp, nil)
	require.True(t, h.det.Tick(context.Background()))
}

const (
	stampA = "Обновлено: 01.09.2024 в 10:00"
	stampB = "Обновлено: 01.09.2024 в 10:05"
	stampC = "Обновлено: 01.09.2024 в 10:07"
	stampD = "Обновлено: 01.09.2024 в 10:09"
)

func TestDetector_FirstStampIsBaselineOnly(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond, nil)
	require.Equal(t, Uninitialized, h.det.State())

	h.tick(t, stampA)

	require.Equal(t, Idle, h.det.State())
	require.Equal(t, stampA, h.det.Baseline())
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, h.changes.Load())
	require.Zero(t, h.cache.cleared.Load())
}

func TestDetector_SameStampTwiceDoesNothing(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond, nil)

	h.tick(t, stampA)
	h.tick(t, stampA)
	h.tick(t, stampA)

	require.Equal(t, Idle, h.det.State())
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, h.changes.Load())
	require.Zero(t, h.cache.cleared.Load())
	require.Zero(t, h.src.invalidated.Load())
}

func TestDetector_BurstCoalescesIntoOneCommit(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	h := newHarness(t, 80*time.Millisecond, m)

	h.tick(t, stampA)
	h.tick(t, stampB)
	require.Equal(t, Debouncing, h.det.State())
	h.tick(t, stampC)
	h.tick(t, stampC)
	h.tick(t, stampD)

	require.Eventually(t, func() bool { return h.changes.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, stampD, h.det.Baseline())
	require.Equal(t, Idle, h.det.State())
	require.EqualValues(t, 1, h.cache.cleared.Load())
	require.EqualValues(t, 1, h.src.invalidated.Load())

	time.Sleep(200 * time.Millisecond)
	require.EqualValues(t, 1, h.changes.Load(), "superseded debounce timers must not fire")
	require.Equal(t, 1.0, testutil.ToFloat64(m.UpdateBroadcasts))
	require.Equal(t, 3.0, testutil.ToFloat64(m.StampChanges))
}

func TestDetector_ChangeAfterCommitStartsNewCycle(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond, nil)

	h.tick(t, stampA)
	h.tick(t, stampB)
	require.Eventually(t, func() bool { return h.changes.Load() == 1 }, time.Second, 5*time.Millisecond)

	h.tick(t, stampB)
	h.tick(t, stampC)
	require.Eventually(t, func() bool { return h.changes.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, stampC, h.det.Baseline())
}

func TestDetector_RevertWithinWindowIsNotBroadcast(t *testing.T) {
	h := newHarness(t, 30*time.Millisecond, nil)

	h.tick(t, stampA)
	h.tick(t, stampB)
	h.tick(t, stampA)

	require.Eventually(t, func() bool { return h.det.State() == Idle }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, h.changes.Load())
	require.Equal(t, stampA, h.det.Baseline())
}

func TestDetector_UnavailableStampKeepsState(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond, nil)
	errStamp := errors.New("last-updated stamp not found")

	h.src.set("", errStamp)
	require.True(t, h.det.Tick(context.Background()))
	require.Equal(t, Uninitialized, h.det.State())

	h.tick(t, stampA)
	h.src.set("", errStamp)
	require.True(t, h.det.Tick(context.Background()))
	require.Equal(t, Idle, h.det.State())
	require.Equal(t, stampA, h.det.Baseline())
	require.Zero(t, h.changes.Load())
}

func TestDetector_OverlappingTickIsDropped(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := newHarness(t, 10*time.Millisecond, m)
	h.src.mu.Lock()
	h.src.stamp = stampA
	h.src.block = make(chan struct{})
	h.src.entered = make(chan struct{}, 1)
	h.src.mu.Unlock()

	done := make(chan bool)
	go func() { done <- h.det.Tick(context.Background()) }()
	<-h.src.entered

	require.False(t, h.det.Tick(context.Background()))
	require.Equal(t, 1.0, testutil.ToFloat64(m.DroppedPollTicks))

	close(h.src.block)
	require.True(t, <-done)
	require.Equal(t, Idle, h.det.State())
}

func TestDetector_RunStopsOnCancel(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond, nil)
	h.src.set(stampA, nil)
	h.det.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.det.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return h.det.Baseline() == stampA }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
