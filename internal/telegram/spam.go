package telegram

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	spamWindow = 30 * time.Second
	spamLimit  = 10 // messages per window
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// spamGuard drops users that send more than spamLimit messages per spamWindow.
type spamGuard struct {
	mu       sync.Mutex
	visitors map[int64]*visitor
	now      func() time.Time
}

func newSpamGuard() *spamGuard {
	return &spamGuard{
		visitors: make(map[int64]*visitor),
		now:      time.Now,
	}
}

// Allow reports whether userID may be served now.
func (g *spamGuard) Allow(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	v, ok := g.visitors[userID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(spamWindow/spamLimit), spamLimit)}
		g.visitors[userID] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// cleanup forgets users idle for longer than a window.
func (g *spamGuard) cleanup() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-spamWindow)
	n := 0
	for id, v := range g.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(g.visitors, id)
			n++
		}
	}
	return n
}

func (g *spamGuard) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.cleanup()
		}
	}
}
