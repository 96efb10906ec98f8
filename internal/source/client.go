package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ykvlv/schedule-bot/internal/domain"
	"github.com/ykvlv/schedule-bot/internal/metrics"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	pageCharset      = "windows-1251"
	indexPage        = "hg.htm"

	// navigation scans at most this many weekdays
	maxScanDays = 14
)

// Config describes the upstream site and the retry policy.
type Config struct {
	BaseURL    string // e.g. https://dmitrov.politeh-mo.ru/rasp
	Timeout    time.Duration
	Retries    int // extra attempts after the first one
	RetryDelay time.Duration
	UserAgent  string
}

// ScheduleCache is the part of the schedule cache the client uses.
type ScheduleCache interface {
	Schedule(groupID string, date time.Time) (domain.Schedule, bool)
	SetSchedule(groupID string, date time.Time, s domain.Schedule)
}

// Client fetches and parses the school's schedule pages.
type Client struct {
	cfg       Config
	collector *colly.Collector
	parser    *Parser
	cache     ScheduleCache
	metrics   *metrics.Metrics
	log       *zap.Logger

	// Decoded pages, kept until InvalidateRaw.
	mu    sync.RWMutex
	raw   map[string][]byte
	group singleflight.Group
}

// NewClient builds a client. cache may be shared with other components.
func NewClient(cfg Config, parser *Parser, cache ScheduleCache, m *metrics.Metrics, log *zap.Logger) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(cfg.Timeout)

	return &Client{
		cfg:       cfg,
		collector: c,
		parser:    parser,
		cache:     cache,
		metrics:   m,
		log:       log.Named("source"),
		raw:       make(map[string][]byte),
	}
}

// GroupURL returns the schedule page of groupID.
func (c *Client) GroupURL(groupID string) string {
	return fmt.Sprintf("%s/cg%s.htm", c.cfg.BaseURL, groupID)
}

// IndexURL returns the page carrying the last-updated stamp.
func (c *Client) IndexURL() string {
	return c.cfg.BaseURL + "/" + indexPage
}

// Fetch returns the schedule of groupID for date. Cached schedules are served
// without touching the network.
func (c *Client) Fetch(ctx context.Context, groupID string, date time.Time) (domain.Schedule, error) {
	if s, ok := c.cache.Schedule(groupID, date); ok {
		return s, nil
	}

	page, err := c.page(ctx, c.GroupURL(groupID))
	if err != nil {
		return domain.Schedule{}, err
	}

	s := c.parser.Schedule(page, date)
	c.cache.SetSchedule(groupID, date, s)
	return s, nil
}

// LastUpdated fetches the index page and returns its "updated" stamp.
// The index is never served from the page memo.
func (c *Client) LastUpdated(ctx context.Context) (string, error) {
	page, err := c.fetch(ctx, c.IndexURL())
	if err != nil {
		return "", err
	}
	return c.parser.Stamp(page)
}

// Groups returns group code -> group id as listed on the index page.
func (c *Client) Groups(ctx context.Context) (map[string]string, error) {
	page, err := c.page(ctx, c.IndexURL())
	if err != nil {
		return nil, err
	}
	return c.parser.Groups(page), nil
}

// NextAvailableDay walks weekdays from `from` in the given direction
// (+1 or -1) and returns the first one with lessons. Fetch failures count as
// a day without lessons. When nothing is found `from` is returned.
func (c *Client) NextAvailableDay(ctx context.Context, groupID string, from time.Time, direction int) time.Time {
	if direction >= 0 {
		direction = 1
	} else {
		direction = -1
	}

	day := from
	for checked := 0; checked < maxScanDays; day = day.AddDate(0, 0, direction) {
		if ctx.Err() != nil {
			break
		}
		if domain.IsWeekend(day) {
			continue
		}
		checked++

		s, err := c.Fetch(ctx, groupID, day)
		if err != nil {
			c.log.Debug("day treated as empty",
				zap.String("group_id", groupID),
				zap.String("date", domain.FormatDate(day)),
				zap.Error(err),
			)
			continue
		}
		if !s.Empty() {
			return day
		}
	}
	return from
}

// InvalidateRaw forgets every memoized page.
func (c *Client) InvalidateRaw() {
	c.mu.Lock()
	n := len(c.raw)
	c.raw = make(map[string][]byte)
	c.mu.Unlock()

	c.log.Debug("page memo cleared", zap.Int("pages", n))
}

// page returns a memoized page, fetching it once for concurrent callers.
func (c *Client) page(ctx context.Context, url string) ([]byte, error) {
	c.mu.RLock()
	body, ok := c.raw[url]
	c.mu.RUnlock()
	if ok {
		return body, nil
	}

	v, err, _ := c.group.Do(url, func() (interface{}, error) {
		body, err := c.fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.raw[url] = body
		c.mu.Unlock()
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// fetch performs the GET with the fixed-delay retry policy.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	attempts := c.cfg.Retries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.get(url)
		if err == nil {
			c.metrics.RecordFetch("ok")
			return body, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		c.metrics.RecordFetch("retry")
		c.log.Warn("upstream request failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("delay", c.cfg.RetryDelay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			c.metrics.RecordFetch("failed")
			return nil, &FetchError{URL: url, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(c.cfg.RetryDelay):
		}
	}

	c.metrics.RecordFetch("failed")
	return nil, &FetchError{URL: url, Attempts: attempts, Err: lastErr}
}

// get issues a single request on a clone of the base collector, so callbacks
// of concurrent requests never see each other's responses.
func (c *Client) get(url string) ([]byte, error) {
	col := c.collector.Clone()

	var body []byte
	col.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")
		r.ResponseCharacterEncoding = pageCharset
	})
	col.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})

	if err := col.Visit(url); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}
