package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the bot. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Upstream schedule page
	SourceFetches     *prometheus.CounterVec
	SourceFetchErrors prometheus.Counter

	// Change detection
	StampChanges     prometheus.Counter
	UpdateBroadcasts prometheus.Counter
	DroppedPollTicks prometheus.Counter

	// Notifications
	NotificationsSent    prometheus.Counter
	NotificationsSkipped prometheus.Counter
	DeliveryErrors       *prometheus.CounterVec
	ChatsDeactivated     prometheus.Counter
	PendingTimers        prometheus.Gauge
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SourceFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_bot_source_fetches_total",
			Help: "Upstream page requests by result (ok, retry, failed)",
		}, []string{"result"}),
		SourceFetchErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "schedule_bot_source_fetch_errors_total",
			Help: "Upstream fetches that failed after all retries",
		}),
		StampChanges: f.NewCounter(prometheus.CounterOpts{
			Name: "schedule_bot_stamp_changes_total",
			Help: "Observed changes of the upstream last-updated stamp",
		}),
		UpdateBroadcasts: f.NewCounter(prometheus.CounterOpts{
			Name: "schedule_bot_update_broadcasts_total",
			Help: "Debounced update cycles that invalidated the cache and rescheduled chats",
		}),
		DroppedPollTicks: f.NewCounter(prometheus.CounterOpts{
			Name: "schedule_bot_dropped_poll_ticks_total",
			Help: "Poll ticks skipped because the previous one was still running",
		}),
		NotificationsSent: f.NewCounter(prometheus.CounterOpts{
			Name: "schedule_bot_notifications_sent_total",
			Help: "Schedule notifications delivered",
		}),
		NotificationsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "schedule_bot_notifications_skipped_total",
			Help: "Checks that found tomorrow's schedule unchanged",
		}),
		DeliveryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_bot_delivery_errors_total",
			Help: "Delivery failures by kind (permanent, transient)",
		}, []string{"kind"}),
		ChatsDeactivated: f.NewCounter(prometheus.CounterOpts{
			Name: "schedule_bot_chats_deactivated_total",
			Help: "Chats whose notifications were turned off as unreachable",
		}),
		PendingTimers: f.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_bot_pending_timers",
			Help: "Armed per-chat delivery timers",
		}),
	}
}

// RecordFetch counts one upstream request attempt.
func (m *Metrics) RecordFetch(result string) {
	if m == nil {
		return
	}
	m.SourceFetches.WithLabelValues(result).Inc()
	if result == "failed" {
		m.SourceFetchErrors.Inc()
	}
}

// RecordStampChange counts an observed stamp change.
func (m *Metrics) RecordStampChange() {
	if m == nil {
		return
	}
	m.StampChanges.Inc()
}

// RecordBroadcast counts a committed update cycle.
func (m *Metrics) RecordBroadcast() {
	if m == nil {
		return
	}
	m.UpdateBroadcasts.Inc()
}

// RecordDroppedTick counts a skipped overlapping poll tick.
func (m *Metrics) RecordDroppedTick() {
	if m == nil {
		return
	}
	m.DroppedPollTicks.Inc()
}

// RecordNotification counts a check-and-send outcome.
func (m *Metrics) RecordNotification(sent bool) {
	if m == nil {
		return
	}
	if sent {
		m.NotificationsSent.Inc()
		return
	}
	m.NotificationsSkipped.Inc()
}

// RecordDeliveryError counts a delivery failure of the given kind.
func (m *Metrics) RecordDeliveryError(kind string) {
	if m == nil {
		return
	}
	m.DeliveryErrors.WithLabelValues(kind).Inc()
}

// RecordDeactivation counts a chat switched off as unreachable.
func (m *Metrics) RecordDeactivation() {
	if m == nil {
		return
	}
	m.ChatsDeactivated.Inc()
}

// SetPendingTimers reports the number of armed delivery timers.
func (m *Metrics) SetPendingTimers(n int) {
	if m == nil {
		return
	}
	m.PendingTimers.Set(float64(n))
}
