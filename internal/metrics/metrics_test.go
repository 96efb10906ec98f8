package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordFetch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordFetch("ok")
	m.RecordFetch("retry")
	m.RecordFetch("failed")

	require.Equal(t, 1.0, testutil.ToFloat64(m.SourceFetches.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SourceFetchErrors))
}

func TestMetrics_RecordNotification(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordNotification(true)
	m.RecordNotification(true)
	m.RecordNotification(false)

	require.Equal(t, 2.0, testutil.ToFloat64(m.NotificationsSent))
	require.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSkipped))
}

func TestMetrics_Gauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetPendingTimers(5)
	m.RecordDeliveryError("permanent")
	m.RecordDeactivation()

	require.Equal(t, 5.0, testutil.ToFloat64(m.PendingTimers))
	require.Equal(t, 1.0, testutil.ToFloat64(m.DeliveryErrors.WithLabelValues("permanent")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ChatsDeactivated))
}

// A nil *Metrics is used by components constructed without metrics.
func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordFetch("ok")
	m.RecordStampChange()
	m.RecordBroadcast()
	m.RecordDroppedTick()
	m.RecordNotification(true)
	m.RecordDeliveryError("transient")
	m.RecordDeactivation()
	m.SetPendingTimers(1)
}
