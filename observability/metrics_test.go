package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCasinoMetricsRecordSettlement(t *testing.T) {
	m := newCasinoMetrics()
	reg := prometheus.NewRegistry()
	m.register(reg)

	m.RecordSettlement("Slots", true, 100, 5_000, 0, true)
	m.RecordSettlement("slots", false, 50, 0, 5, false)

	require.Equal(t, float64(1), testutil.ToFloat64(m.wagers.WithLabelValues("slots", "win")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.wagers.WithLabelValues("slots", "loss")))
	require.Equal(t, float64(150), testutil.ToFloat64(m.volume.WithLabelValues("slots")))
	require.Equal(t, float64(5_000), testutil.ToFloat64(m.payouts.WithLabelValues("slots")))
	require.Equal(t, float64(5), testutil.ToFloat64(m.referral.WithLabelValues("slots")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.jackpots.WithLabelValues("slots")))
}

func TestCasinoMetricsHTTPAndErrors(t *testing.T) {
	m := newCasinoMetrics()
	reg := prometheus.NewRegistry()
	m.register(reg)

	m.ObserveHTTP("/v1/play", 200, 5*time.Millisecond)
	m.ObserveHTTP("/v1/play", 409, time.Millisecond)
	m.RecordThrottle("")
	m.RecordError("play", "")
	m.RecordRound("crash", "active")
	m.SetVaultBalance("dice", 42)

	require.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("/v1/play", "error")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.throttles.WithLabelValues("unspecified")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("play", "unknown")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.rounds.WithLabelValues("crash", "active")))
	require.Equal(t, float64(42), testutil.ToFloat64(m.vaultBalance.WithLabelValues("dice")))
	require.Equal(t, 2, testutil.CollectAndCount(m.latency))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *CasinoMetrics
	m.RecordSettlement("dice", true, 1, 1, 0, false)
	m.ObserveHTTP("x", 200, 0)
	m.RecordError("x", "y")
}

func TestCasinoIsSingleton(t *testing.T) {
	require.Same(t, Casino(), Casino())
}
