package observability

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CasinoMetrics groups the collectors exported by the settlement service.
type CasinoMetrics struct {
	wagers       *prometheus.CounterVec
	volume       *prometheus.CounterVec
	payouts      *prometheus.CounterVec
	jackpots     *prometheus.CounterVec
	referral     *prometheus.CounterVec
	errors       *prometheus.CounterVec
	rounds       *prometheus.CounterVec
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	throttles    *prometheus.CounterVec
	vaultBalance *prometheus.GaugeVec
}

var (
	casinoOnce     sync.Once
	casinoRegistry *CasinoMetrics
)

// Casino returns the lazily-initialised casino registry. Collectors are
// registered against the default prometheus registerer.
func Casino() *CasinoMetrics {
	casinoOnce.Do(func() {
		casinoRegistry = newCasinoMetrics()
		casinoRegistry.register(prometheus.DefaultRegisterer)
	})
	return casinoRegistry
}

func newCasinoMetrics() *CasinoMetrics {
	counter := func(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wager",
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}
	return &CasinoMetrics{
		wagers:   counter("casino", "wagers_total", "Settled wagers segmented by game and outcome.", "game", "outcome"),
		volume:   counter("casino", "volume_total", "Staked volume in base units per game.", "game"),
		payouts:  counter("casino", "payouts_total", "Paid out amounts in base units per game.", "game"),
		jackpots: counter("casino", "jackpot_hits_total", "Jackpot hits per game.", "game"),
		referral: counter("referral", "accrued_total", "Referral rewards accrued per game.", "game"),
		errors:   counter("casino", "errors_total", "Rejected operations segmented by operation and error kind.", "operation", "kind"),
		rounds:   counter("casino", "round_transitions_total", "Crash round status transitions.", "game", "status"),
		requests: counter("http", "requests_total", "HTTP requests segmented by route and outcome.", "route", "outcome"),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wager",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for HTTP handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
		throttles: counter("http", "throttles_total", "Requests rejected by throttling policies.", "reason"),
		vaultBalance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wager",
			Subsystem: "house",
			Name:      "vault_balance",
			Help:      "Last observed vault balance per game.",
		}, []string{"game"}),
	}
}

func (m *CasinoMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.wagers,
		m.volume,
		m.payouts,
		m.jackpots,
		m.referral,
		m.errors,
		m.rounds,
		m.requests,
		m.latency,
		m.throttles,
		m.vaultBalance,
	)
}

// RecordSettlement books one settled wager.
func (m *CasinoMetrics) RecordSettlement(game string, win bool, stake, payout, referralAccrual uint64, jackpotHit bool) {
	if m == nil {
		return
	}
	game = label(game)
	outcome := "loss"
	if win {
		outcome = "win"
	}
	m.wagers.WithLabelValues(game, outcome).Inc()
	m.volume.WithLabelValues(game).Add(float64(stake))
	if payout > 0 {
		m.payouts.WithLabelValues(game).Add(float64(payout))
	}
	if referralAccrual > 0 {
		m.referral.WithLabelValues(game).Add(float64(referralAccrual))
	}
	if jackpotHit {
		m.jackpots.WithLabelValues(game).Inc()
	}
}

// RecordError counts a rejected operation by its error kind.
func (m *CasinoMetrics) RecordError(operation, kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(label(operation), label(kind)).Inc()
}

// RecordRound counts a crash round entering status.
func (m *CasinoMetrics) RecordRound(game, status string) {
	if m == nil {
		return
	}
	m.rounds.WithLabelValues(label(game), label(status)).Inc()
}

// SetVaultBalance publishes the vault balance for game.
func (m *CasinoMetrics) SetVaultBalance(game string, balance uint64) {
	if m == nil {
		return
	}
	m.vaultBalance.WithLabelValues(label(game)).Set(float64(balance))
}

// ObserveHTTP records the outcome of a request. status is the code that was
// written to the client.
func (m *CasinoMetrics) ObserveHTTP(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	route = label(route)
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(route, outcome).Inc()
	m.latency.WithLabelValues(route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordThrottle counts a request rejected for reason, e.g. "rate_limit".
func (m *CasinoMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if strings.TrimSpace(reason) == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

func label(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
