package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics tracks credit ledger writes and reconciliation drift.
type LedgerMetrics struct {
	movements *prometheus.CounterVec
	conflicts prometheus.Counter
	rejected  *prometheus.CounterVec
	drift     prometheus.Gauge
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "movements_applied_total",
		Help:      "Credit movements appended, by movement type.",
	}, []string{"type"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "balance_conflicts_total",
		Help:      "Balance compare-and-swap updates lost to a concurrent writer.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "movements_rejected_total",
		Help:      "Credit movements refused, by error code.",
	}, []string{"code"})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "accounts_out_of_balance",
		Help:      "Accounts whose balance did not match their movements at the last audit.",
	})
	reg.MustRegister(movements, conflicts, rejected, drift)
	return &LedgerMetrics{
		movements: movements,
		conflicts: conflicts,
		rejected:  rejected,
		drift:     drift,
	}
}

func (m *LedgerMetrics) IncMovement(movementType string) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(movementType)).Inc()
}

func (m *LedgerMetrics) IncConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *LedgerMetrics) IncRejected(code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(code)).Inc()
}

// SetOutOfBalance records the number of drifting accounts found by the last audit.
func (m *LedgerMetrics) SetOutOfBalance(count int) {
	if m == nil || m.drift == nil {
		return
	}
	m.drift.Set(float64(count))
}
