package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcileMetrics counts the outcome of each webhook reconciliation step.
type ReconcileMetrics struct {
	steps *prometheus.CounterVec
}

// NewReconcileMetrics registers the reconciliation counters on the provided
// registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	steps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_reconcile_steps",
		Help: "Webhook reconciliation steps by outcome.",
	}, []string{"step", "outcome"})
	reg.MustRegister(steps)
	return &ReconcileMetrics{steps: steps}
}

// IncStep records one execution of the named step with the given outcome.
func (r *ReconcileMetrics) IncStep(step, outcome string) {
	if r == nil || r.steps == nil {
		return
	}
	r.steps.WithLabelValues(normalizeLabel(step), normalizeLabel(outcome)).Inc()
}
