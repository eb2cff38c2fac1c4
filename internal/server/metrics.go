package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsRegistry struct {
	registry              *prometheus.Registry
	claimsTotal           *prometheus.CounterVec
	eligibilityRefreshes  *prometheus.CounterVec
	reconcileSweepsTotal  *prometheus.CounterVec
	reconcileRepairsTotal prometheus.Counter
}

func newMetricsRegistry() *metricsRegistry {
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airdrop_claims_total",
		Help: "Total number of claim attempts by outcome",
	}, []string{"status"})

	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airdrop_eligibility_refreshes_total",
		Help: "Total number of eligibility refresh transactions",
	}, []string{"status"})

	sweeps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airdrop_reconcile_sweeps_total",
		Help: "Reconciliation sweep runs by outcome",
	}, []string{"status"})

	repairs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "airdrop_reconcile_repairs_total",
		Help: "Mint records re-created by the reconciliation sweep",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(claims, refreshes, sweeps, repairs)

	return &metricsRegistry{
		registry:              r,
		claimsTotal:           claims,
		eligibilityRefreshes:  refreshes,
		reconcileSweepsTotal:  sweeps,
		reconcileRepairsTotal: repairs,
	}
}

func (m *metricsRegistry) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metricsRegistry) incClaim(status string) {
	m.claimsTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incRefresh(status string) {
	m.eligibilityRefreshes.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incSweep(status string) {
	m.reconcileSweepsTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) addRepairs(n int) {
	m.reconcileRepairsTotal.Add(float64(n))
}
