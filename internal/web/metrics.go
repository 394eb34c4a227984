package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the dashboard's counters on a private registry so
// multiple servers can coexist in one process.
type metrics struct {
	registry       *prometheus.Registry
	logins         prometheus.Counter
	loginFailures  prometheus.Counter
	saves          *prometheus.CounterVec
	saveConflicts  prometheus.Counter
	notifyFailures prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{registry: prometheus.NewRegistry()}
	m.logins = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataops_logins_total",
		Help: "Successful dashboard logins.",
	})
	m.loginFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataops_login_failures_total",
		Help: "Rejected dashboard login attempts.",
	})
	m.saves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataops_saves_total",
		Help: "Committed dataset saves.",
	}, []string{"dataset"})
	m.saveConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataops_save_conflicts_total",
		Help: "Saves rejected because the object changed underneath the editor.",
	})
	m.notifyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataops_notify_failures_total",
		Help: "Change notifications that could not be published.",
	})
	m.registry.MustRegister(m.logins, m.loginFailures, m.saves, m.saveConflicts, m.notifyFailures)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
