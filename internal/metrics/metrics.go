// Package metrics exposes termegle's runtime counters as Prometheus
// gauges and counters, grounded on the client_golang usage pattern shared
// by the rest of the example pack's infra-adjacent services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the narrow interface the chat package depends on, so it
// never needs to import prometheus directly and tests can substitute a
// no-op.
type Recorder interface {
	SetOnline(n int)
	SetWaiting(n int)
	IncPairing()
	IncEviction()
	IncRateLimited()
	IncLine()
}

// Prometheus implements Recorder with real collectors registered against
// its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	online      prometheus.Gauge
	waiting     prometheus.Gauge
	pairings    prometheus.Counter
	evictions   prometheus.Counter
	rateLimited prometheus.Counter
	lines       prometheus.Counter
}

// New creates a Prometheus recorder with its own registry (not the global
// default, so tests can create many without collisions).
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		online: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "termegle",
			Name:      "sessions_online",
			Help:      "Number of currently connected sessions.",
		}),
		waiting: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "termegle",
			Name:      "sessions_waiting",
			Help:      "Number of sessions currently waiting for a partner.",
		}),
		pairings: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "termegle",
			Name:      "pairings_total",
			Help:      "Total number of pairings formed.",
		}),
		evictions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "termegle",
			Name:      "inactivity_evictions_total",
			Help:      "Total number of sessions evicted for inactivity.",
		}),
		rateLimited: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "termegle",
			Name:      "rate_limited_total",
			Help:      "Total number of chat input lines rejected by the per-session line limiter.",
		}),
		lines: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "termegle",
			Name:      "chat_lines_total",
			Help:      "Total number of chat input lines processed.",
		}),
	}
	return p
}

func (p *Prometheus) SetOnline(n int)    { p.online.Set(float64(n)) }
func (p *Prometheus) SetWaiting(n int)   { p.waiting.Set(float64(n)) }
func (p *Prometheus) IncPairing()        { p.pairings.Inc() }
func (p *Prometheus) IncEviction()       { p.evictions.Inc() }
func (p *Prometheus) IncRateLimited()    { p.rateLimited.Inc() }
func (p *Prometheus) IncLine()           { p.lines.Inc() }

// Handler returns the HTTP handler serving this recorder's registry.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Nop is a Recorder that does nothing, used in tests that don't care about
// metrics.
type Nop struct{}

func (Nop) SetOnline(int)   {}
func (Nop) SetWaiting(int)  {}
func (Nop) IncPairing()     {}
func (Nop) IncEviction()    {}
func (Nop) IncRateLimited() {}
func (Nop) IncLine()        {}
