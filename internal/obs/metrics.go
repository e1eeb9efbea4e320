// Package obs exposes the simulator's Prometheus metrics. A nil *Metrics is
// valid and records nothing.
package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketsim"

// Metrics holds the collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ticks            prometheus.Counter
	tickDuration     prometheus.Histogram
	overruns         prometheus.Counter
	trades           *prometheus.CounterVec
	volume           *prometheus.CounterVec
	restingOrders    prometheus.Gauge
	commands         *prometheus.CounterVec
	rejectedCommands *prometheus.CounterVec
	dropped          prometheus.Counter
	subscribers      prometheus.Gauge
	scenario         prometheus.Gauge
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "ticks_total",
			Help:      "Ticks executed, paused ticks included.",
		}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent inside one tick, sleep excluded.",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .02, .05},
		}),
		overruns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "tick_overruns_total",
			Help:      "Ticks that finished after their deadline.",
		}),
		trades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "book",
			Name:      "trades_total",
			Help:      "Executions by aggressing actor.",
		}, []string{"actor"}),
		volume: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "book",
			Name:      "traded_volume_total",
			Help:      "Shares traded by aggressing actor.",
		}, []string{"actor"}),
		restingOrders: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "book",
			Name:      "resting_orders",
			Help:      "Live orders in the active order table.",
		}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "received_total",
			Help:      "Accepted commands by verb.",
		}, []string{"verb"}),
		rejectedCommands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "rejected_total",
			Help:      "Commands that failed to parse.",
		}, []string{"reason"}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "dropped_total",
			Help:      "Messages dropped because a subscriber queue was full.",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "subscribers",
			Help:      "Connected stream subscribers.",
		}),
		scenario: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "scenario",
			Help:      "Active scenario code (0 normal, 1 pump and dump, 2 short squeeze).",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTick records one tick and how long it took.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// IncOverrun records a missed tick deadline.
func (m *Metrics) IncOverrun() {
	if m == nil {
		return
	}
	m.overruns.Inc()
}

// ObserveFills records trades produced by one order of actor.
func (m *Metrics) ObserveFills(actor string, trades int, qty int64) {
	if m == nil || trades == 0 {
		return
	}
	m.trades.WithLabelValues(actor).Add(float64(trades))
	m.volume.WithLabelValues(actor).Add(float64(qty))
}

// SetRestingOrders sets the live order gauge.
func (m *Metrics) SetRestingOrders(n int) {
	if m == nil {
		return
	}
	m.restingOrders.Set(float64(n))
}

// IncCommand counts an accepted command.
func (m *Metrics) IncCommand(verb string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(verb).Inc()
}

// IncRejected counts a command that failed to parse.
func (m *Metrics) IncRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedCommands.WithLabelValues(reason).Inc()
}

// IncDropped counts a broadcast message lost to a full subscriber queue.
func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

// SetSubscribers sets the connected subscriber gauge.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

// SetScenario records the active scenario code.
func (m *Metrics) SetScenario(code int) {
	if m == nil {
		return
	}
	m.scenario.Set(float64(code))
}
