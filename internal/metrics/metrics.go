// Package metrics exports game activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zappabad/moodmarket/internal/portfolio"
	"github.com/zappabad/moodmarket/internal/session"
	"github.com/zappabad/moodmarket/internal/trader"
)

const namespace = "moodmarket"

// Metrics holds every collector. It implements session.Notifier and
// session.OrderObserver.
type Metrics struct {
	reg *prometheus.Registry

	Updates        *prometheus.CounterVec
	Shocks         *prometheus.CounterVec
	Orders         *prometheus.CounterVec
	Signals        *prometheus.CounterVec
	PortfolioValue prometheus.Gauge
	Cash           prometheus.Gauge
	TotalPL        prometheus.Gauge
	DayIndex       prometheus.Gauge
	Prices         *prometheus.GaugeVec
	Paused         prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Updates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Session updates by reason.",
		}, []string{"reason"}),
		Shocks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shocks_total",
			Help:      "Shock events by kind.",
		}, []string{"kind"}),
		Orders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Order attempts by side and result.",
		}, []string{"side", "result"}),
		Signals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Producer signals by kind and outcome.",
		}, []string{"kind", "outcome"}),
		PortfolioValue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_value",
			Help:      "Cash plus market value of holdings.",
		}),
		Cash: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cash",
			Help:      "Cash balance.",
		}),
		TotalPL: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_pl",
			Help:      "Realized plus unrealized profit and loss.",
		}),
		DayIndex: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "day_index",
			Help:      "Simulated trading day.",
		}),
		Prices: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "price",
			Help:      "Live price by symbol.",
		}, []string{"symbol"}),
		Paused: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "paused",
			Help:      "1 while the market is paused.",
		}),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// OnMarketChanged implements session.Notifier.
func (m *Metrics) OnMarketChanged(u session.Update) {
	m.Updates.WithLabelValues(string(u.Reason)).Inc()
	if u.Event != nil {
		m.Shocks.WithLabelValues(string(u.Event.Kind)).Inc()
	}

	snap := u.Snapshot
	m.PortfolioValue.Set(snap.Value.InexactFloat64())
	m.Cash.Set(snap.Cash.InexactFloat64())
	m.TotalPL.Set(snap.TotalPL.InexactFloat64())
	m.DayIndex.Set(float64(snap.DayIndex))
	for sym, st := range snap.Market.BySymbol {
		m.Prices.WithLabelValues(string(sym)).Set(st.Price)
	}
	if snap.Paused {
		m.Paused.Set(1)
	} else {
		m.Paused.Set(0)
	}
}

// ObserveOrder implements session.OrderObserver.
func (m *Metrics) ObserveOrder(side portfolio.Side, err error) {
	result := "filled"
	if err != nil {
		result = "rejected"
	}
	m.Orders.WithLabelValues(side.String(), result).Inc()
}

// ObserveSignal counts a handled producer signal.
func (m *Metrics) ObserveSignal(ev trader.TraderEvent) {
	m.Signals.WithLabelValues(string(ev.Signal.Kind), ev.Type.String()).Inc()
}
