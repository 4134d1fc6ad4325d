package ratefeed

import "github.com/prometheus/client_golang/prometheus"

// Metrics do feed de cotação
type Metrics struct {
	Updates *prometheus.CounterVec // source: http | ws
	Dropped prometheus.Counter
	Current prometheus.Gauge
}

// NewMetrics cria os coletores e registra em reg quando reg != nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "board_rate_updates_total",
			Help: "Atualizações de cotação BCH/USD aplicadas",
		}, []string{"source"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "board_rate_messages_dropped_total",
			Help: "Mensagens WS de cotação descartadas por formato inválido",
		}),
		Current: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "board_rate_current",
			Help: "Última cotação BCH/USD recebida",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Updates, m.Dropped, m.Current)
	}
	return m
}
