package board

import "github.com/prometheus/client_golang/prometheus"

// Metrics do board
type Metrics struct {
	Simulations *prometheus.CounterVec // result: success | rejected | network | no_token
	Copies      *prometheus.CounterVec // result: ok | failed
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "board_simulations_total",
			Help: "Previsões simuladas enviadas, por resultado",
		}, []string{"result"}),
		Copies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "board_clipboard_copies_total",
			Help: "Cópias da URI de pagamento, por resultado",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Simulations, m.Copies)
	}
	return m
}
