package events

// RateUpdate é a mensagem enviada em /ws/bch_rate/.
// Rate vai como string decimal com duas casas.
type RateUpdate struct {
	Rate      string `json:"rate"`
	Timestamp string `json:"timestamp"`
}
