package events

import "time"

// Evento publicado no tópico "prediction_simulated" quando o simulador
// aceita uma previsão de teste.
type PredictionSimulated struct {
	TicketID       string    `json:"ticket_id"`
	MatchID        string    `json:"match_id"`
	ScoreOutcomeID string    `json:"score_outcome_id"`
	Score          string    `json:"score"`
	BCHAddress     string    `json:"bch_address"`
	OriginAddress  string    `json:"origin_address"`
	AmountBCH      string    `json:"amount_bch"`
	NumTickets     int       `json:"num_tickets"`
	Ts             time.Time `json:"ts"`
}
