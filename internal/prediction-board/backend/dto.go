package backend

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Outcome representa um placar possível de uma partida, com o endereço de
// pagamento e o número de tickets já registrados.
type Outcome struct {
	Score      string `json:"score"`
	BetCount   int    `json:"bet_count"`
	BCHAddress string `json:"bch_address"`
}

// Match representa uma partida como o backend a serializa.
// BettingOutcomes: outcomeID -> Outcome
type Match struct {
	MatchID         ID                 `json:"match_id"`
	Team1           string             `json:"team1"`
	Team2           string             `json:"team2"`
	Team1LogoURL    string             `json:"team1_logo_url,omitempty"`
	Team2LogoURL    string             `json:"team2_logo_url,omitempty"`
	MatchDate       string             `json:"match_date"`
	BettingOutcomes map[string]Outcome `json:"betting_outcomes"`
}

// OutcomeIDs retorna os ids dos outcomes em ordem estável
// (numérica quando os ids são números).
func (m Match) OutcomeIDs() []string {
	ids := make([]string, 0, len(m.BettingOutcomes))
	for id := range m.BettingOutcomes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Title ex: "Flamengo vs Palmeiras"
func (m Match) Title() string { return fmt.Sprintf("%s vs %s", m.Team1, m.Team2) }

const placeholderLogo = "https://placehold.co/48x48/000000/FFFFFF?text="

// LogoURLs retorna os logos dos dois times, com placeholder pela inicial
// quando o backend não envia a URL.
func (m Match) LogoURLs() (string, string) {
	return logoOrPlaceholder(m.Team1LogoURL, m.Team1), logoOrPlaceholder(m.Team2LogoURL, m.Team2)
}

func logoOrPlaceholder(logo, team string) string {
	if logo != "" {
		return logo
	}
	initial := ""
	for _, r := range team {
		initial = string(r)
		break
	}
	return placeholderLogo + url.QueryEscape(initial)
}

// ExchangeRate é a cotação BCH/USD observada; só a última importa.
type ExchangeRate struct {
	Rate         float64
	Timestamp    time.Time // zero quando o backend envia algo não parseável
	RawTimestamp string
}

type csrfResponse struct {
	CSRFToken string `json:"csrfToken"`
}

type rateResponse struct {
	Rate       *Float `json:"rate"`
	BCHUSDRate *Float `json:"bch_usd_rate"` // versão antiga do endpoint
	Timestamp  string `json:"timestamp"`
}

// SimulateRequest é o corpo de POST /api/simulate-prediction/
type SimulateRequest struct {
	MatchID        string `json:"match_id"`
	ScoreOutcomeID string `json:"score_outcome_id"`
}

// SimulationResult é a resposta de sucesso da simulação.
type SimulationResult struct {
	Message    string `json:"message"`
	NumTickets int    `json:"num_tickets"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ParseTimestamp aceita RFC 3339 com ou sem fração; devolve zero se falhar.
func ParseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999Z07:00"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}
