package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gcash/bchd/chaincfg"

	"github.com/radieske/bch-prediction-board/internal/shared/bch"
)

var (
	ErrNotFound       = errors.New("match not found")
	ErrUnknownOutcome = errors.New("invalid score outcome for this match")
)

// Outcome é um placar possível com o endereço que recebe os pagamentos
type Outcome struct {
	Score      string `json:"score"`
	BetCount   int    `json:"bet_count"`
	BCHAddress string `json:"bch_address"`
}

// Match como servido em /api/matches/
type Match struct {
	MatchID         int                `json:"match_id"`
	Team1           string             `json:"team1"`
	Team2           string             `json:"team2"`
	Team1LogoURL    string             `json:"team1_logo_url,omitempty"`
	Team2LogoURL    string             `json:"team2_logo_url,omitempty"`
	MatchDate       string             `json:"match_date"`
	BettingOutcomes map[string]Outcome `json:"betting_outcomes"`
}

// Title ex: "Flamengo vs Palmeiras"
func (m Match) Title() string { return m.Team1 + " vs " + m.Team2 }

// Fixture é uma partida do catálogo inicial
type Fixture struct {
	Team1, Team2 string
	KickoffIn    time.Duration
}

// DefaultFixtures: partidas simuladas do catálogo
var DefaultFixtures = []Fixture{
	{Team1: "Flamengo", Team2: "Palmeiras", KickoffIn: 26 * time.Hour},
	{Team1: "Grêmio", Team2: "Internacional", KickoffIn: 50 * time.Hour},
	{Team1: "Corinthians", Team2: "Santos", KickoffIn: 74 * time.Hour},
	{Team1: "São Paulo", Team2: "Vasco", KickoffIn: 98 * time.Hour},
}

// DefaultScores: placares oferecidos em cada partida, na ordem dos ids
var DefaultScores = []string{"0-0", "1-0", "0-1", "1-1", "2-0", "0-2", "2-1", "1-2", "2-2", "3-1"}

// Catalog guarda as partidas em memória e conta os tickets por outcome
type Catalog struct {
	mu      sync.RWMutex
	matches map[int]*Match
	order   []int
}

// New monta o catálogo a partir das fixtures. Cada outcome recebe um
// endereço cashaddr P2PKH derivado de forma determinística do par
// partida/placar, na rede net.
func New(fixtures []Fixture, scores []string, net *chaincfg.Params, now time.Time) (*Catalog, error) {
	c := &Catalog{matches: make(map[int]*Match, len(fixtures))}
	for i, f := range fixtures {
		id := i + 1
		m := &Match{
			MatchID:         id,
			Team1:           f.Team1,
			Team2:           f.Team2,
			MatchDate:       now.Add(f.KickoffIn).UTC().Truncate(time.Hour).Format(time.RFC3339),
			BettingOutcomes: make(map[string]Outcome, len(scores)),
		}
		for j, score := range scores {
			addr, err := outcomeAddress(id, score, net)
			if err != nil {
				return nil, fmt.Errorf("address for match %d score %s: %w", id, score, err)
			}
			m.BettingOutcomes[strconv.Itoa(j+1)] = Outcome{Score: score, BCHAddress: addr}
		}
		c.matches[id] = m
		c.order = append(c.order, id)
	}
	return c, nil
}

func outcomeAddress(matchID int, score string, net *chaincfg.Params) (string, error) {
	return bch.AddressFromSeed([]byte(fmt.Sprintf("prediction:%d:%s", matchID, score)), net)
}

// List devolve cópias das partidas em ordem de id
func (c *Catalog) List() []Match {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Match, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.matches[id].clone())
	}
	return out
}

// Record soma tickets ao outcome e devolve a partida e o outcome atualizados
func (c *Catalog) Record(matchID, outcomeID string, tickets int) (Match, Outcome, error) {
	id, err := strconv.Atoi(matchID)
	if err != nil {
		return Match{}, Outcome{}, ErrNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.matches[id]
	if !ok {
		return Match{}, Outcome{}, ErrNotFound
	}
	o, ok := m.BettingOutcomes[outcomeID]
	if !ok {
		return Match{}, Outcome{}, ErrUnknownOutcome
	}
	o.BetCount += tickets
	m.BettingOutcomes[outcomeID] = o
	return m.clone(), o, nil
}

func (m *Match) clone() Match {
	cp := *m
	cp.BettingOutcomes = make(map[string]Outcome, len(m.BettingOutcomes))
	for k, v := range m.BettingOutcomes {
		cp.BettingOutcomes[k] = v
	}
	return cp
}
