package board

import (
	"errors"

	"github.com/radieske/bch-prediction-board/internal/prediction-board/backend"
)

var (
	ErrUnknownMatch    = errors.New("unknown match")
	ErrUnknownOutcome  = errors.New("unknown outcome for match")
	ErrNoMatchSelected = errors.New("no match selected")
)

// State da seleção: Empty -> MatchChosen -> MatchAndOutcomeChosen
type State int

const (
	StateEmpty State = iota
	StateMatchChosen
	StateMatchAndOutcomeChosen
)

func (s State) String() string {
	switch s {
	case StateMatchChosen:
		return "match_chosen"
	case StateMatchAndOutcomeChosen:
		return "match_and_outcome_chosen"
	}
	return "empty"
}

// OutcomeChoice é o snapshot persistido de um outcome, com o id dentro da partida.
type OutcomeChoice struct {
	ID string `json:"outcome_id"`
	backend.Outcome
}

// Selection é a escolha em andamento do usuário. Valor imutável: as
// transições devolvem uma nova Selection.
type Selection struct {
	Match   *backend.Match
	Outcome *OutcomeChoice
}

func (s Selection) State() State {
	switch {
	case s.Match == nil:
		return StateEmpty
	case s.Outcome == nil:
		return StateMatchChosen
	}
	return StateMatchAndOutcomeChosen
}

// WithMatch escolhe m e sempre descarta o outcome anterior, mesmo que m
// seja a partida já escolhida.
func (s Selection) WithMatch(m backend.Match) Selection {
	return Selection{Match: &m}
}

// WithOutcome escolhe o outcome id da partida selecionada.
func (s Selection) WithOutcome(id string) (Selection, error) {
	if s.Match == nil {
		return s, ErrNoMatchSelected
	}
	o, ok := s.Match.BettingOutcomes[id]
	if !ok {
		return s, ErrUnknownOutcome
	}
	return Selection{Match: s.Match, Outcome: &OutcomeChoice{ID: id, Outcome: o}}, nil
}

func (s Selection) WithoutOutcome() Selection {
	return Selection{Match: s.Match}
}

// Address devolve o endereço de pagamento do outcome escolhido ("" se nenhum).
func (s Selection) Address() string {
	if s.Outcome == nil {
		return ""
	}
	return s.Outcome.BCHAddress
}

// consistent informa se o outcome pertence à partida escolhida.
func (s Selection) consistent() bool {
	if s.Outcome == nil {
		return true
	}
	if s.Match == nil {
		return false
	}
	_, ok := s.Match.BettingOutcomes[s.Outcome.ID]
	return ok
}
