package board

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/bch-prediction-board/internal/prediction-board/backend"
)

// Mensagens de status da simulação
const (
	SimSending     = "Sending simulated prediction..."
	SimNoToken     = "Error: CSRF token not available. Please refresh the page."
	SimNetworkErr  = "Network error or server unreachable."
	simGenericErr  = "Something went wrong."
	simSuccessFmt  = "Success: %s (Tickets: %d)"
	simErrorPrefix = "Error: "
)

var (
	ErrNoCSRFToken    = errors.New("csrf token not available")
	ErrIncompleteForm = errors.New("simulation needs a match and an outcome")
)

// SetSimMatch escolhe a partida do formulário de simulação e sempre zera o
// outcome do formulário. id vazio limpa a escolha.
func (b *Board) SetSimMatch(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id != "" {
		if _, ok := b.findMatchLocked(id); !ok {
			return ErrUnknownMatch
		}
	}
	b.simMatch = id
	b.simOutcome = ""
	return nil
}

// SetSimOutcome escolhe um outcome da partida do formulário.
func (b *Board) SetSimOutcome(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.simMatch == "" {
		return ErrNoMatchSelected
	}
	m, ok := b.findMatchLocked(b.simMatch)
	if !ok {
		return ErrUnknownMatch
	}
	if _, ok := m.BettingOutcomes[id]; !ok {
		return ErrUnknownOutcome
	}
	b.simOutcome = id
	return nil
}

// SimForm devolve a partida e o outcome escolhidos no formulário.
func (b *Board) SimForm() (matchID, outcomeID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.simMatch, b.simOutcome
}

// SimOutcomes lista só os outcomes da partida escolhida no formulário, pela
// coleção atual.
func (b *Board) SimOutcomes() []OutcomeChoice {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.simMatch == "" {
		return nil
	}
	m, ok := b.findMatchLocked(b.simMatch)
	if !ok {
		return nil
	}
	out := make([]OutcomeChoice, 0, len(m.BettingOutcomes))
	for _, id := range m.OutcomeIDs() {
		out = append(out, OutcomeChoice{ID: id, Outcome: m.BettingOutcomes[id]})
	}
	return out
}

// SimStatus é a mensagem transitória da simulação.
func (b *Board) SimStatus() string { return b.simStatus.Get() }

// SubmitSimulation envia a previsão de teste do formulário. Em sucesso
// recarrega as partidas para atualizar as contagens. O status final some
// depois de SimStatusFor.
func (b *Board) SubmitSimulation(ctx context.Context) error {
	b.mu.Lock()
	matchID, outcomeID, token := b.simMatch, b.simOutcome, b.csrf
	b.mu.Unlock()

	if matchID == "" || outcomeID == "" {
		return ErrIncompleteForm
	}

	b.simStatus.Set(SimSending, 0)
	if token == "" {
		b.simStatus.Set(SimNoToken, b.opts.SimStatusFor)
		b.opts.Metrics.Simulations.WithLabelValues("no_token").Inc()
		return ErrNoCSRFToken
	}

	res, err := b.api.SimulatePrediction(ctx, token, matchID, outcomeID)

	b.mu.Lock()
	active := b.active
	b.mu.Unlock()
	if !active {
		return err
	}

	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			msg := apiErr.Message
			if msg == "" {
				msg = simGenericErr
			}
			b.simStatus.Set(simErrorPrefix+msg, b.opts.SimStatusFor)
			b.opts.Metrics.Simulations.WithLabelValues("rejected").Inc()
			b.log.Warn("simulated prediction rejected", zap.Int("status", apiErr.Status), zap.String("error", apiErr.Message))
			return err
		}
		b.log.Error("error simulating prediction", zap.Error(err))
		b.simStatus.Set(SimNetworkErr, b.opts.SimStatusFor)
		b.opts.Metrics.Simulations.WithLabelValues("network").Inc()
		return err
	}

	b.simStatus.Set(fmt.Sprintf(simSuccessFmt, res.Message, res.NumTickets), b.opts.SimStatusFor)
	b.opts.Metrics.Simulations.WithLabelValues("success").Inc()
	b.log.Info("simulated prediction accepted",
		zap.String("match_id", matchID),
		zap.String("outcome_id", outcomeID),
		zap.Int("num_tickets", res.NumTickets),
	)

	if err := b.RefreshMatches(ctx); err != nil {
		b.log.Error("failed to refresh matches after simulation", zap.Error(err))
	}
	return nil
}
