package tui

import (
	"testing"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/radieske/bch-prediction-board/internal/prediction-board/backend"
	"github.com/radieske/bch-prediction-board/internal/prediction-board/board"
	"github.com/radieske/bch-prediction-board/internal/prediction-board/ratefeed"
)

func sampleMatch() backend.Match {
	return backend.Match{
		MatchID:   "7",
		Team1:     "Flamengo",
		Team2:     "Palmeiras",
		MatchDate: "2025-01-05T20:00:00Z",
		BettingOutcomes: map[string]backend.Outcome{
			"1": {Score: "1-0", BetCount: 3, BCHAddress: "qqaddr"},
			"2": {Score: "2-1", BetCount: 0, BCHAddress: "qraddr"},
		},
	}
}

func TestRenderRate(t *testing.T) {
	out := renderRate(ratefeed.Display{Price: ratefeed.PriceLoading})
	assert.Contains(t, out, "1 BCH = Loading...")

	out = renderRate(ratefeed.Display{Price: "250.12", LastUpdated: "10:00:00"})
	assert.Contains(t, out, "1 BCH = $250.12")
	assert.Contains(t, out, "Last updated: 10:00:00")

	out = renderRate(ratefeed.Display{Price: ratefeed.PriceError, Err: ratefeed.ErrInitialRate})
	assert.Contains(t, out, "1 BCH = Error")
	assert.Contains(t, out, ratefeed.ErrInitialRate)
}

func TestScreen_RenderPaymentPanel(t *testing.T) {
	m := sampleMatch()
	sel, err := board.Selection{}.WithMatch(m).WithOutcome("2")
	assert.NoError(t, err)

	amount := board.RequiredAmount(decimal.NewFromInt(1), 250.12)
	s := Screen{
		Rate:       ratefeed.Display{Price: "250.12"},
		Matches:    []backend.Match{m},
		Selection:  sel,
		Stake:      decimal.NewFromInt(1),
		Amount:     amount,
		PaymentURI: board.PaymentURI(sel.Address(), amount),
		QRImageURL: "https://qr.example/x",
		SimStatus:  "Error: Betting closed",
		Location:   time.UTC,
	}
	out := s.Render()

	assert.Contains(t, out, "> Flamengo vs Palmeiras  (05 Jan 2025 20:00)")
	assert.Contains(t, out, "Outcome: 2-1")
	assert.Contains(t, out, "Send:    0.00399808 BCH (= $1.00)")
	assert.Contains(t, out, "2 tickets: 0.00799616 BCH")
	assert.Contains(t, out, "URI:     qraddr?amount=0.00399808")
	assert.Contains(t, out, "Error: Betting closed")
}

func TestScreen_RenderStates(t *testing.T) {
	m := sampleMatch()
	s := Screen{Rate: ratefeed.Display{Price: ratefeed.PriceLoading}, Location: time.UTC}
	assert.Contains(t, s.Render(), "No matches available.")
	assert.Contains(t, s.Render(), "Select a match to start.")

	s.Matches = []backend.Match{m}
	s.Selection = board.Selection{}.WithMatch(m)
	assert.Contains(t, s.Render(), "Select a score outcome.")

	s.Selection, _ = s.Selection.WithOutcome("1")
	out := s.Render()
	assert.Contains(t, out, "Send:    Loading... BCH")
	assert.Contains(t, out, "Waiting for exchange rate...")
	assert.NotContains(t, out, "URI:")
}

func TestMenuOptions(t *testing.T) {
	values := func(opts []huh.Option[action]) []action {
		out := make([]action, 0, len(opts))
		for _, o := range opts {
			out = append(out, o.Value)
		}
		return out
	}

	assert.Equal(t, []action{actRefresh, actQuit}, values(menuOptions(board.Selection{}, "", false)))

	m := sampleMatch()
	sel := board.Selection{}.WithMatch(m)
	assert.Equal(t,
		[]action{actPickMatch, actPickOutcome, actSimulate, actClear, actRefresh, actQuit},
		values(menuOptions(sel, "", true)))

	sel, _ = sel.WithOutcome("1")
	assert.Equal(t,
		[]action{actPickMatch, actPickOutcome, actCopy, actQR, actSimulate, actClearOutcome, actClear, actRefresh, actQuit},
		values(menuOptions(sel, "qqaddr?amount=0.004", true)))
}

func TestOutcomesOf(t *testing.T) {
	got := outcomesOf(sampleMatch())
	assert.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "1-0  (3 bets)", outcomeLabel(got[0]))
}
