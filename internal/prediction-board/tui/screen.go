package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/radieske/bch-prediction-board/internal/prediction-board/backend"
	"github.com/radieske/bch-prediction-board/internal/prediction-board/board"
	"github.com/radieske/bch-prediction-board/internal/prediction-board/ratefeed"
)

const title = "BCH PREDICTION BOARD"

// RateView é o que a tela lê do feed de cotação.
type RateView interface {
	Snapshot() ratefeed.Display
}

// Screen é uma foto do estado do board e do feed, pronta para renderizar.
type Screen struct {
	Rate           ratefeed.Display
	Matches        []backend.Match
	Selection      board.Selection
	Stake          decimal.Decimal
	Amount         board.Amount
	PaymentURI     string
	QRImageURL     string
	AddressWarning string
	CopyStatus     string
	SimStatus      string
	Location       *time.Location
}

// Capture lê feed e board num único ponto no tempo.
func Capture(feed RateView, b *board.Board) Screen {
	return Screen{
		Rate:           feed.Snapshot(),
		Matches:        b.Matches(),
		Selection:      b.Selection(),
		Stake:          b.Stake(),
		Amount:         b.RequiredAmount(),
		PaymentURI:     b.PaymentURI(),
		QRImageURL:     b.QRImageURL(),
		AddressWarning: b.AddressWarning(),
		CopyStatus:     b.CopyStatus(),
		SimStatus:      b.SimStatus(),
		Location:       time.Local,
	}
}

func (s Screen) Render() string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n")
	sb.WriteString(renderRate(s.Rate))
	sb.WriteString("\n")

	sb.WriteString(sectionStyle.Render(fmt.Sprintf("MATCHES (%d)", len(s.Matches))))
	sb.WriteString("\n")
	if len(s.Matches) == 0 {
		sb.WriteString(mutedStyle.Render("No matches available."))
		sb.WriteString("\n")
	}
	for _, m := range s.Matches {
		marker := "  "
		if s.Selection.Match != nil && s.Selection.Match.MatchID == m.MatchID {
			marker = "> "
		}
		sb.WriteString(marker + matchLabel(m, s.loc()) + "\n")
	}

	sb.WriteString(sectionStyle.Render("PAYMENT"))
	sb.WriteString("\n")
	sb.WriteString(panelStyle.Render(s.renderPayment()))
	sb.WriteString("\n")

	if s.CopyStatus != "" {
		sb.WriteString(statusStyle(s.CopyStatus).Render(s.CopyStatus) + "\n")
	}
	if s.SimStatus != "" {
		sb.WriteString(statusStyle(s.SimStatus).Render(s.SimStatus) + "\n")
	}
	return sb.String()
}

func (s Screen) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s Screen) renderPayment() string {
	sel := s.Selection
	switch sel.State() {
	case board.StateEmpty:
		return "Select a match to start."
	case board.StateMatchChosen:
		return fmt.Sprintf("Match: %s\nSelect a score outcome.", sel.Match.Title())
	}

	lines := []string{
		"Match:   " + sel.Match.Title(),
		"Outcome: " + sel.Outcome.Score,
		fmt.Sprintf("Send:    %s BCH (= $%s)", s.Amount, s.Stake.StringFixed(2)),
		fmt.Sprintf("2 tickets: %s BCH", s.Amount.Times(2)),
		"Address: " + sel.Address(),
	}
	if s.PaymentURI == "" {
		lines = append(lines, mutedStyle.Render("Waiting for exchange rate..."))
	} else {
		lines = append(lines, "URI:     "+s.PaymentURI, "QR:      "+s.QRImageURL)
	}
	if s.AddressWarning != "" {
		lines = append(lines, errorStyle.Render(s.AddressWarning))
	}
	return strings.Join(lines, "\n")
}

// renderRate monta o readout "1 BCH = $X", verde enquanto pisca.
func renderRate(d ratefeed.Display) string {
	price := d.Price
	if price != ratefeed.PriceLoading && price != ratefeed.PriceError {
		price = "$" + price
	}
	style := rateStyle
	if d.Flash {
		style = flashStyle
	}
	out := style.Render("1 BCH = " + price)
	if d.LastUpdated != "" {
		out += mutedStyle.Render("  Last updated: " + d.LastUpdated)
	}
	if d.Err != "" {
		out += "\n" + errorStyle.Render(d.Err)
	}
	return out
}

func matchLabel(m backend.Match, loc *time.Location) string {
	when := m.MatchDate
	if ts := backend.ParseTimestamp(m.MatchDate); !ts.IsZero() {
		when = ts.In(loc).Format("02 Jan 2006 15:04")
	}
	return fmt.Sprintf("%s  (%s)", m.Title(), when)
}

func outcomeLabel(o board.OutcomeChoice) string {
	return fmt.Sprintf("%s  (%d bets)", o.Score, o.BetCount)
}

// statusStyle: verde para sucesso, vermelho para o resto.
func statusStyle(msg string) lipgloss.Style {
	if strings.HasPrefix(msg, "Success") || msg == board.CopySuccess {
		return okStyle
	}
	if msg == board.SimSending {
		return mutedStyle
	}
	return errorStyle
}
