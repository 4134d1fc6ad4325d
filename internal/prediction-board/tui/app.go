package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"go.uber.org/zap"

	"github.com/radieske/bch-prediction-board/internal/prediction-board/backend"
	"github.com/radieske/bch-prediction-board/internal/prediction-board/board"
)

type action string

const (
	actPickMatch    action = "match"
	actPickOutcome  action = "outcome"
	actCopy         action = "copy"
	actQR           action = "qr"
	actSimulate     action = "simulate"
	actClearOutcome action = "clear-outcome"
	actClear        action = "clear"
	actRefresh      action = "refresh"
	actQuit         action = "quit"
)

// refreshEvery é o intervalo de redesenho; menor que o flash de 500 ms.
const refreshEvery = 250 * time.Millisecond

// step é o formulário ativo abaixo da tela.
type step int

const (
	stepMenu step = iota
	stepMatch
	stepOutcome
	stepSimMatch
	stepSimOutcome
	stepQR
)

type (
	tickMsg time.Time

	// actionDoneMsg chega quando uma ação de rede termina em background.
	actionDoneMsg struct {
		act action
		err error
	}
)

// App é o front-end de terminal do board. A tela é redesenhada a cada tick,
// então cotação, flash e mensagens temporárias mudam sem input do usuário.
type App struct {
	Board *board.Board
	Feed  RateView
	Log   *zap.Logger

	// Input e Output substituem stdin/stdout quando não nil.
	Input  io.Reader
	Output io.Writer
}

func (a *App) Run(ctx context.Context) error {
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if a.Input != nil {
		opts = append(opts, tea.WithInput(a.Input))
	}
	if a.Output != nil {
		opts = append(opts, tea.WithOutput(a.Output))
	}

	_, err := tea.NewProgram(newModel(ctx, a.Board, a.Feed, a.Log), opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

// model é o modelo bubbletea: a tela do board em cima e um formulário huh
// embutido embaixo.
type model struct {
	ctx   context.Context
	board *board.Board
	feed  RateView
	log   *zap.Logger

	step    step
	form    *huh.Form
	menuKey string
	act     action
	choice  string
	qr      string
}

var _ tea.Model = (*model)(nil)

func newModel(ctx context.Context, b *board.Board, feed RateView, log *zap.Logger) *model {
	if log == nil {
		log = zap.NewNop()
	}
	m := &model{ctx: ctx, board: b, feed: feed, log: log}
	m.toMenu()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(tick(), m.form.Init())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		// View relê feed e board; o tick só agenda o próximo redesenho
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.step != stepMenu {
				return m, m.toMenu()
			}
		}
		if m.step == stepQR {
			return m, m.toMenu()
		}

	case actionDoneMsg:
		if msg.err != nil {
			m.fail(msg.act, msg.err)
		}
		// as opções do menu dependem das partidas; só refaz se mudaram
		if m.step == stepMenu && m.menuKey != m.currentMenuKey() {
			return m, m.toMenu()
		}
		return m, nil
	}

	if m.form == nil {
		return m, nil
	}
	f, cmd := m.form.Update(msg)
	if form, ok := f.(*huh.Form); ok {
		m.form = form
	}
	switch m.form.State {
	case huh.StateCompleted:
		return m, tea.Batch(cmd, m.advance())
	case huh.StateAborted:
		if m.step == stepMenu {
			return m, tea.Quit
		}
		return m, m.toMenu()
	}
	return m, cmd
}

func (m *model) View() string {
	var sb strings.Builder
	if m.step == stepQR {
		sb.WriteString(headerStyle.Render(title))
		sb.WriteString("\n")
		sb.WriteString(m.qr)
		sb.WriteString("\n")
		sb.WriteString(m.board.PaymentURI())
		sb.WriteString("\n\n")
		sb.WriteString(mutedStyle.Render("Scan with a BCH wallet. Press any key to go back."))
		return sb.String()
	}

	sb.WriteString(Capture(m.feed, m.board).Render())
	sb.WriteString("\n")
	if m.form != nil {
		sb.WriteString(m.form.View())
	}
	return sb.String()
}

// advance trata o formulário que acabou de ser concluído.
func (m *model) advance() tea.Cmd {
	switch m.step {
	case stepMenu:
		return m.runAction(m.act)

	case stepMatch:
		if err := m.board.SelectMatch(m.ctx, m.choice); err != nil {
			m.fail(actPickMatch, err)
			return m.toMenu()
		}
		return m.toOutcome()

	case stepOutcome:
		if err := m.board.SelectOutcome(m.ctx, m.choice); err != nil {
			m.fail(actPickOutcome, err)
		}
		return m.toMenu()

	case stepSimMatch:
		if err := m.board.SetSimMatch(m.choice); err != nil {
			m.fail(actSimulate, err)
			return m.toMenu()
		}
		m.step = stepSimOutcome
		return m.pick("Simulate: select a score", outcomeOptions(m.board.SimOutcomes()))

	case stepSimOutcome:
		if err := m.board.SetSimOutcome(m.choice); err != nil {
			m.fail(actSimulate, err)
			return m.toMenu()
		}
		return tea.Batch(m.background(actSimulate, m.board.SubmitSimulation), m.toMenu())
	}
	return nil
}

func (m *model) runAction(act action) tea.Cmd {
	switch act {
	case actQuit:
		return tea.Quit

	case actPickMatch:
		if len(m.board.Matches()) == 0 {
			m.fail(act, board.ErrUnknownMatch)
			return m.toMenu()
		}
		m.step = stepMatch
		return m.pick("Select a match", m.matchOptions())

	case actPickOutcome:
		return m.toOutcome()

	case actCopy:
		if err := m.board.CopyPaymentURI(); err != nil {
			m.fail(act, err)
		}

	case actQR:
		qr, err := m.board.QRText()
		if err != nil {
			m.fail(act, err)
			break
		}
		m.qr = qr
		m.step = stepQR
		m.form = nil
		return nil

	case actSimulate:
		if len(m.board.Matches()) == 0 {
			m.fail(act, board.ErrUnknownMatch)
			break
		}
		m.step = stepSimMatch
		return m.pick("Simulate: select a match", m.matchOptions())

	case actClearOutcome:
		m.board.ClearOutcome(m.ctx)

	case actClear:
		m.board.Clear(m.ctx)

	case actRefresh:
		return tea.Batch(m.background(act, m.board.RefreshMatches), m.toMenu())
	}
	return m.toMenu()
}

// background roda fn fora do loop de eventos e devolve actionDoneMsg.
func (m *model) background(act action, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{act: act, err: fn(ctx)}
	}
}

func (m *model) fail(act action, err error) {
	m.log.Warn("tui action failed", zap.String("action", string(act)), zap.Error(err))
}

func (m *model) toMenu() tea.Cmd {
	m.step = stepMenu
	m.act = ""
	m.menuKey = m.currentMenuKey()
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[action]().
				Title("What next?").
				Options(m.currentMenu()...).
				Value(&m.act),
		),
	)
	return m.form.Init()
}

func (m *model) toOutcome() tea.Cmd {
	sel := m.board.Selection()
	if sel.Match == nil {
		m.fail(actPickOutcome, board.ErrNoMatchSelected)
		return m.toMenu()
	}
	m.step = stepOutcome
	return m.pick("Select the final score", outcomeOptions(outcomesOf(*sel.Match)))
}

func (m *model) pick(prompt string, opts []huh.Option[string]) tea.Cmd {
	if len(opts) == 0 {
		m.fail(actPickOutcome, board.ErrUnknownOutcome)
		return m.toMenu()
	}
	m.choice = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title(prompt).Options(opts...).Value(&m.choice),
		),
	)
	return m.form.Init()
}

func (m *model) currentMenu() []huh.Option[action] {
	return menuOptions(m.board.Selection(), m.board.PaymentURI(), len(m.board.Matches()) > 0)
}

func (m *model) currentMenuKey() string {
	opts := m.currentMenu()
	keys := make([]string, 0, len(opts))
	for _, o := range opts {
		keys = append(keys, string(o.Value))
	}
	return strings.Join(keys, ",")
}

func (m *model) matchOptions() []huh.Option[string] {
	matches := m.board.Matches()
	opts := make([]huh.Option[string], 0, len(matches))
	for _, match := range matches {
		opts = append(opts, huh.NewOption(matchLabel(match, time.Local), match.MatchID.String()))
	}
	return opts
}

// menuOptions lista só as ações possíveis no estado atual; copiar e QR
// exigem uma URI de pagamento.
func menuOptions(sel board.Selection, paymentURI string, hasMatches bool) []huh.Option[action] {
	var opts []huh.Option[action]
	if hasMatches {
		opts = append(opts, huh.NewOption("Choose match", actPickMatch))
	}
	if sel.State() != board.StateEmpty {
		opts = append(opts, huh.NewOption("Choose score outcome", actPickOutcome))
	}
	if paymentURI != "" {
		opts = append(opts,
			huh.NewOption("Copy payment URI", actCopy),
			huh.NewOption("Show QR code", actQR),
		)
	}
	if hasMatches {
		opts = append(opts, huh.NewOption("Simulate a prediction (test)", actSimulate))
	}
	if sel.State() == board.StateMatchAndOutcomeChosen {
		opts = append(opts, huh.NewOption("Clear outcome", actClearOutcome))
	}
	if sel.State() != board.StateEmpty {
		opts = append(opts, huh.NewOption("Clear selection", actClear))
	}
	return append(opts,
		huh.NewOption("Refresh", actRefresh),
		huh.NewOption("Quit", actQuit),
	)
}

func outcomeOptions(outcomes []board.OutcomeChoice) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(outcomes))
	for _, o := range outcomes {
		opts = append(opts, huh.NewOption(outcomeLabel(o), o.ID))
	}
	return opts
}

func outcomesOf(m backend.Match) []board.OutcomeChoice {
	out := make([]board.OutcomeChoice, 0, len(m.BettingOutcomes))
	for _, id := range m.OutcomeIDs() {
		out = append(out, board.OutcomeChoice{ID: id, Outcome: m.BettingOutcomes[id]})
	}
	return out
}
