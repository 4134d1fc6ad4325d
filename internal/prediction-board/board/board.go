package board

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gcash/bchd/chaincfg"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/bch-prediction-board/internal/prediction-board/backend"
	"github.com/radieske/bch-prediction-board/internal/prediction-board/store"
	"github.com/radieske/bch-prediction-board/internal/shared/bch"
)

// Mensagens de status da cópia
const (
	CopySuccess = "Payment URI copied!"
	CopyFailed  = "Failed to copy!"
)

// ErrNotReady: ação depende de uma URI de pagamento que ainda não existe.
var ErrNotReady = errors.New("payment uri not ready")

// API é a parte do backend usada pelo board.
type API interface {
	Matches(ctx context.Context) ([]backend.Match, error)
	CSRFToken(ctx context.Context) (string, error)
	SimulatePrediction(ctx context.Context, csrfToken, matchID, outcomeID string) (backend.SimulationResult, error)
}

// Options do board; zero values usam os defaults.
type Options struct {
	Stake         decimal.Decimal // USD por ticket, default 1.00
	Network       *chaincfg.Params
	CopyStatusFor time.Duration // default 2s
	SimStatusFor  time.Duration // default 5s
	Metrics       *Metrics
}

// Board mantém o catálogo de partidas, a seleção persistida, a cotação vinda
// do feed e o formulário de simulação.
type Board struct {
	api   API
	store store.Store
	clip  Clipboard
	opts  Options
	log   *zap.Logger

	mu         sync.Mutex
	active     bool
	matches    []backend.Match
	sel        Selection
	rate       float64
	csrf       string
	simMatch   string
	simOutcome string

	copyStatus Transient
	simStatus  Transient
}

func New(api API, st store.Store, clip Clipboard, opts Options, log *zap.Logger) *Board {
	if opts.Stake.IsZero() {
		opts.Stake = decimal.NewFromInt(1)
	}
	if opts.Network == nil {
		opts.Network = &chaincfg.MainNetParams
	}
	if opts.CopyStatusFor <= 0 {
		opts.CopyStatusFor = 2 * time.Second
	}
	if opts.SimStatusFor <= 0 {
		opts.SimStatusFor = 5 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	return &Board{api: api, store: st, clip: clip, opts: opts, log: log}
}

// Activate restaura a seleção persistida e busca partidas e token CSRF em
// paralelo. Falhas são logadas e deixam o estado anterior.
func (b *Board) Activate(ctx context.Context) {
	b.MarkActive(ctx)
	b.FetchInitial(ctx)
}

// MarkActive liga o board sem tocar na rede: a partir daqui OnRate é aceito
// e a seleção persistida já está carregada. Não bloqueia nas buscas.
func (b *Board) MarkActive(ctx context.Context) {
	b.mu.Lock()
	b.active = true
	b.mu.Unlock()
	b.copyStatus.Resume()
	b.simStatus.Resume()

	b.loadSelection(ctx)
}

// FetchInitial busca partidas e token CSRF de forma independente e espera
// os dois terminarem.
func (b *Board) FetchInitial(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		if err := b.RefreshMatches(ctx); err != nil {
			b.log.Error("error fetching initial match data from backend", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		b.refreshToken(ctx)
		return nil
	})
	_ = g.Wait()
}

// Deactivate faz com que respostas tardias e callbacks virem no-op.
func (b *Board) Deactivate() {
	b.mu.Lock()
	b.active = false
	b.mu.Unlock()
	b.copyStatus.Stop()
	b.simStatus.Stop()
}

// OnRate recebe a cotação do feed.
func (b *Board) OnRate(rate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return
	}
	b.rate = rate
	b.log.Debug("board received live rate update", zap.Float64("rate", rate))
}

// RefreshMatches substitui a coleção inteira pela resposta do backend.
func (b *Board) RefreshMatches(ctx context.Context) error {
	matches, err := b.api.Matches(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		b.matches = matches
		b.log.Info("fetched matches", zap.Int("count", len(matches)))
	}
	return nil
}

func (b *Board) refreshToken(ctx context.Context) {
	tok, err := b.api.CSRFToken(ctx)
	if err != nil {
		b.log.Error("failed to fetch CSRF token", zap.Error(err))
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		b.csrf = tok
	}
}

func (b *Board) loadSelection(ctx context.Context) {
	var (
		sel   Selection
		m     backend.Match
		o     OutcomeChoice
		clean = true
	)
	ok, err := store.LoadJSON(ctx, b.store, store.KeySelectedMatch, &m)
	if err != nil {
		b.log.Error("failed to parse selectedMatch from storage", zap.Error(err))
		clean = false
	} else if ok {
		sel.Match = &m
	}
	ok, err = store.LoadJSON(ctx, b.store, store.KeySelectedOutcome, &o)
	if err != nil {
		b.log.Error("failed to parse selectedOutcome from storage", zap.Error(err))
		clean = false
	} else if ok {
		sel.Outcome = &o
	}
	if !sel.consistent() {
		b.log.Warn("stored outcome does not belong to stored match, dropping it")
		sel = sel.WithoutOutcome()
		clean = false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sel = sel
	if !clean {
		b.persistLocked(ctx)
	}
}

// persistLocked espelha a seleção atual no store: grava o que existe e apaga
// o que foi limpo. Falha de storage é logada e não desfaz a mudança.
func (b *Board) persistLocked(ctx context.Context) {
	if err := store.SaveJSON(ctx, b.store, store.KeySelectedMatch, b.sel.Match); err != nil {
		b.log.Error("failed to persist selectedMatch", zap.Error(err))
	}
	if err := store.SaveJSON(ctx, b.store, store.KeySelectedOutcome, b.sel.Outcome); err != nil {
		b.log.Error("failed to persist selectedOutcome", zap.Error(err))
	}
}

func (b *Board) findMatchLocked(id string) (backend.Match, bool) {
	for _, m := range b.matches {
		if m.MatchID.String() == id {
			return m, true
		}
	}
	return backend.Match{}, false
}

// Matches devolve a coleção atual.
func (b *Board) Matches() []backend.Match {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.Match(nil), b.matches...)
}

// Selection devolve a seleção atual.
func (b *Board) Selection() Selection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sel
}

// SelectMatch escolhe a partida id da coleção e descarta o outcome.
func (b *Board) SelectMatch(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.findMatchLocked(id)
	if !ok {
		return ErrUnknownMatch
	}
	b.sel = b.sel.WithMatch(m)
	b.persistLocked(ctx)
	b.log.Info("selected match", zap.String("match_id", id))
	return nil
}

// SelectOutcome escolhe um outcome da partida selecionada.
func (b *Board) SelectOutcome(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	sel, err := b.sel.WithOutcome(id)
	if err != nil {
		return err
	}
	b.sel = sel
	b.persistLocked(ctx)
	b.log.Info("selected outcome", zap.String("outcome_id", id), zap.String("score", sel.Outcome.Score))
	return nil
}

// ClearOutcome volta para MatchChosen.
func (b *Board) ClearOutcome(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sel = b.sel.WithoutOutcome()
	b.persistLocked(ctx)
}

// Clear limpa partida e outcome.
func (b *Board) Clear(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sel = Selection{}
	b.persistLocked(ctx)
	b.log.Info("selection cleared")
}

// Stake é o valor de um ticket em USD.
func (b *Board) Stake() decimal.Decimal { return b.opts.Stake }

// Rate é a última cotação recebida (0 = desconhecida).
func (b *Board) Rate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rate
}

// RequiredAmount é o valor em BCH de um ticket pela cotação atual.
func (b *Board) RequiredAmount() Amount {
	b.mu.Lock()
	defer b.mu.Unlock()
	return RequiredAmount(b.opts.Stake, b.rate)
}

// PaymentURI da seleção atual, ou "" quando ainda não pode ser montada.
func (b *Board) PaymentURI() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return PaymentURI(b.sel.Address(), RequiredAmount(b.opts.Stake, b.rate))
}

// QRImageURL da URI atual, ou "".
func (b *Board) QRImageURL() string { return QRImageURL(b.PaymentURI()) }

// QRText renderiza a URI atual como QR em texto para o terminal.
func (b *Board) QRText() (string, error) {
	uri := b.PaymentURI()
	if uri == "" {
		return "", ErrNotReady
	}
	q, err := qrcode.New(uri, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}

// AddressWarning devolve um aviso quando o endereço do outcome não parece
// um endereço BCH da rede configurada. Não bloqueia o pagamento.
func (b *Board) AddressWarning() string {
	addr := b.Selection().Address()
	if addr == "" {
		return ""
	}
	if err := bch.ValidateAddress(addr, b.opts.Network); err != nil {
		b.log.Warn("outcome address failed validation", zap.String("address", addr), zap.Error(err))
		return "Address does not look like a valid BCH address for " + b.opts.Network.Name
	}
	return ""
}

// CopyPaymentURI copia a URI exata para o clipboard e publica o status por
// CopyStatusFor.
func (b *Board) CopyPaymentURI() error {
	uri := b.PaymentURI()
	if uri == "" {
		return ErrNotReady
	}
	if err := b.clip.WriteText(uri); err != nil {
		b.log.Error("failed to copy text", zap.Error(err))
		b.copyStatus.Set(CopyFailed, b.opts.CopyStatusFor)
		b.opts.Metrics.Copies.WithLabelValues("failed").Inc()
		return err
	}
	b.copyStatus.Set(CopySuccess, b.opts.CopyStatusFor)
	b.opts.Metrics.Copies.WithLabelValues("ok").Inc()
	return nil
}

// CopyStatus é a mensagem transitória da última cópia.
func (b *Board) CopyStatus() string { return b.copyStatus.Get() }
