package ratefeed

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/bch-prediction-board/internal/prediction-board/backend"
	"github.com/radieske/bch-prediction-board/internal/shared/observe"
)

// Textos exibidos no readout
const (
	PriceLoading   = "Loading..."
	PriceError     = "Error"
	ErrInitialRate = "Could not fetch initial price."
	ErrStream      = "WebSocket connection error."
	InvalidDate    = "Invalid Date"
)

const (
	sourceHTTP = "http"
	sourceWS   = "ws"
)

var ErrAlreadyStarted = errors.New("rate feed already started")

// RateFetcher é a parte do cliente do backend usada no fetch inicial.
type RateFetcher interface {
	Rate(ctx context.Context) (backend.ExchangeRate, error)
}

// Display é o estado exibível do feed: preço formatado, horário local da
// última observação, erro e o flash de atualização.
type Display struct {
	Price       string
	LastUpdated string
	Err         string
	Flash       bool
	Rate        float64 // 0 enquanto nenhuma cotação chegou
}

// Options ajusta o feed; zero values usam os defaults.
type Options struct {
	WSURL          string // URL completa do stream, ex: ws://localhost:8000/ws/bch_rate/
	Reconnect      bool   // desligado: o stream não reconecta após queda
	ReconnectDelay time.Duration
	FlashFor       time.Duration
	Location       *time.Location
	Dialer         *websocket.Dialer
	Metrics        *Metrics
}

// Feed mantém a última cotação BCH/USD (fetch HTTP inicial + stream WS) e
// notifica os assinantes a cada atualização aplicada.
type Feed struct {
	fetcher RateFetcher
	opts    Options
	log     *zap.Logger
	topic   *observe.Topic[float64]

	mu         sync.Mutex
	started    bool
	active     bool
	disp       Display
	flashTimer *time.Timer
}

func New(fetcher RateFetcher, opts Options, log *zap.Logger) *Feed {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 3 * time.Second
	}
	if opts.FlashFor <= 0 {
		opts.FlashFor = 500 * time.Millisecond
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	return &Feed{
		fetcher: fetcher,
		opts:    opts,
		log:     log,
		topic:   observe.NewTopic[float64](),
		disp:    Display{Price: PriceLoading},
	}
}

// Subscribe registra fn para receber cada nova cotação numérica.
func (f *Feed) Subscribe(fn func(rate float64)) *observe.Subscription[float64] {
	return f.topic.Subscribe(fn)
}

// Snapshot devolve uma cópia do estado exibível.
func (f *Feed) Snapshot() Display {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disp
}

// Run ativa o feed: dispara o fetch inicial e abre o stream, e bloqueia até
// ctx terminar. Depois que Run retorna nenhum assinante é chamado de novo.
// Um Feed só pode ser ativado uma vez.
func (f *Feed) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return ErrAlreadyStarted
	}
	f.started = true
	f.active = true
	f.mu.Unlock()
	defer f.deactivate()

	// o fetch inicial não é cancelado na desativação; o resultado tardio é ignorado
	go f.fetchInitial(context.WithoutCancel(ctx))

	f.stream(ctx)
	<-ctx.Done()
	return nil
}

func (f *Feed) deactivate() {
	f.mu.Lock()
	f.active = false
	if f.flashTimer != nil {
		f.flashTimer.Stop()
	}
	f.mu.Unlock()
	f.topic.Close()
	f.log.Debug("rate feed deactivated")
}

func (f *Feed) fetchInitial(ctx context.Context) {
	rate, err := f.fetcher.Rate(ctx)
	if err != nil {
		f.log.Error("error fetching initial BCH rate", zap.Error(err))
		f.mu.Lock()
		if f.active {
			f.disp.Price = PriceError
			f.disp.Err = ErrInitialRate
		}
		f.mu.Unlock()
		return
	}
	f.log.Info("fetched initial BCH rate via HTTP", zap.Float64("rate", rate.Rate))
	f.apply(rate.Rate, rate.Timestamp, sourceHTTP)
}

// apply sobrescreve a cotação atual sem checar ordem nem monotonicidade:
// a última escrita vence.
func (f *Feed) apply(rate float64, ts time.Time, source string) {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return
	}
	f.disp.Rate = rate
	f.disp.Price = strconv.FormatFloat(rate, 'f', 2, 64)
	if ts.IsZero() {
		f.disp.LastUpdated = InvalidDate
	} else {
		f.disp.LastUpdated = ts.In(f.opts.Location).Format("15:04:05")
	}
	if source == sourceWS {
		f.disp.Flash = true
		if f.flashTimer != nil {
			f.flashTimer.Stop()
		}
		f.flashTimer = time.AfterFunc(f.opts.FlashFor, f.clearFlash)
	}
	f.mu.Unlock()

	f.opts.Metrics.Updates.WithLabelValues(source).Inc()
	f.opts.Metrics.Current.Set(rate)
	f.topic.Publish(rate)
}

func (f *Feed) clearFlash() {
	f.mu.Lock()
	f.disp.Flash = false
	f.mu.Unlock()
}

func (f *Feed) setStreamError() {
	f.mu.Lock()
	if f.active {
		f.disp.Err = ErrStream
	}
	f.mu.Unlock()
}
