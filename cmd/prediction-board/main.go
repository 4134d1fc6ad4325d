package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/bch-prediction-board/internal/prediction-board/backend"
	"github.com/radieske/bch-prediction-board/internal/prediction-board/board"
	"github.com/radieske/bch-prediction-board/internal/prediction-board/ratefeed"
	"github.com/radieske/bch-prediction-board/internal/prediction-board/store"
	"github.com/radieske/bch-prediction-board/internal/prediction-board/tui"
	"github.com/radieske/bch-prediction-board/internal/shared/bch"
	"github.com/radieske/bch-prediction-board/internal/shared/config"
	"github.com/radieske/bch-prediction-board/internal/shared/logger"
	"github.com/radieske/bch-prediction-board/internal/shared/metrics"
)

func main() {
	// carrega config
	cfg := config.Load()

	// logger vai para arquivo para não sujar o terminal
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogFile)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service",
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.Env),
		zap.String("backend", cfg.BackendURL),
	)

	if err := run(cfg, log); err != nil {
		log.Error("prediction board failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	log.Info("prediction board stopped")
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stake, err := decimal.NewFromString(cfg.TicketValueUSD)
	if err != nil {
		return fmt.Errorf("invalid TICKET_VALUE_USD %q: %w", cfg.TicketValueUSD, err)
	}

	// persistência da seleção
	st, closer, err := store.Open(ctx, store.Options{
		Kind:        cfg.SelectionStore,
		BoltPath:    cfg.SelectionBoltPath,
		Profile:     cfg.SelectionProfile,
		RedisAddr:   cfg.RedisAddr,
		PostgresDSN: cfg.PostgresDSN,
	})
	if err != nil {
		return fmt.Errorf("open selection store: %w", err)
	}
	defer closer.Close()
	log.Info("selection store ready", zap.String("kind", cfg.SelectionStore), zap.String("profile", cfg.SelectionProfile))

	reg := prometheus.NewRegistry()
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, reg, nil, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	client := backend.New(cfg.BackendURL, cfg.HTTPTimeout)
	client.SimulatePath = cfg.SimulatePath

	feed := ratefeed.New(client, ratefeed.Options{
		WSURL:     cfg.BackendWSURL + backend.PathRateStream,
		Reconnect: cfg.RateWSReconnect,
		Metrics:   ratefeed.NewMetrics(reg),
	}, log)

	b := board.New(client, st, board.SystemClipboard{Terminal: os.Stdout}, board.Options{
		Stake:   stake,
		Network: bch.NetworkParams(cfg.BCHNetwork),
		Metrics: board.NewMetrics(reg),
	}, log)

	// board aceita cotação antes de qualquer busca; o feed só empurra
	// a cotação pelo callback do board
	b.MarkActive(ctx)
	defer b.Deactivate()
	sub := feed.Subscribe(b.OnRate)
	defer sub.Unsubscribe()

	// cotação, partidas e token CSRF seguem independentes
	feedCtx, cancelFeed := context.WithCancel(ctx)
	g := new(errgroup.Group)
	g.Go(func() error { return feed.Run(feedCtx) })
	g.Go(func() error {
		b.FetchInitial(feedCtx)
		return nil
	})

	app := &tui.App{Board: b, Feed: feed, Log: log}
	runErr := app.Run(ctx)

	cancelFeed()
	if err := g.Wait(); err != nil {
		log.Warn("rate feed stopped with error", zap.Error(err))
	}
	return runErr
}
