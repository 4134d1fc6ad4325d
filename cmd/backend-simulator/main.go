package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/bch-prediction-board/internal/backend-simulator/catalog"
	httpapi "github.com/radieske/bch-prediction-board/internal/backend-simulator/http"
	"github.com/radieske/bch-prediction-board/internal/backend-simulator/producer"
	"github.com/radieske/bch-prediction-board/internal/backend-simulator/ws"
	"github.com/radieske/bch-prediction-board/internal/shared/bch"
	"github.com/radieske/bch-prediction-board/internal/shared/config"
	"github.com/radieske/bch-prediction-board/internal/shared/kafka"
	"github.com/radieske/bch-prediction-board/internal/shared/logger"
	"github.com/radieske/bch-prediction-board/internal/shared/metrics"
	"github.com/radieske/bch-prediction-board/pkg/contracts/events"
)

func main() {
	// carrega config
	cfg := config.Load()

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogFile)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stake, err := decimal.NewFromString(cfg.TicketValueUSD)
	if err != nil {
		log.Fatal("invalid TICKET_VALUE_USD", zap.String("value", cfg.TicketValueUSD), zap.Error(err))
	}
	net := bch.NetworkParams(cfg.BCHNetwork)

	cat, err := catalog.New(catalog.DefaultFixtures, catalog.DefaultScores, net, time.Now())
	if err != nil {
		log.Fatal("failed to build match catalog", zap.Error(err))
	}
	rates := catalog.NewRateWalk(250, time.Now().UnixNano())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rateGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulator_bch_usd_rate",
		Help: "Cotação BCH/USD simulada atual",
	})
	reg.MustRegister(rateGauge)

	// publicação opcional em Kafka
	var publ producer.Publisher = producer.Noop{}
	if cfg.KafkaBrokers != "" {
		writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPredictionSimulated)
		defer writer.Close()
		publ = producer.NewKafkaPublisher(writer, cfg.TopicPredictionSimulated)
		log.Info("kafka writer ready", zap.String("topic", cfg.TopicPredictionSimulated))
	}

	hub := ws.NewHub(func(*http.Request) bool { return true }, ws.NewMetrics(reg), log)
	hub.Snapshot = func() (events.RateUpdate, bool) { return rates.Update(), true }

	api := httpapi.NewServer(log, cat, rates, hub, httpapi.NewTokenStore(24*time.Hour), publ, httpapi.Options{
		Stake:   stake,
		Network: net,
		Metrics: httpapi.NewMetrics(reg),
	})

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, reg, nil, log)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("backend simulator (public) running",
			zap.String("addr", srv.Addr),
			zap.String("network", net.Name),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Gera e envia a cotação simulada para todos os clientes a cada tick
		hub.Pump(gctx, cfg.RateTick, func() events.RateUpdate {
			u := rates.NextUpdate()
			r, _ := rates.Current()
			rateGauge.Set(r)
			return u
		})
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.CloseAll()
		_ = metricsSrv.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("backend simulator failed", zap.Error(err))
	}
	log.Info("backend simulator stopped")
}
