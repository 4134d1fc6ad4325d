package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/gcash/bchd/chaincfg"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/bch-prediction-board/internal/backend-simulator/catalog"
	"github.com/radieske/bch-prediction-board/internal/backend-simulator/producer"
	"github.com/radieske/bch-prediction-board/internal/shared/bch"
	"github.com/radieske/bch-prediction-board/pkg/contracts/events"
)

// Rotas do contrato do backend
const (
	PathCSRFToken      = "/api/csrf-token/"
	PathMatches        = "/api/matches/"
	PathRate           = "/api/bch-rate/"
	PathSimulate       = "/api/simulate-prediction/"
	PathSimulateLegacy = "/api/simulate-bet/"
	PathRateStream     = "/ws/bch_rate/"
)

// Mensagens de erro devolvidas em {"error": ...}
const (
	msgBadCSRF        = "CSRF token missing or incorrect."
	msgBadJSON        = "Invalid JSON."
	msgMissingFields  = "match_id and score_outcome_id are required."
	msgMatchNotFound  = "Match not found."
	msgInvalidOutcome = "Invalid score outcome for this match."
)

// Metrics da API do simulador
type Metrics struct {
	Simulations *prometheus.CounterVec // result: accepted | rejected
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simulator_predictions_total",
			Help: "Previsões simuladas recebidas, por resultado",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Simulations)
	}
	return m
}

type simulateRequest struct {
	MatchID        string `json:"match_id"`
	ScoreOutcomeID string `json:"score_outcome_id"`
}

type simulateResponse struct {
	Message    string `json:"message"`
	NumTickets int    `json:"num_tickets"`
}

type rateResponse struct {
	Rate      string `json:"rate"`
	Timestamp string `json:"timestamp"`
}

// Options da API; zero values usam os defaults
type Options struct {
	Stake   decimal.Decimal // USD por ticket
	Network *chaincfg.Params
	Metrics *Metrics
	Tickets func() int // tickets por simulação; default aleatório entre 1 e 3
}

// Server expõe o contrato HTTP/WS consumido pelo prediction board
type Server struct {
	log     *zap.Logger
	catalog *catalog.Catalog
	rates   *catalog.RateWalk
	hub     http.Handler
	csrf    *TokenStore
	publ    producer.Publisher
	opts    Options
}

func NewServer(log *zap.Logger, c *catalog.Catalog, rates *catalog.RateWalk, hub http.Handler, csrf *TokenStore, p producer.Publisher, opts Options) *Server {
	if opts.Stake.IsZero() {
		opts.Stake = decimal.NewFromInt(1)
	}
	if opts.Network == nil {
		opts.Network = &chaincfg.MainNetParams
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Tickets == nil {
		opts.Tickets = func() int { return rand.Intn(3) + 1 }
	}
	if p == nil {
		p = producer.Noop{}
	}
	return &Server{log: log, catalog: c, rates: rates, hub: hub, csrf: csrf, publ: p, opts: opts}
}

// Router retorna o roteador HTTP com os endpoints REST e o stream WS
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withCORS)
	r.Get(PathCSRFToken, s.csrfToken)
	r.Get(PathMatches, s.listMatches)
	r.Get(PathRate, s.currentRate)
	r.Post(PathSimulate, s.simulatePrediction)
	r.Post(PathSimulateLegacy, s.simulatePrediction)
	if s.hub != nil {
		r.Get(PathRateStream, s.hub.ServeHTTP)
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) csrfToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": s.csrf.Issue()})
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.List())
}

func (s *Server) currentRate(w http.ResponseWriter, r *http.Request) {
	u := s.rates.Update()
	writeJSON(w, http.StatusOK, rateResponse{Rate: u.Rate, Timestamp: u.Timestamp})
}

// simulatePrediction registra tickets num outcome como se um pagamento BCH
// tivesse chegado ao endereço dele
func (s *Server) simulatePrediction(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	if !s.csrf.Valid(r.Header.Get("X-CSRFToken")) {
		s.reject(w, http.StatusForbidden, msgBadCSRF)
		return
	}

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reject(w, http.StatusBadRequest, msgBadJSON)
		return
	}
	if req.MatchID == "" || req.ScoreOutcomeID == "" {
		s.reject(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	tickets := s.opts.Tickets()
	m, o, err := s.catalog.Record(req.MatchID, req.ScoreOutcomeID, tickets)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		s.reject(w, http.StatusNotFound, msgMatchNotFound)
		return
	case errors.Is(err, catalog.ErrUnknownOutcome):
		s.reject(w, http.StatusBadRequest, msgInvalidOutcome)
		return
	case err != nil:
		s.reject(w, http.StatusInternalServerError, err.Error())
		return
	}

	rate, _ := s.rates.Current()
	ev := events.PredictionSimulated{
		TicketID:       uuid.NewString(),
		MatchID:        req.MatchID,
		ScoreOutcomeID: req.ScoreOutcomeID,
		Score:          o.Score,
		BCHAddress:     o.BCHAddress,
		OriginAddress:  s.originAddress(),
		AmountBCH:      amountBCH(s.opts.Stake, tickets, rate),
		NumTickets:     tickets,
		Ts:             time.Now().UTC(),
	}
	if err := s.publ.PublishPredictionSimulated(r.Context(), ev); err != nil {
		s.log.Error("failed to publish prediction_simulated", zap.String("ticket_id", ev.TicketID), zap.Error(err))
	}

	s.opts.Metrics.Simulations.WithLabelValues("accepted").Inc()
	s.log.Info("simulated prediction recorded",
		zap.String("match_id", req.MatchID),
		zap.String("score_outcome_id", req.ScoreOutcomeID),
		zap.Int("num_tickets", tickets),
		zap.String("amount_bch", ev.AmountBCH),
	)
	writeJSON(w, http.StatusOK, simulateResponse{
		Message:    fmt.Sprintf("Prediction %s recorded for %s", o.Score, m.Title()),
		NumTickets: tickets,
	})
}

func (s *Server) reject(w http.ResponseWriter, status int, msg string) {
	s.opts.Metrics.Simulations.WithLabelValues("rejected").Inc()
	s.log.Warn("simulated prediction rejected", zap.Int("status", status), zap.String("error", msg))
	writeError(w, status, msg)
}

// originAddress gera um endereço de origem qualquer para o pagamento simulado
func (s *Server) originAddress() string {
	id := uuid.New()
	addr, err := bch.AddressFromSeed(id[:], s.opts.Network)
	if err != nil {
		return ""
	}
	return addr
}

// amountBCH é o valor pago por tickets na cotação rate, com 8 casas
func amountBCH(stake decimal.Decimal, tickets int, rate float64) string {
	if rate <= 0 {
		return ""
	}
	return stake.Mul(decimal.NewFromInt(int64(tickets))).
		Div(decimal.NewFromFloat(rate)).
		StringFixed(8)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-CSRFToken")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
