package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gcash/bchd/chaincfg"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bch-prediction-board/internal/backend-simulator/catalog"
	"github.com/radieske/bch-prediction-board/pkg/contracts/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PredictionSimulated
	err    error
}

func (p *recordingPublisher) PublishPredictionSimulated(_ context.Context, e events.PredictionSimulated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type fixture struct {
	srv     *httptest.Server
	publ    *recordingPublisher
	metrics *Metrics
	csrf    *TokenStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.New(catalog.DefaultFixtures, catalog.DefaultScores, &chaincfg.MainNetParams, time.Now())
	require.NoError(t, err)

	f := &fixture{publ: &recordingPublisher{}, metrics: NewMetrics(nil), csrf: NewTokenStore(time.Hour)}
	s := NewServer(zap.NewNop(), cat, catalog.NewRateWalk(250, 1), nil, f.csrf, f.publ, Options{
		Metrics: f.metrics,
		Tickets: func() int { return 2 },
	})
	f.srv = httptest.NewServer(s.Router())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) get(t *testing.T, path string, dst any) *http.Response {
	t.Helper()
	res, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(dst))
	return res
}

func (f *fixture) simulate(t *testing.T, path, token, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-CSRFToken", token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	out := map[string]any{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

func (f *fixture) token(t *testing.T) string {
	var out map[string]string
	f.get(t, PathCSRFToken, &out)
	require.NotEmpty(t, out["csrfToken"])
	return out["csrfToken"]
}

func TestServer_ReadEndpoints(t *testing.T) {
	f := newFixture(t)

	var matches []catalog.Match
	res := f.get(t, PathMatches, &matches)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Len(t, matches, len(catalog.DefaultFixtures))

	var rate map[string]string
	f.get(t, PathRate, &rate)
	assert.Equal(t, "250.00", rate["rate"])
	assert.NotEmpty(t, rate["timestamp"])
}

func TestServer_SimulatePrediction(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t)

	status, body := f.simulate(t, PathSimulate, tok, `{"match_id": "1", "score_outcome_id": "7"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Prediction 2-1 recorded for Flamengo vs Palmeiras", body["message"])
	assert.Equal(t, float64(2), body["num_tickets"])

	var matches []catalog.Match
	f.get(t, PathMatches, &matches)
	assert.Equal(t, 2, matches[0].BettingOutcomes["7"].BetCount)

	require.Len(t, f.publ.events, 1)
	ev := f.publ.events[0]
	assert.Equal(t, "1", ev.MatchID)
	assert.Equal(t, "7", ev.ScoreOutcomeID)
	assert.Equal(t, "2-1", ev.Score)
	assert.Equal(t, matches[0].BettingOutcomes["7"].BCHAddress, ev.BCHAddress)
	assert.Equal(t, "0.00800000", ev.AmountBCH)
	assert.NotEmpty(t, ev.TicketID)
	assert.Contains(t, ev.OriginAddress, "bitcoincash:")

	// rota legada
	status, _ = f.simulate(t, PathSimulateLegacy, tok, `{"match_id": "1", "score_outcome_id": "7"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.Simulations.WithLabelValues("accepted")))
}

func TestServer_SimulatePublishFailureStillAccepts(t *testing.T) {
	f := newFixture(t)
	f.publ.err = errors.New("kafka down")

	status, _ := f.simulate(t, PathSimulate, f.token(t), `{"match_id": "2", "score_outcome_id": "1"}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_SimulateRejections(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t)

	cases := []struct {
		name   string
		token  string
		body   string
		status int
		msg    string
	}{
		{"missing token", "", `{"match_id": "1", "score_outcome_id": "1"}`, http.StatusForbidden, msgBadCSRF},
		{"unknown token", "forged", `{"match_id": "1", "score_outcome_id": "1"}`, http.StatusForbidden, msgBadCSRF},
		{"bad json", tok, `{`, http.StatusBadRequest, msgBadJSON},
		{"missing fields", tok, `{"match_id": "1"}`, http.StatusBadRequest, msgMissingFields},
		{"unknown match", tok, `{"match_id": "99", "score_outcome_id": "1"}`, http.StatusNotFound, msgMatchNotFound},
		{"unknown outcome", tok, `{"match_id": "1", "score_outcome_id": "99"}`, http.StatusBadRequest, msgInvalidOutcome},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := f.simulate(t, PathSimulate, tc.token, tc.body)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.msg, body["error"])
		})
	}
	assert.Empty(t, f.publ.events)
	assert.Equal(t, float64(len(cases)), testutil.ToFloat64(f.metrics.Simulations.WithLabelValues("rejected")))
}

func TestServer_CORSPreflight(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+PathSimulate, nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Contains(t, res.Header.Get("Access-Control-Allow-Headers"), "X-CSRFToken")
}

func TestTokenStore_Expiry(t *testing.T) {
	ts := NewTokenStore(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return now }

	tok := ts.Issue()
	assert.True(t, ts.Valid(tok))
	assert.False(t, ts.Valid(""))

	now = now.Add(2 * time.Minute)
	assert.False(t, ts.Valid(tok))
	ts.Issue()
	assert.Len(t, ts.tokens, 1)
}

func TestAmountBCH(t *testing.T) {
	one := NewServer(zap.NewNop(), nil, nil, nil, nil, nil, Options{}).opts.Stake
	assert.Equal(t, "0.00399808", amountBCH(one, 1, 250.12))
	assert.Equal(t, "", amountBCH(one, 1, 0))
}
