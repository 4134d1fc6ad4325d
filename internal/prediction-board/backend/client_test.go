package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const matchesJSON = `[
  {"match_id": 7, "team1": "Flamengo", "team2": "Palmeiras", "match_date": "2025-01-05T20:00:00Z",
   "betting_outcomes": {
     "10": {"score": "2-1", "bet_count": 3, "bch_address": "bitcoincash:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a"},
     "2":  {"score": "0-0", "bet_count": 0, "bch_address": "bitcoincash:qr95sy3j9xwd2ap32xkykttr4cvcu7as4y0qverfuy"}
   }},
  {"match_id": "m-2", "team1": "Grêmio", "team2": "Internacional", "team2_logo_url": "https://cdn/inter.png",
   "match_date": "2025-01-06T20:00:00Z", "betting_outcomes": {}}
]`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, time.Second)
}

func TestClient_Matches(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathMatches, r.URL.Path)
		_, _ = w.Write([]byte(matchesJSON))
	})

	matches, err := c.Matches(context.Background())
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, ID("7"), matches[0].MatchID)
	assert.Equal(t, ID("m-2"), matches[1].MatchID)
	assert.Equal(t, "Flamengo vs Palmeiras", matches[0].Title())
	assert.Equal(t, []string{"2", "10"}, matches[0].OutcomeIDs())
	assert.Equal(t, 3, matches[0].BettingOutcomes["10"].BetCount)

	l1, l2 := matches[1].LogoURLs()
	assert.Equal(t, "https://placehold.co/48x48/000000/FFFFFF?text=G", l1)
	assert.Equal(t, "https://cdn/inter.png", l2)
}

func TestClient_MatchesRejectsWrappedShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"matches": []}`))
	})

	_, err := c.Matches(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedShape)
}

func TestClient_Rate(t *testing.T) {
	cases := []struct {
		name string
		body string
		want float64
	}{
		{"string rate", `{"rate": "250.12", "timestamp": "2025-01-01T00:00:00Z"}`, 250.12},
		{"numeric rate", `{"rate": 300, "timestamp": "2025-01-01T00:00:00Z"}`, 300},
		{"legacy field", `{"bch_usd_rate": "410.5", "timestamp": "2025-01-01T00:00:00Z"}`, 410.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			rate, err := c.Rate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, rate.Rate)
			assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), rate.Timestamp.UTC())
		})
	}
}

func TestClient_RateErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Rate(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"timestamp": "x"}`))
	})
	_, err = c.Rate(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedShape)
}

func TestClient_CSRFToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathCSRFToken, r.URL.Path)
		_, _ = w.Write([]byte(`{"csrfToken": "tok-123"}`))
	})
	tok, err := c.CSRFToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)
}

func TestClient_SimulatePrediction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathSimulate, r.URL.Path)
		assert.Equal(t, "tok-123", r.Header.Get("X-CSRFToken"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req SimulateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, SimulateRequest{MatchID: "7", ScoreOutcomeID: "10"}, req)

		_, _ = w.Write([]byte(`{"message": "Simulated prediction recorded", "num_tickets": 2}`))
	})

	res, err := c.SimulatePrediction(context.Background(), "tok-123", "7", "10")
	require.NoError(t, err)
	assert.Equal(t, SimulationResult{Message: "Simulated prediction recorded", NumTickets: 2}, res)
}

func TestClient_SimulatePredictionError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathSimulateLegacy, r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "Invalid outcome"}`))
	})
	c.SimulatePath = PathSimulateLegacy

	_, err := c.SimulatePrediction(context.Background(), "tok", "7", "99")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid outcome", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestID_Unmarshal(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`[1, "abc", 42.0, null]`), &ids))
	assert.Equal(t, []ID{"1", "abc", "42.0", ""}, ids)

	var bad ID
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestFloat_Unmarshal(t *testing.T) {
	var f Float
	require.NoError(t, json.Unmarshal([]byte(`" 250.12 "`), &f))
	assert.Equal(t, Float(250.12), f)
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &f))
}
