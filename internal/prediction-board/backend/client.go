package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	PathCSRFToken = "/api/csrf-token/"
	PathMatches   = "/api/matches/"
	PathRate      = "/api/bch-rate/"
	PathSimulate  = "/api/simulate-prediction/"
	// PathSimulateLegacy é o nome antigo do endpoint de simulação.
	PathSimulateLegacy = "/api/simulate-bet/"
	PathRateStream     = "/ws/bch_rate/"
)

// ErrUnexpectedShape indica que o corpo não segue o contrato fixado
// (ex.: /api/matches/ devolvendo objeto em vez de array).
var ErrUnexpectedShape = errors.New("unexpected response shape")

// APIError carrega o status HTTP e o campo "error" devolvido pelo backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend http %d", e.Status)
}

// Client fala com o backend REST do app de previsões.
type Client struct {
	BaseURL      string
	SimulatePath string
	HTTP         *http.Client
}

func New(base string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:      base,
		SimulatePath: PathSimulate,
		HTTP:         &http.Client{Timeout: timeout},
	}
}

// CSRFToken obtém o token anti-forgery usado no header X-CSRFToken.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	var out csrfResponse
	if err := c.getJSON(ctx, PathCSRFToken, &out); err != nil {
		return "", err
	}
	if out.CSRFToken == "" {
		return "", fmt.Errorf("csrf token: %w", ErrUnexpectedShape)
	}
	return out.CSRFToken, nil
}

// Matches busca a coleção completa de partidas. O contrato é o array puro
// (ViewSet); o formato { matches: [...] } é rejeitado.
func (c *Client) Matches(ctx context.Context) ([]Match, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, PathMatches, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return []Match{}, nil
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("matches: %w", ErrUnexpectedShape)
	}
	var matches []Match
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, fmt.Errorf("decode matches: %w", err)
	}
	return matches, nil
}

// Rate busca a cotação atual BCH/USD.
func (c *Client) Rate(ctx context.Context) (ExchangeRate, error) {
	var out rateResponse
	if err := c.getJSON(ctx, PathRate, &out); err != nil {
		return ExchangeRate{}, err
	}
	v := out.Rate
	if v == nil {
		v = out.BCHUSDRate
	}
	if v == nil {
		return ExchangeRate{}, fmt.Errorf("rate: %w", ErrUnexpectedShape)
	}
	return ExchangeRate{
		Rate:         float64(*v),
		Timestamp:    ParseTimestamp(out.Timestamp),
		RawTimestamp: out.Timestamp,
	}, nil
}

// SimulatePrediction envia uma previsão de teste. Status não-2xx vira *APIError
// com a mensagem do backend.
func (c *Client) SimulatePrediction(ctx context.Context, csrfToken, matchID, outcomeID string) (SimulationResult, error) {
	body, err := json.Marshal(SimulateRequest{MatchID: matchID, ScoreOutcomeID: outcomeID})
	if err != nil {
		return SimulationResult{}, err
	}
	path := c.SimulatePath
	if path == "" {
		path = PathSimulate
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return SimulationResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRFToken", csrfToken)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return SimulationResult{}, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return SimulationResult{}, err
	}
	if res.StatusCode >= 300 {
		return SimulationResult{}, apiError(res.StatusCode, b)
	}
	var out SimulationResult
	if err := json.Unmarshal(b, &out); err != nil {
		return SimulationResult{}, fmt.Errorf("decode simulation: %w", err)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode >= 300 {
		return apiError(res.StatusCode, b)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func apiError(status int, body []byte) *APIError {
	var e errorResponse
	_ = json.Unmarshal(body, &e)
	return &APIError{Status: status, Message: e.Error}
}
