package httpapi

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TokenStore emite tokens CSRF e confere os recebidos no header X-CSRFToken
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenStore(ttl time.Duration) *TokenStore {
	return &TokenStore{tokens: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

// Issue cria um token novo e descarta os expirados
func (t *TokenStore) Issue() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for tok, exp := range t.tokens {
		if now.After(exp) {
			delete(t.tokens, tok)
		}
	}
	tok := uuid.NewString()
	t.tokens[tok] = now.Add(t.ttl)
	return tok
}

func (t *TokenStore) Valid(tok string) bool {
	if tok == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	exp, ok := t.tokens[tok]
	return ok && !t.now().After(exp)
}
