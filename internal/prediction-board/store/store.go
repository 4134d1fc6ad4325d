// Package store é a fronteira de persistência da seleção do usuário.
// O board recebe um Store injetado em vez de acessar storage global.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Chaves persistidas
const (
	KeySelectedMatch   = "selectedMatch"
	KeySelectedOutcome = "selectedOutcome"
)

// ErrEmptyKey é devolvido quando a chave é vazia.
var ErrEmptyKey = errors.New("empty key")

// Store guarda valores opacos por chave.
// Load devolve ok=false quando a chave não existe.
type Store interface {
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// LoadJSON lê e decodifica key em dst. Ausência devolve (false, nil);
// conteúdo corrompido devolve (false, err) e deve ser tratado como ausência.
func LoadJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	b, ok, err := s.Load(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if len(b) == 0 || string(b) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON grava v em key, ou apaga key quando v é nil.
func SaveJSON[T any](ctx context.Context, s Store, key string, v *T) error {
	if v == nil {
		return s.Delete(ctx, key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Save(ctx, key, b)
}
