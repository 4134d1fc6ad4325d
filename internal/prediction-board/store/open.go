package store

import (
	"context"
	"fmt"
	"io"

	"github.com/radieske/bch-prediction-board/internal/shared/cache"
	"github.com/radieske/bch-prediction-board/internal/shared/db"
)

// Options seleciona e configura o backend de persistência.
type Options struct {
	Kind        string // memory | bolt | redis | postgres
	BoltPath    string
	Profile     string
	RedisAddr   string
	PostgresDSN string
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open cria o Store configurado. O io.Closer devolvido libera a conexão/arquivo.
func Open(ctx context.Context, o Options) (Store, io.Closer, error) {
	switch o.Kind {
	case "memory":
		return NewMemory(), closerFunc(func() error { return nil }), nil
	case "", "bolt":
		b, err := OpenBolt(o.BoltPath, o.Profile)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case "redis":
		rdb, err := cache.ConnectRedis(ctx, o.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return NewRedis(rdb, o.Profile), rdb, nil
	case "postgres":
		pg, err := db.ConnectPostgres(ctx, o.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		s := NewPostgres(pg, o.Profile)
		if err := s.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("migrate ui_selection: %w", err)
		}
		return s, pg, nil
	}
	return nil, nil, fmt.Errorf("unknown selection store %q", o.Kind)
}
