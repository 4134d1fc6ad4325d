package store

import (
	"context"
	"database/sql"
	"errors"
)

// Postgres persiste a seleção na tabela ui_selection, uma linha por (perfil, chave).
type Postgres struct {
	db      *sql.DB
	profile string
}

func NewPostgres(db *sql.DB, profile string) *Postgres {
	return &Postgres{db: db, profile: profile}
}

// Migrate cria a tabela se ainda não existir.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ui_selection (
			profile    TEXT        NOT NULL,
			key        TEXT        NOT NULL,
			value      BYTEA       NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (profile, key)
		)`)
	return err
}

func (p *Postgres) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM ui_selection WHERE profile=$1 AND key=$2`, p.profile, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (p *Postgres) Save(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO ui_selection (profile, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		p.profile, key, value,
	)
	return err
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM ui_selection WHERE profile=$1 AND key=$2`, p.profile, key)
	return err
}
