package store

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var selectionBucket = []byte("selection")

// Bolt persiste a seleção num arquivo bbolt local, um bucket por perfil.
type Bolt struct {
	db     *bbolt.DB
	bucket []byte
}

// OpenBolt abre (ou cria) o arquivo em path.
func OpenBolt(path, profile string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	b := &Bolt{db: db, bucket: append(append([]byte{}, selectionBucket...), []byte(":"+profile)...)}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(b.bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create selection bucket: %w", err)
	}
	return b, nil
}

func (b *Bolt) Load(_ context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return fmt.Errorf("selection bucket not found")
		}
		if raw := bucket.Get([]byte(key)); raw != nil {
			// raw só é válido dentro da transação
			v = append([]byte(nil), raw...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, v != nil, nil
}

func (b *Bolt) Save(_ context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), value)
	})
}

func (b *Bolt) Delete(_ context.Context, key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.bucket).Delete([]byte(key))
	})
}

func (b *Bolt) Close() error { return b.db.Close() }
