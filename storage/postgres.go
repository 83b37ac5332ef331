package storage

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/lib/pq"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS local_storage (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStorage is a Storage backed by a local_storage table. Writes to
// the same key from this process are serialized by per-key locks.
type PostgresStorage struct {
	DB *sql.DB

	// key -> *sync.Mutex
	locks sync.Map
}

func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s := &PostgresStorage{DB: db}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the local_storage table when missing.
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, createTableSQL)
	return err
}

func (s *PostgresStorage) Close() error { return s.DB.Close() }

// lockForKey acquires the process-local lock for key. Returns unlock func.
func (s *PostgresStorage) lockForKey(key string) func() {
	if v, ok := s.locks.Load(key); ok {
		m := v.(*sync.Mutex)
		m.Lock()
		return m.Unlock
	}
	actual, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	m := actual.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (s *PostgresStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *PostgresStorage) SetItem(ctx context.Context, key, value string) error {
	unlock := s.lockForKey(key)
	defer unlock()

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO local_storage (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

func (s *PostgresStorage) RemoveItem(ctx context.Context, key string) error {
	unlock := s.lockForKey(key)
	defer unlock()

	_, err := s.DB.ExecContext(ctx, `DELETE FROM local_storage WHERE key = $1`, key)
	return err
}
