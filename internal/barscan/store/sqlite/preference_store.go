package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/barscan/internal/db"
)

type PreferenceStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewPreferenceStore(db *sql.DB, writer *dbpkg.Worker) *PreferenceStore {
	return &PreferenceStore{db: db, writer: writer}
}

func (s *PreferenceStore) GetString(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `
SELECT pref_value FROM preferences WHERE pref_key = ?;
`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("GetString %s: %w", key, err)
	}
	return v, true, nil
}

func (s *PreferenceStore) SetString(ctx context.Context, key, value string) error {
	nowMs := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO preferences(pref_key, pref_value, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(pref_key) DO UPDATE SET
  pref_value = excluded.pref_value,
  updated_at_ms = excluded.updated_at_ms;
`, key, value, nowMs); err != nil {
			return fmt.Errorf("SetString %s: %w", key, err)
		}
		return nil
	})
}
