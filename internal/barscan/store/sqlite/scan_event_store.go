package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/barscan/internal/barscan/store"
	dbpkg "github.com/BrandonDHaskell/barscan/internal/db"
)

const maxRecent = 500

type ScanEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewScanEventStore(db *sql.DB, writer *dbpkg.Worker) *ScanEventStore {
	return &ScanEventStore{db: db, writer: writer}
}

func (s *ScanEventStore) RecordEvent(ctx context.Context, rec store.ScanEventRecord) error {
	if rec.CapturedAt.IsZero() {
		rec.CapturedAt = time.Now().UTC()
	}
	capturedMs := rec.CapturedAt.UTC().UnixMilli()

	var matched int
	if rec.Matched {
		matched = 1
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO scan_events(
  event_id, symbology, payload, camera, matched, captured_at_ms
) VALUES (?, ?, ?, ?, ?, ?);
`,
			rec.EventID, rec.Symbology, rec.Payload, rec.Camera, matched, capturedMs,
		); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}

// Recent returns the newest limit rows.  Ties on captured_at_ms fall back to
// insertion order.
func (s *ScanEventStore) Recent(ctx context.Context, limit int) ([]store.ScanEventRecord, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT event_id, symbology, payload, camera, matched, captured_at_ms
FROM scan_events
ORDER BY captured_at_ms DESC, id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("Recent query: %w", err)
	}
	defer rows.Close()

	var out []store.ScanEventRecord
	for rows.Next() {
		var (
			rec        store.ScanEventRecord
			matched    int
			capturedMs int64
		)
		if err := rows.Scan(&rec.EventID, &rec.Symbology, &rec.Payload, &rec.Camera, &matched, &capturedMs); err != nil {
			return nil, fmt.Errorf("Recent scan: %w", err)
		}
		rec.Matched = matched == 1
		rec.CapturedAt = time.UnixMilli(capturedMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneOlderThan deletes rows captured before cutoff and reports how many
// went.  Uses idx_scan_events_time.
func (s *ScanEventStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM scan_events
WHERE captured_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
