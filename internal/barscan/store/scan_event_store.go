package store

import (
	"context"
	"time"
)

// ScanEventRecord captures a single scan decision for the history table.
type ScanEventRecord struct {
	EventID    string
	Symbology  string
	Payload    string
	Camera     string
	Matched    bool
	CapturedAt time.Time
}

// ScanEventStore persists scan decisions as an append-only history.
type ScanEventStore interface {
	RecordEvent(ctx context.Context, rec ScanEventRecord) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]ScanEventRecord, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
