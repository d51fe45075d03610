package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/barscan/internal/barscan/store"
	"github.com/BrandonDHaskell/barscan/internal/barscan/types"
)

var ErrScanDisabled = errors.New("scanning is disabled until re-armed")

// ScanRecorder appends a scan to the durable scan log.
type ScanRecorder interface {
	Record(ctx context.Context, ev types.ScanEvent, matched bool) error
}

type ScanService struct {
	// order serializes scans from gate to log so lines land in gate order.
	order sync.Mutex

	session  *Session
	recorder ScanRecorder
	history  store.ScanEventStore // optional
	logger   *zap.Logger
	now      func() time.Time
}

func NewScanService(sess *Session, rec ScanRecorder, history store.ScanEventStore, logger *zap.Logger) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanService{
		session:  sess,
		recorder: rec,
		history:  history,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleScan runs one detected barcode through validation and logging.
// The session gate stays closed afterwards until EnableScan or a frequency
// tick reopens it.
func (s *ScanService) HandleScan(ctx context.Context, in types.ScanInput) (types.ScanResult, error) {
	s.order.Lock()
	defer s.order.Unlock()

	facing, ok := s.session.BeginScan()
	if !ok {
		return types.ScanResult{}, ErrScanDisabled
	}

	ev := types.ScanEvent{
		ID:         uuid.NewString(),
		Symbology:  in.Symbology,
		Payload:    in.Payload,
		CapturedAt: s.now(),
		Facing:     facing,
	}
	matched := Validate(ev.Payload, s.session.Rule())
	s.session.noteScanned(ev.Payload)

	s.recordEvent(ctx, ev, matched)

	return types.ScanResult{
		OK:         true,
		EventID:    ev.ID,
		Symbology:  ev.Symbology,
		Payload:    ev.Payload,
		Matched:    matched,
		Status:     types.Status(matched),
		Camera:     ev.Facing.String(),
		CapturedAt: ev.CapturedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// recordEvent is best effort.  A failed write is logged and dropped so the
// scanning flow never stalls on storage.
func (s *ScanService) recordEvent(ctx context.Context, ev types.ScanEvent, matched bool) {
	if err := s.recorder.Record(ctx, ev, matched); err != nil {
		s.logger.Warn("scan log append failed",
			zap.String("event_id", ev.ID),
			zap.Error(err),
		)
	}

	if s.history == nil {
		return
	}
	err := s.history.RecordEvent(ctx, store.ScanEventRecord{
		EventID:    ev.ID,
		Symbology:  ev.Symbology,
		Payload:    ev.Payload,
		Camera:     ev.Facing.String(),
		Matched:    matched,
		CapturedAt: ev.CapturedAt,
	})
	if err != nil {
		s.logger.Warn("scan history insert failed",
			zap.String("event_id", ev.ID),
			zap.Error(err),
		)
	}
}
