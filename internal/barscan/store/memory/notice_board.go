package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/barscan/internal/barscan/types"
)

const defaultNoticeCapacity = 50

// NoticeBoard keeps the most recent user-facing notices so a UI can poll
// for them.  Oldest notices are dropped once capacity is reached.  Every
// notice is also written to the logger.
type NoticeBoard struct {
	mu       sync.Mutex
	capacity int
	notices  []types.Notice
	logger   *zap.Logger
}

func NewNoticeBoard(capacity int, logger *zap.Logger) *NoticeBoard {
	if capacity <= 0 {
		capacity = defaultNoticeCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoticeBoard{capacity: capacity, logger: logger}
}

func (b *NoticeBoard) Notify(_ context.Context, n types.Notice) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	fields := []zap.Field{
		zap.String("kind", string(n.Kind)),
		zap.String("title", n.Title),
		zap.String("message", n.Message),
	}
	if n.Kind == types.NoticeError {
		b.logger.Warn("notice", fields...)
	} else {
		b.logger.Info("notice", fields...)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, n)
	if over := len(b.notices) - b.capacity; over > 0 {
		b.notices = append([]types.Notice(nil), b.notices[over:]...)
	}
}

// Notices returns a copy of the retained notices, oldest first.
func (b *NoticeBoard) Notices() []types.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.Notice, len(b.notices))
	copy(out, b.notices)
	return out
}
