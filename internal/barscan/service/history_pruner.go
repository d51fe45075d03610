package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/barscan/internal/barscan/store"
)

// HistoryPruner periodically deletes scan history rows older than a
// retention period.  A retention of 0 disables it.  The text scan log is
// never touched.
type HistoryPruner struct {
	store     store.ScanEventStore
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

type PrunerConfig struct {
	// RetentionDays is how many days of history to keep; 0 keeps everything.
	RetentionDays int

	// IntervalHours is how often the pruner runs.  Defaults to 6.
	IntervalHours int
}

// NewHistoryPruner creates a pruner but does not start it.
func NewHistoryPruner(s store.ScanEventStore, cfg PrunerConfig, logger *zap.Logger) *HistoryPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HistoryPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start prunes once immediately, then on every interval until ctx is
// cancelled or Stop is called.
func (p *HistoryPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("scan history pruner disabled (retention=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info("scan history pruner started",
		zap.Duration("retention", p.retention),
		zap.Duration("interval", p.interval),
	)
}

// Stop signals the pruner to exit and waits for it.
func (p *HistoryPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *HistoryPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *HistoryPruner) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Warn("scan history prune failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("scan history pruned",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
