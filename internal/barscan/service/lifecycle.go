package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/barscan/internal/barscan/types"
	"github.com/BrandonDHaskell/barscan/internal/scanlog"
)

var (
	ErrLogNotFound        = errors.New("scan log not found")
	ErrSharingUnavailable = errors.New("sharing is not available")
	ErrDeleteDeclined     = errors.New("delete not confirmed")
	ErrIO                 = errors.New("scan log i/o error")
)

// LogResource is the scan log as seen by export and delete.
type LogResource interface {
	Path() string
	Exists() (bool, error)
	Delete(ctx context.Context) error
}

// Sharer hands a file to some outside party.
type Sharer interface {
	Available(ctx context.Context) bool
	Share(ctx context.Context, path string) error
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a plain function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Notifier delivers non-fatal, user-facing notices.
type Notifier interface {
	Notify(ctx context.Context, n types.Notice)
}

const deletePrompt = "Are you sure you want to delete the scan log?"

type LogLifecycle struct {
	log      LogResource
	sharer   Sharer // nil means no share facility on this host
	notifier Notifier
	logger   *zap.Logger

	exporting atomic.Bool
}

func NewLogLifecycle(log LogResource, sharer Sharer, notifier Notifier, logger *zap.Logger) *LogLifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogLifecycle{log: log, sharer: sharer, notifier: notifier, logger: logger}
}

// Exporting reports whether an export is currently in flight.
func (l *LogLifecycle) Exporting() bool { return l.exporting.Load() }

// Export hands the scan log to the sharer.  Only one export runs at a time;
// a call made while another is pending returns nil without doing anything.
func (l *LogLifecycle) Export(ctx context.Context) error {
	if !l.exporting.CompareAndSwap(false, true) {
		l.logger.Debug("export already in progress, ignoring request")
		return nil
	}
	defer l.exporting.Store(false)

	exists, err := l.log.Exists()
	if err != nil {
		l.notify(ctx, types.NoticeError, "Error", "Could not check the scan log.")
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if !exists {
		l.notify(ctx, types.NoticeError, "No log", "There is no scan log to share yet.")
		return ErrLogNotFound
	}

	if l.sharer == nil || !l.sharer.Available(ctx) {
		l.notify(ctx, types.NoticeError, "Sharing unavailable", "Sharing is not available on this device.")
		return ErrSharingUnavailable
	}

	if err := l.sharer.Share(ctx, l.log.Path()); err != nil {
		l.logger.Warn("scan log export failed", zap.Error(err))
		l.notify(ctx, types.NoticeError, "Error", "Sharing the scan log failed.")
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	l.logger.Info("scan log exported", zap.String("path", l.log.Path()))
	l.notify(ctx, types.NoticeInfo, "Shared", "Scan log shared.")
	return nil
}

// Delete removes the scan log after the confirmer approves.
func (l *LogLifecycle) Delete(ctx context.Context, c Confirmer) error {
	if c == nil {
		return ErrDeleteDeclined
	}
	ok, err := c.Confirm(ctx, deletePrompt)
	if err != nil {
		l.logger.Warn("delete confirmation failed", zap.Error(err))
		return ErrDeleteDeclined
	}
	if !ok {
		return ErrDeleteDeclined
	}

	exists, err := l.log.Exists()
	if err != nil {
		l.notify(ctx, types.NoticeError, "Error", "Could not check the scan log.")
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if !exists {
		l.notify(ctx, types.NoticeError, "No log", "There is no scan log to delete.")
		return ErrLogNotFound
	}

	if err := l.log.Delete(ctx); err != nil {
		if errors.Is(err, scanlog.ErrNotFound) {
			l.notify(ctx, types.NoticeError, "No log", "There is no scan log to delete.")
			return ErrLogNotFound
		}
		l.logger.Warn("scan log delete failed", zap.Error(err))
		l.notify(ctx, types.NoticeError, "Error", "An error occurred while deleting the scan log.")
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	l.logger.Info("scan log deleted", zap.String("path", l.log.Path()))
	l.notify(ctx, types.NoticeInfo, "Deleted", "Scan log deleted.")
	return nil
}

func (l *LogLifecycle) notify(ctx context.Context, kind types.NoticeKind, title, msg string) {
	if l.notifier == nil {
		return
	}
	l.notifier.Notify(ctx, types.Notice{
		Kind:      kind,
		Title:     title,
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	})
}
