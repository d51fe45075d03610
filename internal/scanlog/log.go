// Package scanlog owns the plain-text scan log: one line per scan, appended
// in submission order by a single writer goroutine.
package scanlog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BrandonDHaskell/barscan/internal/barscan/types"
)

const DefaultFileName = "scan_events.txt"

var (
	ErrNotFound = errors.New("scan log does not exist")
	ErrClosed   = errors.New("scan log closed")
)

type Config struct {
	Path     string         // defaults to ./data/scan_events.txt
	Location *time.Location // time zone for timestamps; defaults to time.Local
}

type op struct {
	fn func() error
	ch chan error
}

type Log struct {
	path string
	loc  *time.Location

	ops  chan op
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

func New(cfg Config) (*Log, error) {
	if cfg.Path == "" {
		cfg.Path = filepath.Join("data", DefaultFileName)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir scan log dir: %w", err)
	}

	l := &Log{
		path: cfg.Path,
		loc:  cfg.Location,
		ops:  make(chan op, 64),
		done: make(chan struct{}),
	}
	go l.loop()
	return l, nil
}

func (l *Log) Path() string { return l.path }

// Record appends the formatted line for ev and fsyncs before returning.
func (l *Log) Record(ctx context.Context, ev types.ScanEvent, matched bool) error {
	line := FormatLine(ev, matched, l.loc)
	return l.submit(ctx, func() error { return l.appendLine(line) })
}

// Delete removes the log file.  ErrNotFound when there is nothing to remove.
func (l *Log) Delete(ctx context.Context) error {
	return l.submit(ctx, func() error {
		err := os.Remove(l.path)
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("remove scan log: %w", err)
		}
		return nil
	})
}

func (l *Log) Exists() (bool, error) {
	_, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat scan log: %w", err)
	}
	return true, nil
}

func (l *Log) Stat() (size int64, modTime time.Time, err error) {
	fi, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, time.Time{}, ErrNotFound
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("stat scan log: %w", err)
	}
	return fi.Size(), fi.ModTime(), nil
}

func (l *Log) ReadAll() ([]byte, error) {
	b, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read scan log: %w", err)
	}
	return b, nil
}

// Close waits for queued writes to finish.  Safe to call twice.
func (l *Log) Close() error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.ops)
	}
	l.mu.Unlock()
	<-l.done
	return nil
}

func (l *Log) submit(ctx context.Context, fn func() error) error {
	ch := make(chan error, 1)

	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrClosed
	}
	select {
	case l.ops <- op{fn: fn, ch: ch}:
	case <-ctx.Done():
		l.mu.RUnlock()
		return ctx.Err()
	}
	l.mu.RUnlock()

	// A queued op still runs if the caller stops waiting.
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Log) loop() {
	defer close(l.done)
	for o := range l.ops {
		o.ch <- o.fn()
	}
}

func (l *Log) appendLine(line string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open scan log: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append scan log: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync scan log: %w", err)
	}
	return f.Close()
}
