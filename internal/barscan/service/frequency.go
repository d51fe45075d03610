package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/barscan/internal/barscan/store"
	"github.com/BrandonDHaskell/barscan/internal/barscan/types"
)

const (
	// FrequencyPreferenceKey is the preference holding the armed interval.
	FrequencyPreferenceKey = "scanFrequency"
	// FrequencyNone is stored when no periodic scanning is selected.
	FrequencyNone = "none"
)

var (
	ErrInvalidFrequency = errors.New("unsupported scan frequency")
	ErrPreference       = errors.New("preference store error")
)

// Frequencies are the selectable re-arm intervals, in display order.
var Frequencies = []struct {
	Label    string
	Interval time.Duration
}{
	{"30s", 30 * time.Second},
	{"5m", 5 * time.Minute},
	{"10m", 10 * time.Minute},
	{"30m", 30 * time.Minute},
}

func isAllowedInterval(d time.Duration) bool {
	for _, f := range Frequencies {
		if f.Interval == d {
			return true
		}
	}
	return false
}

// FrequencyFromMillis looks ms up in Frequencies.  The raw value is compared
// before any Duration conversion so an out-of-range count cannot wrap onto
// an allowed interval.
func FrequencyFromMillis(ms int64) (time.Duration, bool) {
	for _, f := range Frequencies {
		if f.Interval.Milliseconds() == ms {
			return f.Interval, true
		}
	}
	return 0, false
}

// FrequencyState is Idle when Interval is zero, Armed(Interval) otherwise.
type FrequencyState struct {
	Interval time.Duration
}

func (s FrequencyState) Armed() bool { return s.Interval > 0 }

// TickerFunc returns a tick channel and a stop function.  Tests inject a
// manual channel in place of time.NewTicker.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// FrequencyController owns the periodic re-arm task.  At most one ticker
// goroutine exists at a time; a new one is only started after the previous
// one has been cancelled and has exited.
type FrequencyController struct {
	session   *Session
	prefs     store.PreferenceStore
	logger    *zap.Logger
	newTicker TickerFunc

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewFrequencyController(sess *Session, prefs store.PreferenceStore, logger *zap.Logger) *FrequencyController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrequencyController{
		session:   sess,
		prefs:     prefs,
		logger:    logger,
		newTicker: realTicker,
	}
}

// WithTicker replaces the ticker factory.  Call before Restore/Select.
func (c *FrequencyController) WithTicker(fn TickerFunc) *FrequencyController {
	c.newTicker = fn
	return c
}

func (c *FrequencyController) State() FrequencyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FrequencyState{Interval: c.interval}
}

// Options lists the selectable frequencies with the armed one marked.
func (c *FrequencyController) Options() []types.FrequencyOption {
	current := c.State().Interval
	out := make([]types.FrequencyOption, 0, len(Frequencies))
	for _, f := range Frequencies {
		out = append(out, types.FrequencyOption{
			Label:    f.Label,
			Value:    f.Interval.Milliseconds(),
			Selected: f.Interval == current,
		})
	}
	return out
}

// Select applies the toggle law: selecting the armed interval disarms,
// anything else (re)arms with the new interval.  The state change stands
// even when persisting it fails; that failure is returned wrapped in
// ErrPreference.
func (c *FrequencyController) Select(ctx context.Context, interval time.Duration) (FrequencyState, error) {
	if !isAllowedInterval(interval) {
		return c.State(), fmt.Errorf("%w: %s", ErrInvalidFrequency, interval)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	if c.interval == interval {
		c.interval = 0
	} else {
		c.startLocked(interval)
	}
	st := FrequencyState{Interval: c.interval}

	if err := c.persist(ctx, st); err != nil {
		return st, err
	}
	return st, nil
}

// SelectMillis is Select for a millisecond count from an untrusted source.
func (c *FrequencyController) SelectMillis(ctx context.Context, ms int64) (FrequencyState, error) {
	interval, ok := FrequencyFromMillis(ms)
	if !ok {
		return c.State(), fmt.Errorf("%w: %dms", ErrInvalidFrequency, ms)
	}
	return c.Select(ctx, interval)
}

// Restore loads the saved interval and arms the controller if it names a
// supported frequency.  Unreadable or unknown values leave it idle.
func (c *FrequencyController) Restore(ctx context.Context) FrequencyState {
	raw, ok, err := c.prefs.GetString(ctx, FrequencyPreferenceKey)
	if err != nil {
		c.logger.Warn("load scan frequency failed", zap.Error(err))
		return c.State()
	}
	if !ok || raw == FrequencyNone {
		return c.State()
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	interval, ok := FrequencyFromMillis(ms)
	if err != nil || !ok {
		c.logger.Warn("ignoring saved scan frequency", zap.String("value", raw))
		return c.State()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.startLocked(interval)
	c.logger.Info("scan frequency restored", zap.Duration("interval", interval))
	return FrequencyState{Interval: c.interval}
}

// Close stops the ticker and waits for it to exit.  Safe to call twice.
// The saved preference is left untouched so the next start re-arms.
func (c *FrequencyController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.interval = 0
}

func (c *FrequencyController) persist(ctx context.Context, st FrequencyState) error {
	v := FrequencyNone
	if st.Armed() {
		v = strconv.FormatInt(st.Interval.Milliseconds(), 10)
	}
	if err := c.prefs.SetString(ctx, FrequencyPreferenceKey, v); err != nil {
		c.logger.Warn("save scan frequency failed", zap.String("value", v), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPreference, err)
	}
	return nil
}

// stopLocked cancels the running ticker goroutine and blocks until it has
// returned, so no tick from the old interval can land afterwards.
func (c *FrequencyController) stopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
}

func (c *FrequencyController) startLocked(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.interval = interval
	c.cancel = cancel
	c.done = done

	ticks, stop := c.newTicker(interval)
	go c.loop(ctx, ticks, stop, done)
}

func (c *FrequencyController) loop(ctx context.Context, ticks <-chan time.Time, stop func(), done chan struct{}) {
	defer close(done)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			// A cancel racing a tick must win.
			if ctx.Err() != nil {
				return
			}
			c.session.Rearm()
		}
	}
}
