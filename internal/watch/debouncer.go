// Package watch provides a debounced re-analysis trigger for growing
// log files.
//
// Appended lines are accumulated and the trigger fires when either the
// line threshold or the wait timer is reached, so a chatty log does not
// turn every appended line into an oracle round trip.
package watch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	tberrors "github.com/yughpatel/TraceBack/internal/errors"
	"github.com/yughpatel/TraceBack/internal/logging"
)

// ErrDebouncerClosed is returned when operations are attempted on a
// closed debouncer.
var ErrDebouncerClosed = errors.New("watch debouncer is closed")

// TriggerFunc runs one re-analysis pass. newLines is how many appended
// lines accumulated since the previous trigger.
type TriggerFunc func(ctx context.Context, newLines int) error

// Metrics holds debouncer statistics.
type Metrics struct {
	// TotalLines is the total number of appended lines observed.
	TotalLines int64

	// TotalTriggers is the number of re-analysis passes fired.
	TotalTriggers int64

	// LastTriggerTime is the timestamp of the last trigger.
	LastTriggerTime time.Time

	// LastTriggerLines is the line count of the last trigger.
	LastTriggerLines int
}

// Config holds debouncer configuration.
type Config struct {
	// MinLines fires the trigger once this many lines accumulate.
	// Default: 50
	MinLines int

	// MaxWait fires the trigger after this long with pending lines.
	// Default: 30 seconds
	MaxWait time.Duration

	// TriggerTimeout bounds one re-analysis pass.
	// Default: 5 minutes
	TriggerTimeout time.Duration

	// Logger is the logger instance.
	Logger *zap.Logger
}

// DefaultConfig returns the default debouncer configuration.
func DefaultConfig() *Config {
	return &Config{
		MinLines:       50,
		MaxWait:        30 * time.Second,
		TriggerTimeout: 5 * time.Minute,
		Logger:         logging.L(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.MinLines <= 0 {
		return tberrors.NewConfigValidationError("MinLines", c.MinLines, "must be positive")
	}
	if c.MaxWait <= 0 {
		return tberrors.NewConfigValidationError("MaxWait", c.MaxWait, "must be positive")
	}
	if c.TriggerTimeout <= 0 {
		return tberrors.NewConfigValidationError("TriggerTimeout", c.TriggerTimeout, "must be positive")
	}
	return nil
}

// Debouncer accumulates appended lines and fires a trigger when either
// the line or time threshold is reached.
type Debouncer struct {
	config  *Config
	trigger TriggerFunc
	logger  *zap.Logger

	lineCh chan struct{}

	pending   int
	pendingMu sync.Mutex

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	metrics     Metrics
	metricsLock sync.RWMutex
}

// NewDebouncer creates a debouncer and starts its processing goroutine.
func NewDebouncer(cfg *Config, trigger TriggerFunc) (*Debouncer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if trigger == nil {
		return nil, tberrors.NewConfigValidationError("trigger", nil, "trigger function is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.L()
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Debouncer{
		config:  cfg,
		trigger: trigger,
		logger:  logger.With(zap.String("component", "watch_debouncer")),
		lineCh:  make(chan struct{}, 4096),
		ctx:     ctx,
		cancel:  cancel,
	}

	d.wg.Add(1)
	go d.loop()

	d.logger.Info("watch_debouncer_started",
		zap.Int("min_lines", cfg.MinLines),
		zap.Duration("max_wait", cfg.MaxWait),
	)

	return d, nil
}

// Observe records one appended line.
func (d *Debouncer) Observe() error {
	if d.closed.Load() {
		return ErrDebouncerClosed
	}
	select {
	case d.lineCh <- struct{}{}:
		atomic.AddInt64(&d.metrics.TotalLines, 1)
		return nil
	case <-d.ctx.Done():
		return ErrDebouncerClosed
	}
}

// Close stops the debouncer, firing once more if lines are pending.
func (d *Debouncer) Close() error {
	var closeErr error
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.lineCh)
		d.wg.Wait()
		d.cancel()

		d.pendingMu.Lock()
		remaining := d.pending
		d.pending = 0
		d.pendingMu.Unlock()

		if remaining > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), d.config.TriggerTimeout)
			defer cancel()
			if err := d.fire(ctx, remaining); err != nil {
				d.logger.Error("final_trigger_failed", zap.Error(err))
				closeErr = err
			}
		}

		d.logger.Info("watch_debouncer_stopped",
			zap.Int64("total_lines", atomic.LoadInt64(&d.metrics.TotalLines)),
			zap.Int64("total_triggers", atomic.LoadInt64(&d.metrics.TotalTriggers)),
		)
	})
	return closeErr
}

// GetMetrics returns a copy of the current metrics.
func (d *Debouncer) GetMetrics() Metrics {
	d.metricsLock.RLock()
	defer d.metricsLock.RUnlock()

	return Metrics{
		TotalLines:       atomic.LoadInt64(&d.metrics.TotalLines),
		TotalTriggers:    atomic.LoadInt64(&d.metrics.TotalTriggers),
		LastTriggerTime:  d.metrics.LastTriggerTime,
		LastTriggerLines: d.metrics.LastTriggerLines,
	}
}

// loop is the main processing goroutine.
func (d *Debouncer) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.MaxWait)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case _, ok := <-d.lineCh:
			if !ok {
				return
			}

			d.pendingMu.Lock()
			d.pending++
			shouldFire := d.pending >= d.config.MinLines
			pending := d.pending
			if shouldFire {
				d.pending = 0
			}
			d.pendingMu.Unlock()

			if shouldFire {
				d.fireWithTimeout(pending)
				ticker.Reset(d.config.MaxWait)
			}

		case <-ticker.C:
			d.pendingMu.Lock()
			pending := d.pending
			d.pending = 0
			d.pendingMu.Unlock()

			if pending > 0 {
				d.fireWithTimeout(pending)
			}
		}
	}
}

func (d *Debouncer) fireWithTimeout(pending int) {
	ctx, cancel := context.WithTimeout(d.ctx, d.config.TriggerTimeout)
	defer cancel()
	if err := d.fire(ctx, pending); err != nil {
		d.logger.Error("trigger_failed",
			logging.Lines(pending),
			zap.Error(err),
		)
	}
}

// fire runs the trigger and updates metrics.
func (d *Debouncer) fire(ctx context.Context, pending int) error {
	startTime := time.Now()
	err := d.trigger(ctx, pending)
	duration := time.Since(startTime)

	atomic.AddInt64(&d.metrics.TotalTriggers, 1)

	d.metricsLock.Lock()
	d.metrics.LastTriggerTime = time.Now()
	d.metrics.LastTriggerLines = pending
	d.metricsLock.Unlock()

	if err != nil {
		return err
	}

	d.logger.Info("reanalysis_triggered",
		logging.Lines(pending),
		logging.Duration(duration),
	)
	return nil
}
