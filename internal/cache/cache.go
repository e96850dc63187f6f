// Package cache guarantees at most one extraction per distinct uploaded
// file within a session.
//
// The cache holds a single slot: the report for the current upload. A
// new file identity replaces the prior report entirely and fires the
// invalidation hooks (the investigation session clears its history
// there). Concurrent requests for the same identity share one in-flight
// extraction instead of issuing duplicate oracle calls.
package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yughpatel/TraceBack/internal/logging"
	"github.com/yughpatel/TraceBack/internal/models"
)

// ComputeFunc produces a report for a file identity. Invoked at most
// once per identity while the identity stays current.
type ComputeFunc func(ctx context.Context) (*models.FindingsReport, error)

// InvalidateHook is notified when a report is superseded. The argument
// is the identity being dropped.
type InvalidateHook func(identity string)

// AnalysisCache is the session-scoped report store.
type AnalysisCache struct {
	mu       sync.Mutex
	identity string
	report   *models.FindingsReport

	group  singleflight.Group
	hooks  []InvalidateHook
	logger *zap.Logger
}

// New creates an empty cache.
func New(logger *zap.Logger) *AnalysisCache {
	if logger == nil {
		logger = logging.L()
	}
	return &AnalysisCache{
		logger: logger.With(zap.String("component", "analysis_cache")),
	}
}

// OnInvalidate registers a hook fired whenever a stored report is
// dropped. Register before first use; not safe to call concurrently
// with GetOrCompute.
func (c *AnalysisCache) OnInvalidate(hook InvalidateHook) {
	c.hooks = append(c.hooks, hook)
}

// GetOrCompute returns the cached report for the identity, computing it
// once if absent. A failed computation leaves the slot empty so the next
// request retries; no partial report is ever stored.
func (c *AnalysisCache) GetOrCompute(ctx context.Context, identity string, compute ComputeFunc) (*models.FindingsReport, error) {
	c.mu.Lock()
	if c.report != nil && c.identity == identity {
		report := c.report
		c.mu.Unlock()
		c.logger.Debug("cache_hit", logging.Identity(identity))
		return report, nil
	}
	// A different upload supersedes the prior report before the new
	// extraction starts, so a failure leaves no stale report behind.
	if c.identity != "" && c.identity != identity {
		c.invalidateLocked()
	}
	c.identity = identity
	c.mu.Unlock()

	result, err, shared := c.group.Do(identity, func() (any, error) {
		c.logger.Info("extraction_started", logging.Identity(identity))
		return compute(ctx)
	})
	if err != nil {
		c.logger.Warn("extraction_failed",
			logging.Identity(identity),
			zap.Error(err),
		)
		return nil, err
	}
	if shared {
		c.logger.Debug("extraction_shared_inflight", logging.Identity(identity))
	}

	report := result.(*models.FindingsReport)

	c.mu.Lock()
	// Only commit if no newer identity arrived while computing.
	if c.identity == identity {
		c.report = report
	}
	c.mu.Unlock()

	return report, nil
}

// Report returns the current report and its identity, if any.
func (c *AnalysisCache) Report() (string, *models.FindingsReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report == nil {
		return "", nil, false
	}
	return c.identity, c.report, true
}

// Invalidate drops any stored report and fires the hooks.
func (c *AnalysisCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity != "" {
		c.invalidateLocked()
		c.identity = ""
	}
}

func (c *AnalysisCache) invalidateLocked() {
	dropped := c.identity
	c.report = nil
	c.logger.Info("report_invalidated", logging.Identity(dropped))
	for _, hook := range c.hooks {
		hook(dropped)
	}
}
