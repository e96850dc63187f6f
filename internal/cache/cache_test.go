package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yughpatel/TraceBack/internal/models"
)

func testReport(risk int) *models.FindingsReport {
	return &models.FindingsReport{
		Summary:     models.Summary{GlobalRiskScore: risk, MostActiveIP: models.ValueNA},
		Findings:    []models.Finding{},
		Mitigations: map[string][]string{},
	}
}

// TestGetOrComputeComputesOnce tests that repeated requests for the
// same identity hit the cache and return the identical report object.
func TestGetOrComputeComputesOnce(t *testing.T) {
	c := New(zap.NewNop())
	var calls int32

	compute := func(_ context.Context) (*models.FindingsReport, error) {
		atomic.AddInt32(&calls, 1)
		return testReport(5), nil
	}

	first, err := c.GetOrCompute(context.Background(), "a.log@abc", compute)
	require.NoError(t, err)

	second, err := c.GetOrCompute(context.Background(), "a.log@abc", compute)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Same(t, first, second, "cache hit must return the stored object")
}

// TestGetOrComputeNewIdentityRecomputes tests that a different file
// identity replaces the stored report and fires the invalidation hooks.
func TestGetOrComputeNewIdentityRecomputes(t *testing.T) {
	c := New(zap.NewNop())

	var invalidated []string
	c.OnInvalidate(func(identity string) {
		invalidated = append(invalidated, identity)
	})

	_, err := c.GetOrCompute(context.Background(), "a.log@v1", func(_ context.Context) (*models.FindingsReport, error) {
		return testReport(3), nil
	})
	require.NoError(t, err)

	second, err := c.GetOrCompute(context.Background(), "a.log@v2", func(_ context.Context) (*models.FindingsReport, error) {
		return testReport(8), nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.log@v1"}, invalidated, "hook fires with the superseded identity")
	assert.Equal(t, 8, second.Summary.GlobalRiskScore)

	identity, stored, ok := c.Report()
	require.True(t, ok)
	assert.Equal(t, "a.log@v2", identity)
	assert.Same(t, second, stored)
}

// TestGetOrComputeFailureDoesNotPoison tests that a failed extraction
// leaves the slot empty so the next call retries.
func TestGetOrComputeFailureDoesNotPoison(t *testing.T) {
	c := New(zap.NewNop())
	var calls int32

	boom := errors.New("oracle down")
	_, err := c.GetOrCompute(context.Background(), "a.log@x", func(_ context.Context) (*models.FindingsReport, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, _, ok := c.Report()
	assert.False(t, ok, "no report may be stored after a failure")

	report, err := c.GetOrCompute(context.Background(), "a.log@x", func(_ context.Context) (*models.FindingsReport, error) {
		atomic.AddInt32(&calls, 1)
		return testReport(2), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, report.Summary.GlobalRiskScore)
}

// TestGetOrComputeSharesInflight tests that concurrent requests for the
// same identity share a single computation.
func TestGetOrComputeSharesInflight(t *testing.T) {
	c := New(zap.NewNop())
	var calls int32
	gate := make(chan struct{})

	compute := func(_ context.Context) (*models.FindingsReport, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return testReport(4), nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*models.FindingsReport, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			report, err := c.GetOrCompute(context.Background(), "a.log@s", compute)
			assert.NoError(t, err)
			results[idx] = report
		}(i)
	}

	// Let the goroutines pile onto the in-flight computation.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "one extraction serves all concurrent callers")
	for _, report := range results {
		assert.Equal(t, 4, report.Summary.GlobalRiskScore)
	}
}

// TestInvalidate tests explicit invalidation.
func TestInvalidate(t *testing.T) {
	c := New(zap.NewNop())

	var hookCalls int
	c.OnInvalidate(func(string) { hookCalls++ })

	_, err := c.GetOrCompute(context.Background(), "a.log@x", func(_ context.Context) (*models.FindingsReport, error) {
		return testReport(1), nil
	})
	require.NoError(t, err)

	c.Invalidate()
	_, _, ok := c.Report()
	assert.False(t, ok)
	assert.Equal(t, 1, hookCalls)

	// Invalidate on an empty cache is a no-op.
	c.Invalidate()
	assert.Equal(t, 1, hookCalls)
}

// TestReportEmpty tests the accessor on a fresh cache.
func TestReportEmpty(t *testing.T) {
	c := New(zap.NewNop())
	identity, report, ok := c.Report()
	assert.False(t, ok)
	assert.Empty(t, identity)
	assert.Nil(t, report)
}
