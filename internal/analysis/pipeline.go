// Package analysis wires the extraction pipeline: excerpt in, cached
// findings report out, with an investigation session scoped to the
// current report.
package analysis

import (
	"context"

	"go.uber.org/zap"

	"github.com/yughpatel/TraceBack/internal/cache"
	"github.com/yughpatel/TraceBack/internal/config"
	"github.com/yughpatel/TraceBack/internal/excerpt"
	"github.com/yughpatel/TraceBack/internal/logging"
	"github.com/yughpatel/TraceBack/internal/models"
	"github.com/yughpatel/TraceBack/internal/oracle"
	"github.com/yughpatel/TraceBack/internal/protocol"
	"github.com/yughpatel/TraceBack/internal/report"
	"github.com/yughpatel/TraceBack/internal/session"
)

// Pipeline is the session-scoped analysis flow. One pipeline serves one
// user session; all state dies with it.
type Pipeline struct {
	oracle     session.Invoker
	normalizer *report.Normalizer
	cache      *cache.AnalysisCache
	session    *session.Session
	logger     *zap.Logger

	extractLines int
	chatLines    int
}

// NewPipeline builds a pipeline from configuration.
func NewPipeline(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logging.L()
	}

	client, err := oracle.NewClient(&oracle.Config{
		Models:         cfg.Models,
		APIKey:         cfg.APIKey,
		Endpoint:       cfg.Endpoint,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	return newPipeline(client, cfg, logger), nil
}

// NewPipelineWithInvoker builds a pipeline around an existing oracle,
// mainly for tests.
func NewPipelineWithInvoker(invoker session.Invoker, cfg *config.Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = logging.L()
	}
	return newPipeline(invoker, cfg, logger)
}

func newPipeline(invoker session.Invoker, cfg *config.Config, logger *zap.Logger) *Pipeline {
	p := &Pipeline{
		oracle:       invoker,
		normalizer:   report.NewNormalizer(logger),
		cache:        cache.New(logger),
		session:      session.New(invoker, cfg.HistoryTurns, logger),
		logger:       logger.With(zap.String("component", "pipeline")),
		extractLines: cfg.ExtractLines,
		chatLines:    cfg.ChatLines,
	}

	// Superseding a report orphans its investigation history.
	p.cache.OnInvalidate(func(string) { p.session.Reset() })

	return p
}

// AnalyzeFile reads a log file and runs extraction.
func (p *Pipeline) AnalyzeFile(ctx context.Context, path string) (*models.FindingsReport, error) {
	logExcerpt, err := excerpt.ReadFile(path, p.extractLines)
	if err != nil {
		return nil, err
	}
	return p.Analyze(ctx, logExcerpt)
}

// Analyze runs extraction for an excerpt, served from cache when the
// same file identity was already analyzed. On a fresh extraction the
// investigation session is re-bound to the new report.
func (p *Pipeline) Analyze(ctx context.Context, logExcerpt *models.LogExcerpt) (*models.FindingsReport, error) {
	computed := false

	result, err := p.cache.GetOrCompute(ctx, logExcerpt.Identity(), func(ctx context.Context) (*models.FindingsReport, error) {
		computed = true
		return p.extract(ctx, logExcerpt)
	})
	if err != nil {
		return nil, err
	}

	if computed {
		p.session.Bind(logExcerpt.Bounded(p.chatLines), result)
	}

	return result, nil
}

// extract performs one oracle round trip and normalization.
func (p *Pipeline) extract(ctx context.Context, logExcerpt *models.LogExcerpt) (*models.FindingsReport, error) {
	systemInstruction, userPrompt := protocol.BuildExtractionRequest(logExcerpt)

	raw, err := p.oracle.Invoke(ctx, systemInstruction, userPrompt, true)
	if err != nil {
		return nil, err
	}

	result, err := p.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}

	p.logger.Info("extraction_complete",
		logging.Identity(logExcerpt.Identity()),
		logging.Lines(len(logExcerpt.Lines)),
		logging.Count(len(result.Findings)),
		zap.Int("global_risk_score", result.Summary.GlobalRiskScore),
	)

	return result, nil
}

// Ask forwards an investigation question to the bound session.
func (p *Pipeline) Ask(ctx context.Context, question string) string {
	return p.session.Ask(ctx, question)
}

// Report returns the currently cached report, if any.
func (p *Pipeline) Report() (string, *models.FindingsReport, bool) {
	return p.cache.Report()
}

// Session exposes the investigation session (history rendering).
func (p *Pipeline) Session() *session.Session {
	return p.session
}

// Invalidate drops the cached report and resets the session.
func (p *Pipeline) Invalidate() {
	p.cache.Invalidate()
}
