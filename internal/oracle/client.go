// Package oracle invokes the external structured-reasoning service and
// insulates callers from its instability.
//
// The client walks an ordered list of model candidates, most capable
// first. A failure classified as "model not found" moves to the next
// candidate; any other failure is surfaced immediately without retrying
// the same request. Once a candidate succeeds the rest are never tried.
package oracle

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	tberrors "github.com/yughpatel/TraceBack/internal/errors"
	"github.com/yughpatel/TraceBack/internal/logging"
)

// Config holds oracle client configuration.
type Config struct {
	// Models is the fallback chain, tried in strict priority order.
	Models []string

	// APIKey is the service credential.
	APIKey string

	// Endpoint overrides the service base URL; empty selects the default.
	Endpoint string

	// RequestTimeout bounds each individual model invocation. Expiry is
	// reported as oracle-unavailable.
	RequestTimeout time.Duration

	// Provider overrides the transport, mainly for tests.
	Provider Provider

	// Logger is the logger instance.
	Logger *zap.Logger
}

// DefaultConfig returns the default oracle client configuration.
func DefaultConfig() *Config {
	return &Config{
		Models: []string{
			"gemini-3-flash-preview",
			"gemini-2.5-flash",
			"gemini-2.5-pro",
		},
		RequestTimeout: 120 * time.Second,
		Logger:         logging.L(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return tberrors.NewConfigValidationError("Models", c.Models, "at least one model is required")
	}
	if c.APIKey == "" && c.Provider == nil {
		return tberrors.NewConfigMissingKeyError("GEMINI_API_KEY")
	}
	if c.RequestTimeout <= 0 {
		return tberrors.NewConfigValidationError("RequestTimeout", c.RequestTimeout, "must be positive")
	}
	return nil
}

// Client invokes the reasoning service with model fallback. It keeps no
// state beyond its configuration; every call is independent.
type Client struct {
	config   *Config
	provider Provider
	logger   *zap.Logger
}

// NewClient creates an oracle client with the given configuration.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.L()
	}

	provider := cfg.Provider
	if provider == nil {
		// Transport timeout stays off; the per-call context governs.
		provider = NewGeminiProvider(cfg.APIKey, cfg.Endpoint, 0)
	}

	return &Client{
		config:   cfg,
		provider: provider,
		logger:   logger.With(zap.String("component", "oracle_client")),
	}, nil
}

// Invoke sends one request through the fallback chain and returns the
// raw response text.
func (c *Client) Invoke(ctx context.Context, systemInstruction, userPrompt string, structured bool) (string, error) {
	var lastErr error
	attempted := make([]string, 0, len(c.config.Models))

	for _, model := range c.config.Models {
		attempted = append(attempted, model)

		callCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		startTime := time.Now()
		text, err := c.provider.Generate(callCtx, model, systemInstruction, userPrompt, structured)
		cancel()

		if err == nil {
			c.logger.Info("oracle_call_succeeded",
				logging.Model(model),
				logging.Duration(time.Since(startTime)),
				zap.Bool("structured", structured),
			)
			return text, nil
		}

		lastErr = err

		if errors.Is(err, tberrors.ErrModelNotFound) {
			c.logger.Warn("oracle_model_not_found",
				logging.Model(model),
				zap.Error(err),
			)
			continue
		}

		if errors.Is(err, tberrors.ErrOracleMalformed) {
			c.logger.Error("oracle_response_malformed",
				logging.Model(model),
				zap.Error(err),
			)
			return "", tberrors.NewOracleMalformedError(model, err.Error())
		}

		// Anything else is surfaced without trying further candidates:
		// a network or quota failure would hit them all the same way.
		c.logger.Error("oracle_call_failed",
			logging.Model(model),
			logging.Duration(time.Since(startTime)),
			zap.Error(err),
		)
		return "", tberrors.NewOracleUnavailableError(model, err)
	}

	c.logger.Error("oracle_candidates_exhausted",
		zap.Strings("attempted", attempted),
		zap.Error(lastErr),
	)
	return "", tberrors.NewOracleNoCandidateError(attempted, lastErr)
}

// Models returns the configured fallback chain, priority order.
func (c *Client) Models() []string {
	models := make([]string, len(c.config.Models))
	copy(models, c.config.Models)
	return models
}
