// Package server exposes the analysis pipeline over HTTP for the
// rendering frontend: file upload and extraction, report retrieval, and
// the interactive investigation exchange.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yughpatel/TraceBack/internal/analysis"
	tberrors "github.com/yughpatel/TraceBack/internal/errors"
	"github.com/yughpatel/TraceBack/internal/excerpt"
	"github.com/yughpatel/TraceBack/internal/logging"
)

// Config holds server configuration.
type Config struct {
	// Listen is the bind address (host:port).
	Listen string

	// MaxUploadBytes caps the accepted upload size.
	// Default: 32MB
	MaxUploadBytes int64

	// ExtractLines bounds the excerpt built from an upload.
	ExtractLines int

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// Logger is the logger instance.
	Logger *zap.Logger
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8690",
		MaxUploadBytes:  32 * 1024 * 1024,
		ExtractLines:    5000,
		ShutdownTimeout: 10 * time.Second,
		Logger:          logging.L(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return tberrors.NewConfigValidationError("Listen", c.Listen, "bind address is required")
	}
	if c.MaxUploadBytes <= 0 {
		return tberrors.NewConfigValidationError("MaxUploadBytes", c.MaxUploadBytes, "must be positive")
	}
	if c.ExtractLines <= 0 {
		return tberrors.NewConfigValidationError("ExtractLines", c.ExtractLines, "must be positive")
	}
	return nil
}

// Server serves the analysis API.
type Server struct {
	config   *Config
	pipeline *analysis.Pipeline
	logger   *zap.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// NewServer creates a server around an analysis pipeline.
func NewServer(cfg *Config, pipeline *analysis.Pipeline) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if pipeline == nil {
		return nil, tberrors.NewConfigValidationError("pipeline", nil, "analysis pipeline is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.L()
	}

	return &Server{
		config:   cfg,
		pipeline: pipeline,
		logger:   logger.With(zap.String("component", "http_server")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}, nil
}

// Routes returns the HTTP handler for all endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("POST /api/investigate", s.handleInvestigate)
	mux.HandleFunc("GET /ws/investigate", s.handleInvestigateWS)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.config.Listen,
		Handler: s.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server_listening", zap.String("addr", s.config.Listen))
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		err := s.httpSrv.Shutdown(shutdownCtx)
		s.logger.Info("server_stopped")
		return err
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleAnalyze accepts a multipart upload and runs extraction. The same
// file re-uploaded returns the cached report without a new oracle call.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := logging.WithContext(requestID, "analyze")

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing 'file' upload field", requestID)
		return
	}
	defer file.Close()

	logExcerpt, err := excerpt.FromReader(header.Filename, file, s.config.ExtractLines)
	if err != nil {
		logger.Warn("upload_read_failed", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, "could not read uploaded file", requestID)
		return
	}

	logger.Info("upload_received",
		logging.Path(header.Filename),
		logging.Lines(len(logExcerpt.Lines)),
		logging.Identity(logExcerpt.Identity()),
	)

	result, err := s.pipeline.Analyze(r.Context(), logExcerpt)
	if err != nil {
		logger.Error("analysis_failed",
			logging.ErrorCode(string(tberrors.GetErrorCode(err))),
			zap.Error(err),
		)
		s.writeError(w, statusForError(err), "analysis failed: "+publicMessage(err), requestID)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleReport returns the current cached report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	_, result, ok := s.pipeline.Report()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no report available; analyze a log file first", "")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type investigateRequest struct {
	Question string `json:"question"`
}

type investigateResponse struct {
	Answer string `json:"answer"`
}

// handleInvestigate answers one question. Chat failures surface as an
// apologetic answer with 200, never as a server error.
func (s *Server) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	var req investigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		s.writeError(w, http.StatusBadRequest, "body must be JSON with a non-empty 'question'", "")
		return
	}

	answer := s.pipeline.Ask(r.Context(), req.Question)
	s.writeJSON(w, http.StatusOK, investigateResponse{Answer: answer})
}

// handleInvestigateWS runs the investigation exchange over a websocket:
// each text message is a question, each reply an answer.
func (s *Server) handleInvestigateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket_upgrade_failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	logger := s.logger.With(zap.String("ws_session", sessionID))
	logger.Info("websocket_opened")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket_read_error", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		question := string(data)
		if question == "" {
			continue
		}

		answer := s.pipeline.Ask(r.Context(), question)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(answer)); err != nil {
			logger.Warn("websocket_write_error", zap.Error(err))
			return
		}
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response_encode_failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, requestID string) {
	s.writeJSON(w, status, errorResponse{
		Error:     message,
		RequestID: requestID,
	})
}

// statusForError maps the error taxonomy to HTTP statuses: malformed
// oracle output is 422 (upstream answered, content unusable), anything
// oracle-side is 502, configuration problems are 500.
func statusForError(err error) int {
	switch tberrors.GetErrorCode(err) {
	case tberrors.ErrCodeReportMalformed, tberrors.ErrCodeOracleMalformed:
		return http.StatusUnprocessableEntity
	case tberrors.ErrCodeOracleUnavailable, tberrors.ErrCodeOracleNoCandidate:
		return http.StatusBadGateway
	case tberrors.ErrCodeIngestFileNotFound, tberrors.ErrCodeIngestReadFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps diagnostics useful without leaking credentials;
// TracebackError messages never carry the API key.
func publicMessage(err error) string {
	var tbErr *tberrors.TracebackError
	if errors.As(err, &tbErr) {
		return tbErr.Message
	}
	return "internal error"
}
