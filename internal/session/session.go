// Package session answers natural-language questions strictly from the
// cached log excerpt and the current findings report.
//
// Investigation is best-effort: an oracle failure becomes an apologetic
// answer, never an error, because one bad answer must not block further
// interaction with the report.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	tberrors "github.com/yughpatel/TraceBack/internal/errors"
	"github.com/yughpatel/TraceBack/internal/logging"
	"github.com/yughpatel/TraceBack/internal/models"
	"github.com/yughpatel/TraceBack/internal/protocol"
)

// ApologyAnswer is returned when the oracle cannot be reached. It is a
// user-facing string, not an error.
const ApologyAnswer = "I'm sorry - I wasn't able to investigate that just now. Please try asking again in a moment."

// Invoker is the oracle surface the session needs.
type Invoker interface {
	Invoke(ctx context.Context, systemInstruction, userPrompt string, structured bool) (string, error)
}

// Session is a bounded-context investigation over one findings report.
// History appends are serialized; a session is safe for concurrent use.
type Session struct {
	invoker  Invoker
	maxTurns int
	logger   *zap.Logger

	mu      sync.Mutex
	id      string
	excerpt *models.LogExcerpt
	report  *models.FindingsReport
	history []models.InvestigationTurn
}

// New creates an unbound session. maxTurns bounds how many prior turns
// are replayed to the oracle as context.
func New(invoker Invoker, maxTurns int, logger *zap.Logger) *Session {
	if logger == nil {
		logger = logging.L()
	}
	return &Session{
		invoker:  invoker,
		maxTurns: maxTurns,
		logger:   logger.With(zap.String("component", "investigation_session")),
	}
}

// Bind scopes the session to a report and its chat-bounded excerpt,
// clearing any prior history. Called when a new extraction completes.
func (s *Session) Bind(excerpt *models.LogExcerpt, report *models.FindingsReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = uuid.NewString()
	s.excerpt = excerpt
	s.report = report
	s.history = nil
	s.logger.Info("session_bound",
		zap.String("session_id", s.id),
		logging.Identity(excerpt.Identity()),
	)
}

// Reset drops the bound context and history. Wired as the analysis
// cache's invalidation hook.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id != "" {
		s.logger.Info("session_reset", zap.String("session_id", s.id))
	}
	s.id = ""
	s.excerpt = nil
	s.report = nil
	s.history = nil
}

// Bound reports whether the session has a report to investigate.
func (s *Session) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report != nil
}

// History returns a copy of the full turn history.
func (s *Session) History() []models.InvestigationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]models.InvestigationTurn, len(s.history))
	copy(history, s.history)
	return history
}

// Ask answers one question from the bound context. The findings report
// is never mutated; only the history grows. Failures are recovered into
// ApologyAnswer.
func (s *Session) Ask(ctx context.Context, question string) string {
	s.mu.Lock()
	if s.report == nil || s.excerpt == nil {
		s.mu.Unlock()
		return "There is no analysis to investigate yet. Upload and analyze a log file first."
	}
	excerpt := s.excerpt
	report := s.report
	recent := s.recentHistoryLocked()
	sessionID := s.id
	s.mu.Unlock()

	prompt := protocol.BuildInvestigationPrompt(question, excerpt, report, recent)

	answer, err := s.invoker.Invoke(ctx, protocol.SystemInstruction, prompt, false)
	if err != nil {
		chatErr := tberrors.NewChatFailedError(err)
		s.logger.Warn("investigation_failed",
			zap.String("session_id", sessionID),
			logging.ErrorCode(string(chatErr.Code)),
			zap.Error(chatErr),
		)
		answer = ApologyAnswer
	}

	s.mu.Lock()
	// Bind/Reset may have raced the oracle call; drop the turn rather
	// than attach it to a different report's history.
	if s.id == sessionID {
		s.history = append(s.history,
			models.InvestigationTurn{Role: models.RoleUser, Content: question},
			models.InvestigationTurn{Role: models.RoleAssistant, Content: answer},
		)
	}
	s.mu.Unlock()

	return answer
}

// recentHistoryLocked returns the most recent maxTurns turns. Bounded
// context, not unbounded replay.
func (s *Session) recentHistoryLocked() []models.InvestigationTurn {
	history := s.history
	if s.maxTurns > 0 && len(history) > s.maxTurns {
		history = history[len(history)-s.maxTurns:]
	}
	recent := make([]models.InvestigationTurn, len(history))
	copy(recent, history)
	return recent
}
