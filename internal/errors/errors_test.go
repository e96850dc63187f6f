// Package errors_test provides tests for the traceback error types.
package errors_test

import (
	"errors"
	"testing"

	tberrors "github.com/yughpatel/TraceBack/internal/errors"
)

func TestErrorCodes(t *testing.T) {
	t.Run("error codes follow ranges", func(t *testing.T) {
		// Configuration: 1xxx
		if tberrors.ErrCodeConfigInvalid[:12] != "TRACEBACK_10" {
			t.Errorf("config errors should be 1xxx, got %s", tberrors.ErrCodeConfigInvalid)
		}

		// Ingestion: 2xxx
		if tberrors.ErrCodeIngestFileNotFound[:12] != "TRACEBACK_20" {
			t.Errorf("ingest errors should be 2xxx, got %s", tberrors.ErrCodeIngestFileNotFound)
		}

		// Oracle: 3xxx
		if tberrors.ErrCodeOracleUnavailable[:12] != "TRACEBACK_30" {
			t.Errorf("oracle errors should be 3xxx, got %s", tberrors.ErrCodeOracleUnavailable)
		}

		// Report: 4xxx
		if tberrors.ErrCodeReportMalformed[:12] != "TRACEBACK_40" {
			t.Errorf("report errors should be 4xxx, got %s", tberrors.ErrCodeReportMalformed)
		}

		// Investigation: 5xxx
		if tberrors.ErrCodeChatFailed[:12] != "TRACEBACK_50" {
			t.Errorf("chat errors should be 5xxx, got %s", tberrors.ErrCodeChatFailed)
		}
	})
}

func TestTracebackError(t *testing.T) {
	t.Run("Error method formats correctly", func(t *testing.T) {
		err := tberrors.NewTracebackError(
			tberrors.ErrCodeConfigInvalid,
			"test error",
			nil,
		)
		expected := "[TRACEBACK_1001] test error"
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("original error")
		err := tberrors.NewTracebackError(
			tberrors.ErrCodeConfigInvalid,
			"wrapped error",
			cause,
		)
		result := err.Error()
		if result != "[TRACEBACK_1001] wrapped error: original error" {
			t.Errorf("unexpected error string: %s", result)
		}
	})

	t.Run("WithContext adds context", func(t *testing.T) {
		err := tberrors.NewTracebackError(
			tberrors.ErrCodeConfigInvalid,
			"test",
			nil,
		)
		err = err.WithContext("key", "value")
		if err.Context["key"] != "value" {
			t.Error("context not set correctly")
		}
	})

	t.Run("ToMap serializes correctly", func(t *testing.T) {
		err := tberrors.NewTracebackError(
			tberrors.ErrCodeOracleUnavailable,
			"oracle down",
			errors.New("dial refused"),
		)
		m := err.ToMap()
		if m["error_code"] != "TRACEBACK_3001" {
			t.Errorf("unexpected error_code: %v", m["error_code"])
		}
		if m["cause"] != "dial refused" {
			t.Errorf("unexpected cause: %v", m["cause"])
		}
	})

	t.Run("Unwrap exposes the cause", func(t *testing.T) {
		cause := errors.New("root")
		err := tberrors.NewTracebackError(tberrors.ErrCodeUnknown, "x", cause)
		if !errors.Is(err, cause) {
			t.Error("errors.Is should match the cause")
		}
	})
}

func TestSentinelMatching(t *testing.T) {
	t.Run("model not found matches through wrapping", func(t *testing.T) {
		err := tberrors.NewOracleNoCandidateError(
			[]string{"a", "b"},
			tberrors.ErrModelNotFound,
		)
		if !errors.Is(err, tberrors.ErrModelNotFound) {
			t.Error("wrapped sentinel should match")
		}
	})

	t.Run("malformed oracle error carries its sentinel", func(t *testing.T) {
		err := tberrors.NewOracleMalformedError("model-x", "empty candidates")
		if !errors.Is(err, tberrors.ErrOracleMalformed) {
			t.Error("malformed error should match its sentinel")
		}
	})
}

func TestRetryability(t *testing.T) {
	retryable := []error{
		tberrors.NewOracleUnavailableError("m", errors.New("timeout")),
		tberrors.NewOracleNoCandidateError([]string{"m"}, errors.New("x")),
		tberrors.NewChatFailedError(errors.New("x")),
	}
	for _, err := range retryable {
		if !tberrors.IsRetryableError(err) {
			t.Errorf("expected retryable: %v", err)
		}
	}

	terminal := []error{
		tberrors.NewOracleMalformedError("m", "junk"),
		tberrors.NewReportMalformedError("junk", nil),
		tberrors.NewConfigMissingKeyError("GEMINI_API_KEY"),
		errors.New("plain error"),
	}
	for _, err := range terminal {
		if tberrors.IsRetryableError(err) {
			t.Errorf("expected not retryable: %v", err)
		}
	}
}

func TestGetErrorCode(t *testing.T) {
	err := tberrors.NewIngestFileNotFoundError("/var/log/missing.log")
	if tberrors.GetErrorCode(err) != tberrors.ErrCodeIngestFileNotFound {
		t.Errorf("unexpected code: %s", tberrors.GetErrorCode(err))
	}
	if tberrors.GetErrorCode(errors.New("plain")) != tberrors.ErrCodeUnknown {
		t.Error("plain errors should map to the unknown code")
	}
}
