package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// LogExcerpt is an ordered, size-bounded sequence of log lines derived
// from one uploaded file. Truncation is deterministic: the first MaxLines
// lines are kept. Treat as read-only after construction.
type LogExcerpt struct {
	// Name is the uploaded file name (base name, no directory).
	Name string `json:"name"`

	// Lines are the bounded log lines, in file order.
	Lines []string `json:"lines"`

	// TotalLines is the line count of the full file before truncation.
	TotalLines int `json:"total_lines"`

	// Truncated reports whether Lines is a strict prefix of the file.
	Truncated bool `json:"truncated"`

	// Fingerprint is the hex SHA-256 of the full raw content.
	Fingerprint string `json:"fingerprint"`
}

// NewLogExcerpt builds an excerpt from raw lines, keeping at most
// maxLines and fingerprinting the full input. The bound applies to the
// excerpt only; the fingerprint always covers every line so that two
// files differing beyond the bound still get distinct identities.
func NewLogExcerpt(name string, lines []string, maxLines int) *LogExcerpt {
	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}

	bounded := lines
	truncated := false
	if maxLines > 0 && len(lines) > maxLines {
		bounded = lines[:maxLines]
		truncated = true
	}

	// Copy so later mutation of the caller's slice cannot leak in.
	kept := make([]string, len(bounded))
	copy(kept, bounded)

	return &LogExcerpt{
		Name:        name,
		Lines:       kept,
		TotalLines:  len(lines),
		Truncated:   truncated,
		Fingerprint: hex.EncodeToString(h.Sum(nil)),
	}
}

// Bounded returns a derived excerpt limited to maxLines. The identity
// fields (Name, Fingerprint, TotalLines) are preserved so the derived
// view still refers to the same uploaded file.
func (e *LogExcerpt) Bounded(maxLines int) *LogExcerpt {
	if maxLines <= 0 || len(e.Lines) <= maxLines {
		return e
	}
	kept := make([]string, maxLines)
	copy(kept, e.Lines[:maxLines])
	return &LogExcerpt{
		Name:        e.Name,
		Lines:       kept,
		TotalLines:  e.TotalLines,
		Truncated:   true,
		Fingerprint: e.Fingerprint,
	}
}

// Content joins the bounded lines for embedding into a prompt.
func (e *LogExcerpt) Content() string {
	return strings.Join(e.Lines, "\n")
}

// Identity keys the analysis cache. Name alone is not enough: two
// different files can share a name across uploads, so the content
// fingerprint is part of the key.
func (e *LogExcerpt) Identity() string {
	return e.Name + "@" + e.Fingerprint
}
