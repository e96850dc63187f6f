// Package models defines the core data structures used across the agent.
package models

import (
	"encoding/json"
	"strings"
)

// Risk score bounds for the 0-10 scale used by the extraction protocol.
const (
	RiskMin = 0
	RiskMax = 10
)

// Finding outcome statuses. The oracle is instructed to emit exactly
// these values; the normalizer coerces anything else to StatusObserved.
const (
	StatusObserved = "Observed"
	StatusAllowed  = "Allowed"
	StatusBlocked  = "Blocked"
)

// Investigation turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValueNA is the placeholder for string fields the oracle omitted.
const ValueNA = "N/A"

// Summary holds the aggregate metrics of one extraction pass.
type Summary struct {
	// TotalThreats is the number of findings. Always reconciled against
	// len(Findings) by the normalizer, never trusted from the oracle.
	TotalThreats int `json:"total_threats"`

	// MostActiveIP is the most frequently implicated source address.
	MostActiveIP string `json:"most_active_ip"`

	// GlobalRiskScore is the overall risk on the 0-10 scale.
	GlobalRiskScore int `json:"global_risk_score"`
}

// Finding is one discrete suspicious pattern extracted from the log.
type Finding struct {
	// Timestamp as extracted from the log line; not necessarily parseable.
	Timestamp string `json:"timestamp"`

	// AttackerIP is the implicated source address.
	AttackerIP string `json:"attacker_ip"`

	// AttackType is an open label (e.g. "Brute Force", "SQLi"); the
	// oracle decides the vocabulary.
	AttackType string `json:"attack_type"`

	// RiskScore on the 0-10 scale.
	RiskScore int `json:"risk_score"`

	// Status is one of Observed/Allowed/Blocked.
	Status string `json:"status"`

	// Snippet is a short raw excerpt supporting the finding.
	Snippet string `json:"snippet,omitempty"`

	// Explanation is a free-text rationale for this finding.
	Explanation string `json:"explanation,omitempty"`
}

// FindingsReport is the canonical structured result of one extraction
// pass over one uploaded file. Immutable once stored in the cache; a new
// upload replaces it entirely.
type FindingsReport struct {
	Summary Summary `json:"summary_metrics"`

	// Findings is never nil; an empty slice means no suspicious patterns.
	Findings []Finding `json:"findings"`

	// Educational is a markdown rationale explaining the top threats.
	Educational string `json:"educational_explanation"`

	// Mitigations maps a mitigation channel (iptables, ufw, aws_sg) to an
	// ordered list of suggested commands or rule descriptions.
	Mitigations map[string][]string `json:"mitigation_suggestions"`
}

// ToJSON serializes the report to JSON bytes.
func (r *FindingsReport) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ReportFromJSON deserializes a FindingsReport from JSON bytes.
func ReportFromJSON(data []byte) (*FindingsReport, error) {
	var report FindingsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// InvestigationTurn is one question or answer in a bounded investigation.
type InvestigationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RiskBand maps a 0-10 risk score to the band names used by the
// extraction protocol.
func RiskBand(score int) string {
	switch {
	case score >= 8:
		return "Critical"
	case score >= 4:
		return "Warning"
	default:
		return "Informational"
	}
}

// NormalizeStatus coerces an arbitrary status string to the enumerated
// set, defaulting to StatusObserved.
func NormalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allowed":
		return StatusAllowed
	case "blocked":
		return StatusBlocked
	default:
		return StatusObserved
	}
}

// ClampRisk clamps a risk score into the declared scale.
func ClampRisk(score int) int {
	if score < RiskMin {
		return RiskMin
	}
	if score > RiskMax {
		return RiskMax
	}
	return score
}
