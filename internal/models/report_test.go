package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRiskBand tests the score-to-band mapping at the boundaries.
func TestRiskBand(t *testing.T) {
	tests := []struct {
		name  string
		score int
		want  string
	}{
		{name: "zero is informational", score: 0, want: "Informational"},
		{name: "three is informational", score: 3, want: "Informational"},
		{name: "four is warning", score: 4, want: "Warning"},
		{name: "seven is warning", score: 7, want: "Warning"},
		{name: "eight is critical", score: 8, want: "Critical"},
		{name: "ten is critical", score: 10, want: "Critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskBand(tt.score))
		})
	}
}

// TestNormalizeStatus tests status coercion to the enumerated set.
func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "exact allowed", input: "Allowed", want: StatusAllowed},
		{name: "exact blocked", input: "Blocked", want: StatusBlocked},
		{name: "lowercase allowed", input: "allowed", want: StatusAllowed},
		{name: "uppercase blocked", input: "BLOCKED", want: StatusBlocked},
		{name: "whitespace trimmed", input: "  blocked  ", want: StatusBlocked},
		{name: "unknown value defaults", input: "Mitigated", want: StatusObserved},
		{name: "empty defaults", input: "", want: StatusObserved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.input))
		})
	}
}

// TestClampRisk tests score clamping into the 0-10 scale.
func TestClampRisk(t *testing.T) {
	assert.Equal(t, 0, ClampRisk(-5))
	assert.Equal(t, 0, ClampRisk(0))
	assert.Equal(t, 7, ClampRisk(7))
	assert.Equal(t, 10, ClampRisk(10))
	assert.Equal(t, 10, ClampRisk(95))
}

// TestReportJSONRoundTrip tests that the wire field names survive a
// serialize/parse cycle.
func TestReportJSONRoundTrip(t *testing.T) {
	original := &FindingsReport{
		Summary: Summary{
			TotalThreats:    1,
			MostActiveIP:    "203.0.113.7",
			GlobalRiskScore: 8,
		},
		Findings: []Finding{
			{
				Timestamp:  "2026-08-30T10:00:00Z",
				AttackerIP: "203.0.113.7",
				AttackType: "Brute Force",
				RiskScore:  8,
				Status:     StatusBlocked,
				Snippet:    "Failed password for root",
			},
		},
		Educational: "Repeated failed logins indicate a brute-force attempt.",
		Mitigations: map[string][]string{
			"iptables": {"iptables -A INPUT -s 203.0.113.7 -j DROP"},
		},
	}

	data, err := original.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"summary_metrics"`)
	assert.Contains(t, string(data), `"most_active_ip"`)
	assert.Contains(t, string(data), `"global_risk_score"`)
	assert.Contains(t, string(data), `"mitigation_suggestions"`)

	parsed, err := ReportFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}
