package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	tberrors "github.com/yughpatel/TraceBack/internal/errors"
	"github.com/yughpatel/TraceBack/internal/models"
)

const fullReport = `{
  "summary_metrics": {"total_threats": 2, "most_active_ip": "203.0.113.7", "global_risk_score": 9},
  "findings": [
    {"timestamp": "2026-08-30T10:00:00Z", "attacker_ip": "203.0.113.7", "attack_type": "Brute Force", "risk_score": 9, "status": "Blocked", "snippet": "Failed password", "explanation": "Repeated failures"},
    {"timestamp": "2026-08-30T10:05:00Z", "attacker_ip": "198.51.100.2", "attack_type": "SQLi", "risk_score": 6, "status": "Observed"}
  ],
  "educational_explanation": "Two distinct attack patterns were observed.",
  "mitigation_suggestions": {"iptables": ["iptables -A INPUT -s 203.0.113.7 -j DROP"], "ufw": []}
}`

// TestNormalizeWellFormed tests the clean-path parse.
func TestNormalizeWellFormed(t *testing.T) {
	n := NewNormalizer(zap.NewNop())

	report, err := n.Normalize(fullReport)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.TotalThreats)
	assert.Equal(t, "203.0.113.7", report.Summary.MostActiveIP)
	assert.Equal(t, 9, report.Summary.GlobalRiskScore)

	require.Len(t, report.Findings, 2)
	assert.Equal(t, "Brute Force", report.Findings[0].AttackType)
	assert.Equal(t, models.StatusBlocked, report.Findings[0].Status)
	assert.Equal(t, "Failed password", report.Findings[0].Snippet)
	assert.Equal(t, models.StatusObserved, report.Findings[1].Status)

	assert.Equal(t, "Two distinct attack patterns were observed.", report.Educational)
	assert.Equal(t, []string{"iptables -A INPUT -s 203.0.113.7 -j DROP"}, report.Mitigations["iptables"])
}

// TestStripWrapping tests fence and prose removal, including that
// already-clean input is a fixed point.
func TestStripWrapping(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "clean json passes through",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "json code fence",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "bare code fence",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "leading and trailing prose",
			input: "Here is your report:\n{\"a\": 1}\nLet me know if you need more.",
			want:  `{"a": 1}`,
		},
		{
			name:  "fence plus prose",
			input: "Sure!\n```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "whitespace only",
			input: "   \n\t ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripWrapping(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, StripWrapping(got), "stripping must be idempotent")
		})
	}
}

// TestNormalizeReconcilesTotalThreats tests that the oracle's claimed
// total is always overwritten by the actual finding count.
func TestNormalizeReconcilesTotalThreats(t *testing.T) {
	n := NewNormalizer(zap.NewNop())

	raw := `{
	  "summary_metrics": {"total_threats": 5, "most_active_ip": "1.2.3.4", "global_risk_score": 3},
	  "findings": [
	    {"timestamp": "t1", "attacker_ip": "1.2.3.4", "attack_type": "XSS", "risk_score": 3, "status": "Observed"},
	    {"timestamp": "t2", "attacker_ip": "1.2.3.4", "attack_type": "XSS", "risk_score": 3, "status": "Observed"},
	    {"timestamp": "t3", "attacker_ip": "1.2.3.4", "attack_type": "XSS", "risk_score": 3, "status": "Observed"}
	  ]
	}`

	report, err := n.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Summary.TotalThreats, "claimed total of 5 must be recomputed from findings")
}

// TestNormalizeMissingSummary tests derivation when the oracle omits
// summary_metrics entirely.
func TestNormalizeMissingSummary(t *testing.T) {
	n := NewNormalizer(zap.NewNop())

	raw := `{
	  "findings": [
	    {"timestamp": "t1", "attacker_ip": "10.0.0.1", "attack_type": "SQLi", "risk_score": 7, "status": "Allowed"},
	    {"timestamp": "t2", "attacker_ip": "10.0.0.2", "attack_type": "XSS", "risk_score": 4, "status": "Observed"},
	    {"timestamp": "t3", "attacker_ip": "10.0.0.1", "attack_type": "SQLi", "risk_score": 6, "status": "Observed"}
	  ]
	}`

	report, err := n.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Summary.TotalThreats)
	assert.Equal(t, "10.0.0.1", report.Summary.MostActiveIP, "derived from finding frequency")
	assert.Equal(t, 7, report.Summary.GlobalRiskScore, "derived as max finding risk")
	assert.NotNil(t, report.Mitigations)
	assert.Empty(t, report.Mitigations)
}

// TestNormalizeFieldDefaulting tests per-finding defaults and clamping.
func TestNormalizeFieldDefaulting(t *testing.T) {
	n := NewNormalizer(zap.NewNop())

	raw := `{
	  "findings": [
	    {"risk_score": 95, "status": "Mitigated"},
	    {"timestamp": "t", "attacker_ip": "8.8.8.8", "attack_type": "Scan", "risk_score": -2, "status": "blocked"}
	  ]
	}`

	report, err := n.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, report.Findings, 2)

	first := report.Findings[0]
	assert.Equal(t, models.ValueNA, first.Timestamp)
	assert.Equal(t, models.ValueNA, first.AttackerIP)
	assert.Equal(t, models.ValueNA, first.AttackType)
	assert.Equal(t, 10, first.RiskScore, "clamped to scale max")
	assert.Equal(t, models.StatusObserved, first.Status, "unknown status coerced")

	second := report.Findings[1]
	assert.Equal(t, 0, second.RiskScore, "clamped to scale min")
	assert.Equal(t, models.StatusBlocked, second.Status)
}

// TestNormalizeDropsNonObjectFindings tests that junk entries inside the
// findings array are skipped, not fatal.
func TestNormalizeDropsNonObjectFindings(t *testing.T) {
	n := NewNormalizer(zap.NewNop())

	raw := `{
	  "findings": [
	    "just a string",
	    42,
	    {"timestamp": "t", "attacker_ip": "1.1.1.1", "attack_type": "Scan", "risk_score": 2, "status": "Observed"}
	  ]
	}`

	report, err := n.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "1.1.1.1", report.Findings[0].AttackerIP)
	assert.Equal(t, 1, report.Summary.TotalThreats)
}

// TestNormalizeNoFindings tests the clean-log shape.
func TestNormalizeNoFindings(t *testing.T) {
	n := NewNormalizer(zap.NewNop())

	report, err := n.Normalize(`{"findings": [], "educational_explanation": "Nothing suspicious."}`)
	require.NoError(t, err)
	assert.NotNil(t, report.Findings)
	assert.Empty(t, report.Findings)
	assert.Equal(t, 0, report.Summary.TotalThreats)
	assert.Equal(t, models.ValueNA, report.Summary.MostActiveIP)
	assert.Equal(t, 0, report.Summary.GlobalRiskScore)
}

// TestNormalizeMalformedInput tests the hard-failure paths.
func TestNormalizeMalformedInput(t *testing.T) {
	n := NewNormalizer(zap.NewNop())

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "whitespace", input: "   "},
		{name: "prose with no object", input: "I could not analyze that log file."},
		{name: "broken json", input: `{"findings": [`},
		{name: "fence around broken json", input: "```json\n{\"findings\": [\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.input)
			require.Error(t, err)
			assert.Equal(t, tberrors.ErrCodeReportMalformed, tberrors.GetErrorCode(err))
		})
	}
}

// TestNormalizeNumericCoercion tests tolerant number handling: floats
// and numeric strings both land as integers.
func TestNormalizeNumericCoercion(t *testing.T) {
	n := NewNormalizer(zap.NewNop())

	raw := `{
	  "summary_metrics": {"total_threats": "1", "most_active_ip": "2.2.2.2", "global_risk_score": 8.6},
	  "findings": [
	    {"timestamp": "t", "attacker_ip": "2.2.2.2", "attack_type": "Scan", "risk_score": "7", "status": "Observed"}
	  ]
	}`

	report, err := n.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 8, report.Summary.GlobalRiskScore)
	assert.Equal(t, 7, report.Findings[0].RiskScore)
}

// TestNormalizeMitigationChannels tests that non-list channels are
// dropped while valid ones survive.
func TestNormalizeMitigationChannels(t *testing.T) {
	n := NewNormalizer(zap.NewNop())

	raw := `{
	  "findings": [],
	  "mitigation_suggestions": {
	    "iptables": ["rule one", "rule two"],
	    "ufw": "not a list",
	    "aws_sg": ["deny 203.0.113.0/24"]
	  }
	}`

	report, err := n.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"rule one", "rule two"}, report.Mitigations["iptables"])
	assert.Equal(t, []string{"deny 203.0.113.0/24"}, report.Mitigations["aws_sg"])
	assert.NotContains(t, report.Mitigations, "ufw")
}
