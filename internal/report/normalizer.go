// Package report converts raw oracle text into a valid FindingsReport
// or fails cleanly.
//
// The oracle is an untrusted free-text producer: output may arrive
// wrapped in code fences, surrounded by prose, with fields missing,
// mistyped, or inconsistent. Normalization is a two-stage decode - an
// optimistic structured parse followed by field-by-field defaulting.
// Missing optional fields get declared defaults; values that cannot be
// derived from the document are never invented.
package report

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	tberrors "github.com/yughpatel/TraceBack/internal/errors"
	"github.com/yughpatel/TraceBack/internal/logging"
	"github.com/yughpatel/TraceBack/internal/models"
)

// Normalizer validates and repairs oracle output.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = logging.L()
	}
	return &Normalizer{logger: logger.With(zap.String("component", "report_normalizer"))}
}

// Normalize parses raw oracle text into a FindingsReport. On any parse
// failure after wrapper stripping it returns a malformed-output error;
// no partial report is ever produced.
func (n *Normalizer) Normalize(raw string) (*models.FindingsReport, error) {
	cleaned := StripWrapping(raw)
	if cleaned == "" {
		return nil, tberrors.NewReportMalformedError("empty oracle output", nil)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, tberrors.NewReportMalformedError("not valid JSON after stripping", err)
	}

	report := &models.FindingsReport{
		Findings:    normalizeFindings(doc["findings"]),
		Educational: asString(doc["educational_explanation"], ""),
		Mitigations: normalizeMitigations(doc["mitigation_suggestions"]),
	}
	report.Summary = n.normalizeSummary(doc["summary_metrics"], report.Findings)

	return report, nil
}

// StripWrapping removes common non-JSON wrapping: markdown code fences
// and leading/trailing conversational prose. Idempotent - already-clean
// input passes through unchanged.
func StripWrapping(raw string) string {
	s := strings.TrimSpace(raw)

	// Remove ```json ... ``` wrapper
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	s = strings.TrimSpace(s)

	// Prose around the object: keep the outermost braces.
	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start >= 0 && end > start {
			s = s[start : end+1]
		}
	}

	return strings.TrimSpace(s)
}

// normalizeSummary reconciles the oracle's summary against the parsed
// findings. The finding count is authoritative locally: an inconsistent
// oracle-provided total is recomputed and overwritten, not trusted.
func (n *Normalizer) normalizeSummary(v any, findings []models.Finding) models.Summary {
	summary := models.Summary{
		TotalThreats: len(findings),
		MostActiveIP: models.ValueNA,
	}

	doc, _ := v.(map[string]any)
	if doc != nil {
		if claimed, ok := asInt(doc["total_threats"]); ok && claimed != len(findings) {
			n.logger.Warn("summary_total_reconciled",
				zap.Int("oracle_total", claimed),
				logging.Count(len(findings)),
			)
		}
		summary.MostActiveIP = asString(doc["most_active_ip"], models.ValueNA)
		if score, ok := asInt(doc["global_risk_score"]); ok {
			summary.GlobalRiskScore = models.ClampRisk(score)
		}
	}

	// Derive what the oracle omitted from the findings themselves.
	if summary.MostActiveIP == models.ValueNA || summary.MostActiveIP == "" {
		summary.MostActiveIP = mostActiveIP(findings)
	}
	if doc == nil || doc["global_risk_score"] == nil {
		summary.GlobalRiskScore = maxRisk(findings)
	}

	return summary
}

// normalizeFindings coerces the findings array. Entries that are not
// objects are dropped; within an entry, missing fields take defaults.
func normalizeFindings(v any) []models.Finding {
	items, _ := v.([]any)
	findings := make([]models.Finding, 0, len(items))

	for _, item := range items {
		doc, ok := item.(map[string]any)
		if !ok {
			continue
		}

		finding := models.Finding{
			Timestamp:   asString(doc["timestamp"], models.ValueNA),
			AttackerIP:  asString(doc["attacker_ip"], models.ValueNA),
			AttackType:  asString(doc["attack_type"], models.ValueNA),
			Status:      models.NormalizeStatus(asString(doc["status"], "")),
			Snippet:     asString(doc["snippet"], ""),
			Explanation: asString(doc["explanation"], ""),
		}
		if score, ok := asInt(doc["risk_score"]); ok {
			finding.RiskScore = models.ClampRisk(score)
		}
		findings = append(findings, finding)
	}

	return findings
}

// normalizeMitigations coerces the mitigation map. The result is always
// non-nil so the rendering layer can iterate without a guard.
func normalizeMitigations(v any) map[string][]string {
	mitigations := make(map[string][]string)

	doc, _ := v.(map[string]any)
	for channel, raw := range doc {
		items, ok := raw.([]any)
		if !ok {
			continue
		}
		commands := make([]string, 0, len(items))
		for _, item := range items {
			if s := asString(item, ""); s != "" {
				commands = append(commands, s)
			}
		}
		mitigations[channel] = commands
	}

	return mitigations
}

// mostActiveIP returns the address implicated most often, earliest
// finding winning ties, or "N/A" when no finding names one.
func mostActiveIP(findings []models.Finding) string {
	counts := make(map[string]int)
	best := models.ValueNA
	bestCount := 0
	for _, f := range findings {
		ip := f.AttackerIP
		if ip == "" || ip == models.ValueNA {
			continue
		}
		counts[ip]++
		if counts[ip] > bestCount {
			best = ip
			bestCount = counts[ip]
		}
	}
	return best
}

// maxRisk returns the highest finding risk score, 0 when empty.
func maxRisk(findings []models.Finding) int {
	max := 0
	for _, f := range findings {
		if f.RiskScore > max {
			max = f.RiskScore
		}
	}
	return max
}

// asString extracts a string value, falling back to def for anything
// that is not a string.
func asString(v any, def string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

// asInt extracts an integer from a JSON number or numeric string.
func asInt(v any) (int, bool) {
	switch value := v.(type) {
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return int(i), true
		}
		if f, err := value.Float64(); err == nil {
			return int(f), true
		}
	case float64:
		return int(value), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i, true
		}
	}
	return 0, false
}
