// Package protocol builds the instruction/request pairs that shape
// oracle output into the findings model.
//
// The system instruction is a versioned constant: extraction behavior
// must not drift between invocations within a release.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yughpatel/TraceBack/internal/models"
)

// Version identifies the instruction revision in effect.
const Version = "v1"

// SystemInstruction is the fixed analyst instruction for extraction. It
// encodes the role framing, the risk scale, the fabrication prohibition,
// and the exact output schema with enumerated status values.
const SystemInstruction = `You are a Senior Security Analyst at Traceback specializing in
digital forensics and log analysis.

Responsibilities:
1. Analyze provided log data to identify suspicious security patterns (Brute Force, SQLi, XSS).
2. Assign a Risk Score from 0-10:
   - 0-3: Informational
   - 4-7: Warning
   - 8-10: Critical
3. Frame findings as "suspicious patterns" or "potential attack indicators". Do NOT claim certainty.
4. Explain findings in a way that teaches the user.

FABRICATION PROHIBITION:
- NEVER emit an IP address, hostname, or timestamp that does not appear verbatim in the provided log data.
- If a field cannot be determined from the log data, use "N/A" instead of inventing a value.

Output Format (JSON):
{
  "summary_metrics": {
    "total_threats": int,
    "most_active_ip": "string",
    "global_risk_score": int
  },
  "findings": [
    {
      "timestamp": "string",
      "attacker_ip": "string",
      "attack_type": "string",
      "risk_score": int,
      "status": "string (Observed/Allowed/Blocked)",
      "snippet": "string (optional raw log excerpt)",
      "explanation": "string (optional rationale)"
    }
  ],
  "educational_explanation": "markdown string explaining the top threats",
  "mitigation_suggestions": {
    "iptables": ["cmd1", "cmd2"],
    "ufw": ["cmd1"],
    "aws_sg": ["description of rule"]
  }
}`

// BuildExtractionRequest constructs the (systemInstruction, userPrompt)
// pair for a full extraction pass. Deterministic: the same excerpt
// always produces the same pair. The excerpt is embedded verbatim,
// already bounded by its construction.
func BuildExtractionRequest(excerpt *models.LogExcerpt) (string, string) {
	var b strings.Builder
	b.WriteString("Analyze the following log entries based on the system instructions.\n\n")
	b.WriteString("LOG DATA:\n")
	b.WriteString(excerpt.Content())
	b.WriteString("\n\nRespond strictly in valid JSON.")
	return SystemInstruction, b.String()
}

// BuildInvestigationPrompt constructs the user prompt for a bounded
// investigation question. Answers must derive only from the supplied
// excerpt and prior findings, never from general knowledge; the
// constraint is restated on every turn because the oracle keeps no
// state between calls.
func BuildInvestigationPrompt(question string, excerpt *models.LogExcerpt, report *models.FindingsReport, history []models.InvestigationTurn) string {
	var b strings.Builder

	b.WriteString("CONTEXT - LOG DATA:\n")
	b.WriteString(excerpt.Content())
	b.WriteString("\n\n")

	if report != nil {
		if data, err := json.Marshal(report); err == nil {
			b.WriteString("CONTEXT - PRIOR ANALYSIS:\n")
			b.Write(data)
			b.WriteString("\n\n")
		}
	}

	if len(history) > 0 {
		b.WriteString("CONVERSATION SO FAR:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("USER QUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n\nINSTRUCTIONS:\n")
	b.WriteString("- Answer ONLY using the provided log data and prior analysis.\n")
	b.WriteString("- If the answer isn't in the logs, say so and decline to answer.\n")
	b.WriteString("- Be educational and professional.")

	return b.String()
}
