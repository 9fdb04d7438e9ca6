package parsers

import (
	"encoding/json"
	"strings"

	"github.com/primal-archive/server/internal/agent/model"
	logx "github.com/primal-archive/server/pkg/logger"
)

// maxGradeLen guards against pathological grader output; a well-formed
// verdict is a handful of bytes.
const maxGradeLen = 4 * 1024

type gradePayload struct {
	BinaryScore string `json:"binary_score"`
}

// ParseGrade maps the grader model's output to a GradeDecision.
//
// The grader is asked for {"binary_score": "yes"|"no"}, but provider
// output varies: markdown fences, bare "yes"/"no" tokens, or garbage.
// Anything that is not an affirmative "yes" resolves to NOT_RELEVANT.
// That fail-safe default is deliberate (an irrelevant grade only costs a
// rewrite cycle); genuinely malformed output is logged so it can be
// monitored rather than silently swallowed.
func ParseGrade(content string) model.GradeDecision {
	raw := content
	if len(raw) > maxGradeLen {
		raw = raw[:maxGradeLen]
	}
	score, ok := extractScore(raw)
	if !ok {
		logx.Warn().
			Str("component", "grade_parser").
			Str("content", snippet(content, 120)).
			Msg("malformed grader output, defaulting to not_relevant")
		return model.GradeNotRelevant
	}

	if score == "yes" {
		return model.GradeRelevant
	}
	return model.GradeNotRelevant
}

// extractScore pulls the binary score out of JSON, fenced JSON, or a
// bare token. ok is false only when nothing resembling a verdict exists.
func extractScore(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = trimFence(s)

	if strings.HasPrefix(s, "{") {
		var p gradePayload
		if err := json.Unmarshal([]byte(s), &p); err == nil && p.BinaryScore != "" {
			return normalize(p.BinaryScore), true
		}
		return "", false
	}

	token := normalize(s)
	if token == "yes" || token == "no" {
		return token, true
	}
	return "", false
}

func trimFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func normalize(s string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), `."'`))
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
