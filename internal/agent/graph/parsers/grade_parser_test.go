package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/primal-archive/server/internal/agent/model"
)

func TestParseGrade(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    model.GradeDecision
	}{
		{
			name:    "plain json yes",
			content: `{"binary_score": "yes"}`,
			want:    model.GradeRelevant,
		},
		{
			name:    "plain json no",
			content: `{"binary_score": "no"}`,
			want:    model.GradeNotRelevant,
		},
		{
			name:    "fenced json yes",
			content: "```json\n{\"binary_score\": \"yes\"}\n```",
			want:    model.GradeRelevant,
		},
		{
			name:    "fenced without language tag",
			content: "```\n{\"binary_score\": \"no\"}\n```",
			want:    model.GradeNotRelevant,
		},
		{
			name:    "bare yes token",
			content: "Yes.",
			want:    model.GradeRelevant,
		},
		{
			name:    "bare no token with quotes",
			content: `"no"`,
			want:    model.GradeNotRelevant,
		},
		{
			name:    "uppercase json value",
			content: `{"binary_score": "YES"}`,
			want:    model.GradeRelevant,
		},
		{
			name:    "surrounding whitespace",
			content: "  \n {\"binary_score\": \"yes\"} \n",
			want:    model.GradeRelevant,
		},
		{
			name:    "malformed json defaults to not relevant",
			content: `{"binary_score": `,
			want:    model.GradeNotRelevant,
		},
		{
			name:    "unrelated prose defaults to not relevant",
			content: "I believe the documents are quite relevant to the question.",
			want:    model.GradeNotRelevant,
		},
		{
			name:    "empty output defaults to not relevant",
			content: "",
			want:    model.GradeNotRelevant,
		},
		{
			name:    "wrong json field defaults to not relevant",
			content: `{"score": "yes"}`,
			want:    model.GradeNotRelevant,
		},
		{
			name:    "oversized output defaults to not relevant",
			content: strings.Repeat("x", 64*1024),
			want:    model.GradeNotRelevant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGrade(tt.content))
		})
	}
}
