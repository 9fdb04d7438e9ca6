package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/grade_prompt.txt
var gradePrompt string

// RenderGrade renders the grading prompt with the question and retrieved
// block substituted verbatim. Rendering goes through the eino prompt
// component so prompt callbacks fire.
func RenderGrade(ctx context.Context, question, retrieved string) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.UserMessage(gradePrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"Question": question,
		"Context":  retrieved,
	})
	if err != nil {
		return nil, fmt.Errorf("grade prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, fmt.Errorf("grade prompt render: empty result")
	}
	return msgs, nil
}
