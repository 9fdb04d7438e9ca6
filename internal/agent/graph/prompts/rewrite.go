package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/rewrite_prompt.txt
var rewritePrompt string

// RenderRewrite renders the question reformulation prompt over the
// turn's original question.
func RenderRewrite(ctx context.Context, question string) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.UserMessage(rewritePrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"Question": question,
	})
	if err != nil {
		return nil, fmt.Errorf("rewrite prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, fmt.Errorf("rewrite prompt render: empty result")
	}
	return msgs, nil
}
