package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/primal-archive/server/internal/agent/model"
)

//go:embed template/answer_prompt.txt
var answerPrompt string

// RenderAnswer renders the persona-constrained generation prompt. The
// context is empty on the direct-respond path; the template instructs the
// model to lean on it only when relevant.
func RenderAnswer(ctx context.Context, persona model.PersonaConfig, question, retrieved string) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.UserMessage(answerPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"PersonaName":   persona.Name,
		"PersonaCorpus": persona.Corpus,
		"Question":      question,
		"Context":       retrieved,
	})
	if err != nil {
		return nil, fmt.Errorf("answer prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, fmt.Errorf("answer prompt render: empty result")
	}
	return msgs, nil
}
