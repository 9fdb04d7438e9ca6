package prompts

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primal-archive/server/internal/agent/model"
)

func TestRenderGrade(t *testing.T) {
	msgs, err := RenderGrade(context.Background(), "what heals the gut?", "raw dairy heals the gut")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "what heals the gut?")
	assert.Contains(t, msgs[0].Content, "raw dairy heals the gut")
	assert.Contains(t, msgs[0].Content, "binary_score")
}

func TestRenderRewrite(t *testing.T) {
	msgs, err := RenderRewrite(context.Background(), "whats the deal with milk")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Contains(t, msgs[0].Content, "whats the deal with milk")
}

func TestRenderAnswer(t *testing.T) {
	persona := model.PersonaConfig{
		Name:   "Aajonus Vonderplanitz",
		Corpus: "your published works",
	}

	msgs, err := RenderAnswer(context.Background(), persona, "what should I eat?", "raw foods are best")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Contains(t, msgs[0].Content, "Aajonus Vonderplanitz")
	assert.Contains(t, msgs[0].Content, "your published works")
	assert.Contains(t, msgs[0].Content, "what should I eat?")
	assert.Contains(t, msgs[0].Content, "raw foods are best")
}

func TestRenderAnswerEmptyContext(t *testing.T) {
	msgs, err := RenderAnswer(context.Background(), model.PersonaConfig{Name: "X", Corpus: "Y"}, "hello", "")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "hello")
}
