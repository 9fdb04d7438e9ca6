package nodes

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteConditionToolCallGoesToRetrieve(t *testing.T) {
	cond := NewRouteCondition()

	msg := &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       "call-1",
			Function: schema.FunctionCall{Name: "search_archive", Arguments: `{"query":"x"}`},
		}},
	}

	target, err := cond(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, NodeRetrieve, target)
}

func TestRouteConditionPlainMessageGoesToAnswer(t *testing.T) {
	cond := NewRouteCondition()

	target, err := cond(context.Background(), schema.AssistantMessage("hi", nil))
	require.NoError(t, err)
	assert.Equal(t, NodeAnswerAssembler, target)

	target, err = cond(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NodeAnswerAssembler, target)
}

func TestNormalizeMaxRewrites(t *testing.T) {
	assert.Equal(t, DefaultMaxRewrites, normalizeMaxRewrites(0))
	assert.Equal(t, DefaultMaxRewrites, normalizeMaxRewrites(-3))
	assert.Equal(t, 5, normalizeMaxRewrites(5))
}
