package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/primal-archive/server/pkg/logger"
)

// newModelHandler logs model call lifecycle and token usage.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			evt := logx.Debug().Str("node", info.Name).Str("component", string(info.Type))
			if input != nil {
				evt = evt.Int("messages", len(input.Messages))
			}
			evt.Msg("Model call started")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			evt := logx.Debug().Str("node", info.Name)
			if output != nil && output.Message != nil {
				evt = evt.Int("tool_calls", len(output.Message.ToolCalls))
				if output.Message.ResponseMeta != nil && output.Message.ResponseMeta.Usage != nil {
					u := output.Message.ResponseMeta.Usage
					evt = evt.
						Int("prompt_tokens", u.PromptTokens).
						Int("completion_tokens", u.CompletionTokens).
						Int("total_tokens", u.TotalTokens)
				}
			}
			evt.Msg("Model call finished")
			return ctx
		},
		OnEndWithStreamOutput: func(ctx context.Context, info *einocb.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			// The graph stream owns these fragments; close our copy
			// immediately so nothing buffers on the observer side.
			output.Close()
			logx.Debug().Str("node", info.Name).Msg("Model call streaming")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("node", info.Name).Msg("Model call failed")
			return ctx
		},
	}
}
