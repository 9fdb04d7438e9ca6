package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/primal-archive/server/pkg/logger"
)

// newToolHandler logs retrieval tool execution.
func newToolHandler() *callbackHelper.ToolCallbackHandler {
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			evt := logx.Debug().Str("tool", info.Name)
			if input != nil {
				evt = evt.Str("arguments", input.ArgumentsInJSON)
			}
			evt.Msg("Tool call started")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			evt := logx.Debug().Str("tool", info.Name)
			if output != nil {
				evt = evt.Int("response_bytes", len(output.Response))
			}
			evt.Msg("Tool call finished")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("tool", info.Name).Msg("Tool call failed")
			return ctx
		},
	}
}
