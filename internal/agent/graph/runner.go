package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/primal-archive/server/internal/agent/graph/conversations"
	"github.com/primal-archive/server/internal/agent/graph/observers"
	"github.com/primal-archive/server/internal/agent/model"
	logx "github.com/primal-archive/server/pkg/logger"
)

// Runner executes turns against the compiled chat graph. Turns on the
// same thread serialize; turns on distinct threads run concurrently.
type Runner interface {
	// RunTurn starts a streaming turn. The returned stream must be
	// drained to io.EOF for the turn to commit; closing it early or
	// hitting any error rolls the turn back.
	RunTurn(ctx context.Context, threadID, question string) (*TurnStream, error)

	// Invoke runs a full turn and returns the complete answer. The
	// turn commits before Invoke returns.
	Invoke(ctx context.Context, threadID, question string) (string, error)
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
	mm       *conversations.Manager
}

func newRunner(
	runnable compose.Runnable[model.QueryInput, *schema.Message],
	mm *conversations.Manager,
) *graphRunner {
	return &graphRunner{runnable: runnable, mm: mm}
}

func (r *graphRunner) RunTurn(ctx context.Context, threadID, question string) (*TurnStream, error) {
	if err := validateTurn(threadID, question); err != nil {
		return nil, err
	}

	sess, err := r.mm.BeginTurn(ctx, threadID, question)
	if err != nil {
		return nil, err
	}

	reader, err := r.runnable.Stream(ctx,
		model.QueryInput{ThreadID: threadID, Question: question},
		compose.WithCallbacks(observers.NewAllCallbacks()),
	)
	if err != nil {
		r.mm.Abort(sess)
		logx.Error().Err(err).Str("thread_id", threadID).Msg("Failed to start turn")
		return nil, wrapTurnErr(err)
	}

	return newTurnStream(ctx, reader, r.mm, sess), nil
}

func (r *graphRunner) Invoke(ctx context.Context, threadID, question string) (string, error) {
	if err := validateTurn(threadID, question); err != nil {
		return "", err
	}

	sess, err := r.mm.BeginTurn(ctx, threadID, question)
	if err != nil {
		return "", err
	}

	out, err := r.runnable.Invoke(ctx,
		model.QueryInput{ThreadID: threadID, Question: question},
		compose.WithCallbacks(observers.NewAllCallbacks()),
	)
	if err != nil {
		r.mm.Abort(sess)
		logx.Error().Err(err).Str("thread_id", threadID).Msg("Turn failed; turn rolled back")
		return "", wrapTurnErr(err)
	}

	answer := ""
	if out != nil {
		answer = out.Content
	}

	sess.Stage(schema.AssistantMessage(answer, nil))
	if err := r.mm.Commit(ctx, sess); err != nil {
		return "", err
	}

	return answer, nil
}

func validateTurn(threadID, question string) error {
	if strings.TrimSpace(threadID) == "" {
		return fmt.Errorf("thread id is empty")
	}
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("question is empty")
	}
	return nil
}
