package nodes

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/primal-archive/server/internal/agent/graph/conversations"
	"github.com/primal-archive/server/internal/agent/graph/parsers"
	"github.com/primal-archive/server/internal/agent/graph/prompts"
	"github.com/primal-archive/server/internal/agent/model"
	errx "github.com/primal-archive/server/internal/core/error"
	logx "github.com/primal-archive/server/pkg/logger"
)

// NewInputConverterPreHandler seeds the turn state from the incoming query.
func NewInputConverterPreHandler() func(context.Context, model.QueryInput, *model.TurnState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.TurnState) (model.QueryInput, error) {
		s.ThreadID = in.ThreadID
		s.Question = in.Question
		// Reset per-turn routing state; the rewrite budget starts fresh
		// on every turn.
		s.Context = ""
		s.Grade = ""
		s.RewriteCount = 0
		s.RewriteLimitReached = false
		return in, nil
	}
}

// NewInputConverterNode builds the router's input from the thread's
// committed history plus everything staged this turn (the incoming
// question is already staged by the session).
func NewInputConverterNode(mm *conversations.Manager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) ([]*schema.Message, error) {
		sess := mm.Session(input.ThreadID)
		if sess == nil {
			return nil, fmt.Errorf("no active turn session for thread %q", input.ThreadID)
		}
		return sess.History(), nil
	})
}

// NewRouterPostHandler stages the router's response on the turn session.
func NewRouterPostHandler(mm *conversations.Manager) func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.TurnState) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("router returned nil message")
		}

		if sess := mm.Session(state.ThreadID); sess != nil {
			sess.Stage(out)
		}

		if len(out.ToolCalls) > 0 {
			logx.Debug().
				Str("thread_id", state.ThreadID).
				Str("query", out.ToolCalls[0].Function.Arguments).
				Msg("Router requested retrieval")
		} else {
			logx.Debug().Str("thread_id", state.ThreadID).Msg("Router chose to respond directly")
		}
		return out, nil
	}
}

// NewRouteCondition routes on tool-call intent: a tool call present in
// the router's message means retrieve, otherwise answer directly.
func NewRouteCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		if input != nil && len(input.ToolCalls) > 0 {
			return NodeRetrieve, nil
		}
		return NodeAnswerAssembler, nil
	}
}

// NewRetrievePostHandler stages the retrieval tool message and records
// the retrieved block as the turn's grounding context.
func NewRetrievePostHandler(mm *conversations.Manager) func(context.Context, []*schema.Message, *model.TurnState) ([]*schema.Message, error) {
	return func(ctx context.Context, out []*schema.Message, state *model.TurnState) ([]*schema.Message, error) {
		if len(out) == 0 {
			return nil, fmt.Errorf("retrieve produced no tool message")
		}

		sess := mm.Session(state.ThreadID)
		for _, msg := range out {
			if sess != nil {
				sess.Stage(msg)
			}
		}
		state.Context = out[len(out)-1].Content

		logx.Debug().
			Str("thread_id", state.ThreadID).
			Int("context_bytes", len(state.Context)).
			Msg("Retrieved context staged")
		return out, nil
	}
}

// NewGradeNode invokes the grader model over the turn's original
// question and the retrieved block. It is a pure decision: the verdict
// lands in turn state for the branch and nothing is staged.
func NewGradeNode(grader einomodel.BaseChatModel) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
		if len(msgs) == 0 {
			return nil, fmt.Errorf("grade: empty retrieval output")
		}
		retrieved := msgs[len(msgs)-1]

		var question string
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			question = s.Question
			return nil
		}); err != nil {
			return nil, fmt.Errorf("grade: access state: %w", err)
		}

		promptMsgs, err := prompts.RenderGrade(ctx, question, retrieved.Content)
		if err != nil {
			return nil, err
		}

		out, err := grader.Generate(ctx, promptMsgs)
		if err != nil {
			return nil, errx.WrapCollaborator(err)
		}

		decision := parsers.ParseGrade(out.Content)
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.Grade = decision
			return nil
		}); err != nil {
			return nil, fmt.Errorf("grade: access state: %w", err)
		}

		logx.Debug().Str("decision", string(decision)).Msg("Retrieval graded")
		return retrieved, nil
	})
}

// NewGradeCondition routes a relevant grade to answer assembly and an
// irrelevant one to a rewrite, unless the rewrite budget is spent, in
// which case generation proceeds with whatever context is present.
func NewGradeCondition(maxRewrites int) func(context.Context, *schema.Message) (string, error) {
	maxRewrites = normalizeMaxRewrites(maxRewrites)
	return func(ctx context.Context, _ *schema.Message) (string, error) {
		target := NodeAnswerAssembler
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			if s.Grade == model.GradeRelevant {
				return nil
			}
			if s.RewriteCount >= maxRewrites {
				s.RewriteLimitReached = true
				logx.Warn().
					Str("thread_id", s.ThreadID).
					Int("rewrites", s.RewriteCount).
					Msg("Rewrite budget exhausted - forcing answer generation")
				return nil
			}
			target = NodeRewriteQuestion
			return nil
		})
		return target, err
	}
}

// NewRewriteQuestionPreHandler counts the rewrite about to happen.
func NewRewriteQuestionPreHandler() func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.TurnState) (*schema.Message, error) {
		state.RewriteCount++
		logx.Debug().
			Str("thread_id", state.ThreadID).
			Int("rewrite_count", state.RewriteCount).
			Msg("Rewriting question")
		return in, nil
	}
}

// NewRewriteQuestionNode reformulates the turn's original question and
// stages the result as a new user message, which becomes the most recent
// message the router sees on the next loop iteration.
func NewRewriteQuestionNode(mm *conversations.Manager, rewriter einomodel.BaseChatModel) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) ([]*schema.Message, error) {
		var threadID, question string
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			threadID = s.ThreadID
			question = s.Question
			return nil
		}); err != nil {
			return nil, fmt.Errorf("rewrite: access state: %w", err)
		}

		promptMsgs, err := prompts.RenderRewrite(ctx, question)
		if err != nil {
			return nil, err
		}

		out, err := rewriter.Generate(ctx, promptMsgs)
		if err != nil {
			return nil, errx.WrapCollaborator(err)
		}

		rewritten := strings.TrimSpace(out.Content)
		if rewritten == "" {
			// A blank reformulation would stall the loop; fall back to
			// the original question.
			rewritten = question
		}

		sess := mm.Session(threadID)
		if sess == nil {
			return nil, fmt.Errorf("no active turn session for thread %q", threadID)
		}
		sess.Stage(schema.UserMessage(rewritten))

		logx.Debug().Str("thread_id", threadID).Str("rewritten", rewritten).Msg("Question rewritten")
		return sess.History(), nil
	})
}

// NewAnswerAssemblerNode renders the persona generation prompt from the
// turn's original question and the grading-approved context (empty on
// the direct-respond path).
func NewAnswerAssemblerNode(persona model.PersonaConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) ([]*schema.Message, error) {
		var question, retrieved string
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			question = s.Question
			retrieved = s.Context
			return nil
		}); err != nil {
			return nil, fmt.Errorf("assemble answer: access state: %w", err)
		}

		return prompts.RenderAnswer(ctx, persona, question, retrieved)
	})
}
