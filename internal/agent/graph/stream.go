package graph

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"

	errx "github.com/primal-archive/server/internal/core/error"
	"github.com/primal-archive/server/internal/agent/graph/conversations"
	"github.com/primal-archive/server/internal/agent/graph/nodes"
	logx "github.com/primal-archive/server/pkg/logger"
)

// Fragment is one streamed piece of the final answer, tagged with the
// node that produced it.
type Fragment struct {
	Node string
	Text string
}

// TurnStream delivers the answer fragments of a single turn. The turn
// commits to the thread store only after the stream drains cleanly; any
// error or early Close rolls the whole turn back.
//
// Only generate_answer sits adjacent to END, so every fragment on the
// underlying graph stream belongs to that node.
type TurnStream struct {
	ctx    context.Context
	reader *schema.StreamReader[*schema.Message]
	mm     *conversations.Manager
	sess   *conversations.TurnSession

	mu       sync.Mutex
	answer   strings.Builder
	finished bool
	err      error
}

func newTurnStream(
	ctx context.Context,
	reader *schema.StreamReader[*schema.Message],
	mm *conversations.Manager,
	sess *conversations.TurnSession,
) *TurnStream {
	return &TurnStream{
		ctx:    ctx,
		reader: reader,
		mm:     mm,
		sess:   sess,
	}
}

// Recv returns the next answer fragment. It returns io.EOF once the
// answer is complete and the turn has committed. Any other error means
// the turn was rolled back and the thread history is unchanged.
func (s *TurnStream) Recv() (Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return Fragment{}, s.err
	}

	msg, err := s.reader.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Fragment{}, s.finish(nil)
		}
		return Fragment{}, s.finish(err)
	}

	if msg == nil {
		return Fragment{Node: nodes.NodeGenerateAnswer}, nil
	}

	s.answer.WriteString(msg.Content)
	return Fragment{Node: nodes.NodeGenerateAnswer, Text: msg.Content}, nil
}

// Close abandons the stream. If the turn has not committed yet, it is
// rolled back. Safe to call after Recv returned io.EOF.
func (s *TurnStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return nil
	}
	s.finished = true
	s.err = io.EOF
	s.reader.Close()
	s.mm.Abort(s.sess)
	logx.Debug().
		Str("thread_id", s.sess.ThreadID()).
		Msg("Turn stream closed before completion; turn rolled back")
	return nil
}

// finish settles the turn exactly once: commit on clean EOF, abort on
// error. Returns the error subsequent Recv calls will keep returning.
func (s *TurnStream) finish(cause error) error {
	s.finished = true
	s.reader.Close()

	if cause != nil {
		s.mm.Abort(s.sess)
		s.err = wrapTurnErr(cause)
		logx.Error().
			Err(cause).
			Str("thread_id", s.sess.ThreadID()).
			Msg("Turn failed mid-stream; turn rolled back")
		return s.err
	}

	s.sess.Stage(schema.AssistantMessage(s.answer.String(), nil))
	if err := s.mm.Commit(s.ctx, s.sess); err != nil {
		s.err = err
		return s.err
	}

	s.err = io.EOF
	return io.EOF
}

// wrapTurnErr normalizes a turn-level failure into a single error shape
// for callers, preserving errors that already carry a status.
func wrapTurnErr(err error) error {
	var appErr *errx.Error
	if errors.As(err, &appErr) {
		return err
	}
	return errx.WrapCollaborator(err)
}
