package conversations

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primal-archive/server/internal/agent/repo"
)

func TestBeginTurnStagesQuestion(t *testing.T) {
	ctx := context.Background()
	mm := NewManager(repo.NewMemoryThreadStore())

	sess, err := mm.BeginTurn(ctx, "t1", "hello")
	require.NoError(t, err)
	defer mm.Abort(sess)

	staged := sess.Staged()
	require.Len(t, staged, 1)
	assert.Equal(t, schema.User, staged[0].Role)
	assert.Equal(t, "hello", staged[0].Content)
	assert.Equal(t, "hello", sess.Question())
	assert.Same(t, sess, mm.Session("t1"))
}

func TestCommitPersistsStagedMessages(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryThreadStore()
	mm := NewManager(store)

	sess, err := mm.BeginTurn(ctx, "t1", "hello")
	require.NoError(t, err)
	sess.Stage(schema.AssistantMessage("hi there", nil))
	require.NoError(t, mm.Commit(ctx, sess))

	history, err := store.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "hello", history.Messages[0].Content)
	assert.Equal(t, "hi there", history.Messages[1].Content)
	assert.Nil(t, mm.Session("t1"))
}

func TestAbortDiscardsStagedMessages(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryThreadStore()
	mm := NewManager(store)

	sess, err := mm.BeginTurn(ctx, "t1", "hello")
	require.NoError(t, err)
	sess.Stage(schema.AssistantMessage("partial", nil))
	mm.Abort(sess)

	count, err := store.MessageCount(ctx, "t1")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Nil(t, mm.Session("t1"))
}

func TestHistoryIncludesCommittedAndStaged(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryThreadStore()
	mm := NewManager(store)

	first, err := mm.BeginTurn(ctx, "t1", "first")
	require.NoError(t, err)
	first.Stage(schema.AssistantMessage("answer one", nil))
	require.NoError(t, mm.Commit(ctx, first))

	second, err := mm.BeginTurn(ctx, "t1", "second")
	require.NoError(t, err)
	defer mm.Abort(second)

	history := second.History()
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "answer one", history[1].Content)
	assert.Equal(t, "second", history[2].Content)
}

func TestSameThreadTurnsSerialize(t *testing.T) {
	ctx := context.Background()
	mm := NewManager(repo.NewMemoryThreadStore())

	first, err := mm.BeginTurn(ctx, "t1", "first")
	require.NoError(t, err)

	started := make(chan struct{})
	acquired := make(chan *TurnSession, 1)
	go func() {
		close(started)
		sess, err := mm.BeginTurn(ctx, "t1", "second")
		if err == nil {
			acquired <- sess
		}
	}()

	<-started
	select {
	case <-acquired:
		t.Fatal("second turn acquired the thread while the first was active")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, mm.Commit(ctx, first))

	select {
	case sess := <-acquired:
		mm.Abort(sess)
	case <-time.After(time.Second):
		t.Fatal("second turn never acquired the thread after commit")
	}
}

func TestDistinctThreadsDoNotContend(t *testing.T) {
	ctx := context.Background()
	mm := NewManager(repo.NewMemoryThreadStore())

	first, err := mm.BeginTurn(ctx, "t1", "q")
	require.NoError(t, err)
	defer mm.Abort(first)

	done := make(chan struct{})
	go func() {
		sess, err := mm.BeginTurn(ctx, "t2", "q")
		if err == nil {
			mm.Abort(sess)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("turn on a distinct thread blocked behind an unrelated turn")
	}
}

func TestBeginTurnHonorsContextCancellation(t *testing.T) {
	ctx := context.Background()
	mm := NewManager(repo.NewMemoryThreadStore())

	first, err := mm.BeginTurn(ctx, "t1", "q")
	require.NoError(t, err)
	defer mm.Abort(first)

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err = mm.BeginTurn(cancelCtx, "t1", "q2")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The thread must still be usable after the cancelled waiter left.
	require.NoError(t, mm.Commit(ctx, first))
	next, err := mm.BeginTurn(ctx, "t1", "q3")
	require.NoError(t, err)
	mm.Abort(next)
}

func TestEndTurnIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mm := NewManager(repo.NewMemoryThreadStore())

	sess, err := mm.BeginTurn(ctx, "t1", "q")
	require.NoError(t, err)

	require.NoError(t, mm.Commit(ctx, sess))
	// Abort after commit must not release the lock twice.
	mm.Abort(sess)

	next, err := mm.BeginTurn(ctx, "t1", "q2")
	require.NoError(t, err)
	mm.Abort(next)
}
