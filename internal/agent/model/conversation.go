package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ThreadStore persists per-thread conversation history. A turn's
// messages are committed in one call so that a failed turn never leaves
// partial messages behind.
type ThreadStore interface {
	// LoadHistory retrieves the full message history for a thread.
	// A thread that has never been written returns an empty history.
	LoadHistory(ctx context.Context, threadID string) (*ThreadHistory, error)

	// CommitTurn atomically appends all messages produced by one turn.
	CommitTurn(ctx context.Context, threadID string, messages []*schema.Message) error

	// ClearHistory removes all history for a thread.
	ClearHistory(ctx context.Context, threadID string) error

	// MessageCount returns the number of committed messages in the thread.
	MessageCount(ctx context.Context, threadID string) (int, error)
}

// ThreadHistory represents loaded thread data.
type ThreadHistory struct {
	ThreadID string
	Messages []*schema.Message
}
