package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/primal-archive/server/internal/agent/model"
)

// MemoryThreadStore is an in-process ThreadStore. Histories live for the
// process lifetime; there is no eviction. It backs local runs without
// redis and the test suite.
type MemoryThreadStore struct {
	mu      sync.RWMutex
	threads map[string][]*schema.Message
}

func NewMemoryThreadStore() *MemoryThreadStore {
	return &MemoryThreadStore{threads: make(map[string][]*schema.Message)}
}

func (s *MemoryThreadStore) CommitTurn(_ context.Context, threadID string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = append(s.threads[threadID], messages...)
	return nil
}

func (s *MemoryThreadStore) LoadHistory(_ context.Context, threadID string) (*model.ThreadHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.threads[threadID]
	msgs := make([]*schema.Message, len(stored))
	copy(msgs, stored)
	return &model.ThreadHistory{ThreadID: threadID, Messages: msgs}, nil
}

func (s *MemoryThreadStore) ClearHistory(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}

func (s *MemoryThreadStore) MessageCount(_ context.Context, threadID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads[threadID]), nil
}

var _ model.ThreadStore = (*MemoryThreadStore)(nil)
