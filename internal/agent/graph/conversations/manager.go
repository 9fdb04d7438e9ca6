package conversations

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/primal-archive/server/internal/agent/model"
	logx "github.com/primal-archive/server/pkg/logger"
)

// Manager mediates all thread history access for the graph. It owns two
// guarantees the store itself does not provide:
//
//   - Turns on the same thread are strictly serialized. BeginTurn blocks
//     until the previous turn on that thread commits or aborts; turns on
//     distinct threads never contend.
//   - A turn's messages are staged in a TurnSession and reach the store
//     only through Commit. An aborted or failed turn leaves the thread
//     exactly as it was.
type Manager struct {
	store model.ThreadStore

	mu       sync.Mutex
	locks    map[string]*threadLock
	sessions map[string]*TurnSession
}

type threadLock struct {
	ch  chan struct{} // capacity 1, held while a turn is active
	ref int
}

func NewManager(store model.ThreadStore) *Manager {
	return &Manager{
		store:    store,
		locks:    make(map[string]*threadLock),
		sessions: make(map[string]*TurnSession),
	}
}

// BeginTurn acquires the thread's lock, loads committed history and
// opens a session with the incoming question staged as its first message.
func (m *Manager) BeginTurn(ctx context.Context, threadID, question string) (*TurnSession, error) {
	if err := m.acquire(ctx, threadID); err != nil {
		return nil, err
	}

	history, err := m.store.LoadHistory(ctx, threadID)
	if err != nil {
		m.release(threadID)
		return nil, err
	}

	sess := &TurnSession{
		threadID:  threadID,
		question:  question,
		committed: history.Messages,
	}
	sess.Stage(schema.UserMessage(question))

	m.mu.Lock()
	m.sessions[threadID] = sess
	m.mu.Unlock()

	return sess, nil
}

// Session returns the active session for a thread, or nil. Only the turn
// holding the thread lock may call this, so there is no race on the result.
func (m *Manager) Session(threadID string) *TurnSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[threadID]
}

// Commit persists the session's staged messages atomically and ends the turn.
func (m *Manager) Commit(ctx context.Context, sess *TurnSession) error {
	if sess == nil {
		return fmt.Errorf("commit: nil session")
	}
	defer m.endTurn(sess)

	if err := m.store.CommitTurn(ctx, sess.threadID, sess.Staged()); err != nil {
		logx.Error().Err(err).Str("thread_id", sess.threadID).Msg("failed to commit turn")
		return err
	}
	return nil
}

// Abort discards the session's staged messages and ends the turn.
func (m *Manager) Abort(sess *TurnSession) {
	if sess == nil {
		return
	}
	logx.Debug().Str("thread_id", sess.threadID).Int("discarded", len(sess.Staged())).Msg("turn aborted")
	m.endTurn(sess)
}

func (m *Manager) endTurn(sess *TurnSession) {
	m.mu.Lock()
	if sess.done {
		m.mu.Unlock()
		return
	}
	sess.done = true
	delete(m.sessions, sess.threadID)
	m.mu.Unlock()

	m.release(sess.threadID)
}

func (m *Manager) acquire(ctx context.Context, threadID string) error {
	m.mu.Lock()
	l, ok := m.locks[threadID]
	if !ok {
		l = &threadLock{ch: make(chan struct{}, 1)}
		m.locks[threadID] = l
	}
	l.ref++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		m.unref(threadID, l)
		return ctx.Err()
	}
}

func (m *Manager) release(threadID string) {
	m.mu.Lock()
	l := m.locks[threadID]
	m.mu.Unlock()
	if l == nil {
		return
	}
	<-l.ch
	m.unref(threadID, l)
}

func (m *Manager) unref(threadID string, l *threadLock) {
	m.mu.Lock()
	l.ref--
	if l.ref <= 0 {
		delete(m.locks, threadID)
	}
	m.mu.Unlock()
}

// TurnSession is the staging buffer for one turn. Nodes run sequentially
// within a turn, but staging is locked anyway because the caller-facing
// stream finalizes the session from its own goroutine.
type TurnSession struct {
	threadID  string
	question  string
	committed []*schema.Message

	mu     sync.Mutex
	staged []*schema.Message
	done   bool
}

func (s *TurnSession) ThreadID() string { return s.threadID }

// Question is the user question that opened this turn.
func (s *TurnSession) Question() string { return s.question }

// Stage records a message produced by this turn.
func (s *TurnSession) Stage(msg *schema.Message) {
	if msg == nil {
		return
	}
	s.mu.Lock()
	s.staged = append(s.staged, msg)
	s.mu.Unlock()
}

// Staged returns a copy of the messages staged so far.
func (s *TurnSession) Staged() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*schema.Message, len(s.staged))
	copy(out, s.staged)
	return out
}

// History returns committed history plus everything staged this turn.
func (s *TurnSession) History() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*schema.Message, 0, len(s.committed)+len(s.staged))
	out = append(out, s.committed...)
	out = append(out, s.staged...)
	return out
}
