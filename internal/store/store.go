package store

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DispatchRecorder observes applied commands.
type DispatchRecorder interface {
	ObserveDispatch(command string)
}

// Store serialises commands against one State and notifies subscribers after each change.
// Subscribers see states in the order they were produced and must not dispatch.
type Store struct {
	notify   sync.Mutex
	mu       sync.Mutex
	state    State
	closed   bool
	now      func() time.Time
	subs     []subscription
	nextSub  int
	logger   *zap.Logger
	recorder DispatchRecorder
}

type subscription struct {
	id int
	fn func(State)
}

// New creates a store seeded with Initial(now()). A nil clock uses time.Now.
func New(now func() time.Time, logger *zap.Logger, recorder DispatchRecorder) *Store {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		state:    Initial(now()),
		now:      now,
		logger:   logger,
		recorder: recorder,
	}
}

// Dispatch applies cmd. It reports false, and changes nothing, once the store is closed.
func (s *Store) Dispatch(cmd Command) bool {
	if cmd == nil {
		return false
	}
	if reset, ok := cmd.(ResetFilters); ok && reset.Today.IsZero() {
		reset.Today = s.now()
		cmd = reset
	}

	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("dispatch after close dropped", zap.String("command", CommandName(cmd)))
		return false
	}
	s.state = Reduce(s.state, cmd)
	next := s.state
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.ObserveDispatch(CommandName(cmd))
	}
	for _, sub := range subs {
		sub.fn(next)
	}
	return true
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive every new state. The returned func removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Close stops the store from accepting commands and drops all subscribers. It waits for an
// in-flight delivery, so no subscriber is called after Close returns.
func (s *Store) Close() {
	s.notify.Lock()
	defer s.notify.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = nil
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
