package session

import (
	"context"
	"sync"
	"time"
)

// Store keeps at most one conversation state per chat, each with a
// time-to-live so abandoned conversations self-expire.
type Store struct {
	mu      sync.RWMutex
	states  map[string]entry
	ttl     time.Duration
	nowFunc func() time.Time
}

type entry struct {
	state     State
	expiresAt time.Time
}

// NewStore creates a session store whose entries expire after ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		states:  make(map[string]entry),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Get returns the state for a chat. An expired entry is treated as absent
// and removed lazily.
func (s *Store) Get(chatID string) (State, bool) {
	s.mu.RLock()
	e, ok := s.states[chatID]
	s.mu.RUnlock()
	if !ok {
		return State{}, false
	}
	if s.nowFunc().After(e.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock, another goroutine may have replaced it
		if cur, ok := s.states[chatID]; ok && s.nowFunc().After(cur.expiresAt) {
			delete(s.states, chatID)
		}
		s.mu.Unlock()
		return State{}, false
	}
	return e.state, true
}

// Put stores the state for a chat, replacing any previous one. The TTL is
// applied on every write, including the first step of a flow.
func (s *Store) Put(chatID string, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID] = entry{
		state:     state,
		expiresAt: s.nowFunc().Add(s.ttl),
	}
}

// Delete removes a chat's state, ending its flow.
func (s *Store) Delete(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
}

// Flush drops every stored state. Called on process start so all chats
// begin in idle mode.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]entry)
}

// Len reports the number of live (non-expired) states.
func (s *Store) Len() int {
	now := s.nowFunc()
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.states {
		if !now.After(e.expiresAt) {
			count++
		}
	}
	return count
}

// StartJanitor sweeps expired entries on an interval until ctx is cancelled.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.expire()
			}
		}
	}()
}

func (s *Store) expire() {
	now := s.nowFunc()
	s.mu.Lock()
	defer s.mu.Unlock()
	for chatID, e := range s.states {
		if now.After(e.expiresAt) {
			delete(s.states, chatID)
		}
	}
}
