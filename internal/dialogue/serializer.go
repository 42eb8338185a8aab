package dialogue

import (
	"fmt"
	"strings"
	"sync"
)

// Concurrency selects how events of one conversation are scheduled.
type Concurrency string

const (
	// Serialized runs events of the same conversation one at a time.
	Serialized Concurrency = "serialized"
	// Unsynchronized lets events of the same conversation race on the Store.
	Unsynchronized Concurrency = "unsynchronized"
)

// ParseConcurrency accepts the config spelling; empty means Serialized.
func ParseConcurrency(s string) (Concurrency, error) {
	switch c := Concurrency(strings.ToLower(strings.TrimSpace(s))); c {
	case "", Serialized:
		return Serialized, nil
	case Unsynchronized:
		return c, nil
	default:
		return "", fmt.Errorf("dialogue: unknown concurrency %q", s)
	}
}

// Serializer is a keyed mutex over conversation ids. Idle keys are released.
type Serializer struct {
	mu    sync.Mutex
	locks map[int64]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewSerializer returns a Serializer with no held keys.
func NewSerializer() *Serializer {
	return &Serializer{locks: make(map[int64]*keyLock)}
}

// Lock blocks until conversationID is free and returns its release func.
func (s *Serializer) Lock(conversationID int64) (unlock func()) {
	s.mu.Lock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &keyLock{}
		s.locks[conversationID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			s.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, conversationID)
			}
			s.mu.Unlock()
		})
	}
}

// Do runs fn while holding conversationID.
func (s *Serializer) Do(conversationID int64, fn func()) {
	unlock := s.Lock(conversationID)
	defer unlock()
	fn()
}

func (s *Serializer) held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
