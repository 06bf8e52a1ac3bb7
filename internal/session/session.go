// Package session holds per-conversation state: ordered turn history and a
// customer identity resolved once per session. The store is in-memory only;
// durability beyond the process lifetime is out of scope.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/caresbot/caresbot/internal/core"
)

// Session is one customer's ongoing conversation.
//
// The zero customer identity means "not yet bound". Two locks: mu serializes
// whole utterances (the orchestrator holds it for the full tool loop, so
// concurrent requests for the same session never interleave), stateMu guards
// field access for readers that do not hold mu.
type Session struct {
	ID string

	mu      sync.Mutex
	stateMu sync.RWMutex

	customerID string
	turns      []core.Turn
	lastActive time.Time
}

// Lock serializes utterance processing for this session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the utterance lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Bind sets the customer identity exactly once. Rebinding with the same
// identity is a no-op; a different identity returns ErrIdentityConflict.
// An already-bound session must never silently change the customer it is
// scoped to.
func (s *Session) Bind(customerID string) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	switch s.customerID {
	case "":
		s.customerID = customerID
		return nil
	case customerID:
		return nil
	default:
		return core.ErrIdentityConflict
	}
}

// CustomerID returns the bound identity, or "" when unbound.
func (s *Session) CustomerID() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.customerID
}

// Append adds a turn. Turns are immutable once appended and never reordered.
func (s *Session) Append(turn core.Turn) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.turns = append(s.turns, turn)
	s.lastActive = time.Now()
}

// History returns the turns in insertion order. The slice is a copy; the
// orchestrator uses it verbatim to build the context window.
func (s *Session) History() []core.Turn {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	out := make([]core.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Touch marks the session active for TTL accounting.
func (s *Session) Touch() {
	s.stateMu.Lock()
	s.lastActive = time.Now()
	s.stateMu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.lastActive
}

// Store keeps sessions keyed by id with an LRU bound plus an idle TTL.
// The source system left sessions unbounded for the process lifetime; the
// explicit bound here is the chosen answer to that open question.
type Store struct {
	mu      sync.Mutex
	cache   *lru.Cache[string, *Session]
	idleTTL time.Duration
	logger  *log.Logger
}

// NewStore creates a store bounded to maxEntries sessions. idleTTL of 0
// disables time-based eviction.
func NewStore(maxEntries int, idleTTL time.Duration) (*Store, error) {
	cache, err := lru.New[string, *Session](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Store{
		cache:   cache,
		idleTTL: idleTTL,
		logger:  log.New(log.Writer(), "[SESSION] ", log.LstdFlags),
	}, nil
}

// GetOrCreate returns the session for id, creating an unbound empty one if
// absent. Idempotent.
func (st *Store) GetOrCreate(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.cache.Get(id); ok {
		return s
	}
	s := &Session{ID: id, lastActive: time.Now()}
	st.cache.Add(id, s)
	return s
}

// Get returns the session for id without creating one.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cache.Get(id)
}

// Len returns the live session count.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cache.Len()
}

// EvictIdle removes sessions idle longer than the TTL. Returns the count.
func (st *Store) EvictIdle() int {
	if st.idleTTL <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-st.idleTTL)
	st.mu.Lock()
	defer st.mu.Unlock()
	evicted := 0
	for _, id := range st.cache.Keys() {
		s, ok := st.cache.Peek(id)
		if !ok {
			continue
		}
		if s.idleSince().Before(cutoff) {
			st.cache.Remove(id)
			evicted++
		}
	}
	return evicted
}

// Janitor runs EvictIdle on the given interval until ctx is done.
func (st *Store) Janitor(ctx context.Context, interval time.Duration) {
	if st.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.EvictIdle(); n > 0 {
				st.logger.Printf("evicted %d idle session(s)", n)
			}
		}
	}
}
