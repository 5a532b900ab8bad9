package interview

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Actor string

const (
	ActorAI        Actor = "ai"
	ActorCandidate Actor = "candidate"
)

// Turn is a single transcript entry. Turns are append-only.
type Turn struct {
	Actor     Actor     `json:"actor"`
	Text      string    `json:"text"`
	Citations []string  `json:"citations,omitempty"`
	At        time.Time `json:"at"`
}

// Coverage counts how many questions targeted each dimension. Missing dimensions count as zero.
type Coverage map[string]int

func (c Coverage) clone() Coverage {
	out := make(Coverage, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

type Session struct {
	ID            string    `json:"session_id"`
	CandidateName string    `json:"candidate_name"`
	Role          string    `json:"role"`
	Minutes       int       `json:"minutes"`
	Turns         []Turn    `json:"turns"`
	Coverage      Coverage  `json:"coverage"`
	StartedAt     time.Time `json:"started_at"`
}

func (s *Session) clone() *Session {
	out := *s
	out.Turns = make([]Turn, len(s.Turns))
	for i, t := range s.Turns {
		t.Citations = append([]string(nil), t.Citations...)
		out.Turns[i] = t
	}
	out.Coverage = s.Coverage.clone()
	return &out
}

// Store keeps interview sessions. Implementations must be safe for concurrent use
// and return copies, never internal state. Unknown ids yield ErrInvalidSession.
type Store interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	AppendTurn(ctx context.Context, id string, turn Turn) error
	IncrementCoverage(ctx context.Context, id, dimension string) (Coverage, error)
	RecentTurns(ctx context.Context, id string, n int) ([]Turn, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Create(_ context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return fmt.Errorf("session %q already exists", session.ID)
	}
	stored := session.clone()
	if stored.Coverage == nil {
		stored.Coverage = Coverage{}
	}
	m.sessions[session.ID] = stored
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSession, id)
	}
	return s.clone(), nil
}

func (m *MemoryStore) AppendTurn(_ context.Context, id string, turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidSession, id)
	}
	turn.Citations = append([]string(nil), turn.Citations...)
	s.Turns = append(s.Turns, turn)
	return nil
}

func (m *MemoryStore) IncrementCoverage(_ context.Context, id, dimension string) (Coverage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSession, id)
	}
	s.Coverage[dimension]++
	return s.Coverage.clone(), nil
}

// RecentTurns returns at most the last n turns in transcript order.
func (m *MemoryStore) RecentTurns(_ context.Context, id string, n int) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSession, id)
	}
	start := 0
	if n >= 0 && len(s.Turns) > n {
		start = len(s.Turns) - n
	}
	out := make([]Turn, len(s.Turns)-start)
	copy(out, s.Turns[start:])
	return out, nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// keyedMutex serializes work per session id.
type keyedMutex struct {
	locks sync.Map
}

func (k *keyedMutex) Lock(id string) func() {
	v, _ := k.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (k *keyedMutex) Len() int {
	n := 0
	k.locks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
