// Package session stores per-user editor view state (the block being edited,
// folded sections and open entries) outside of the document tree.
package session

import (
	"context"
	"sync"
	"time"

	"knowledgebase/internal/blocks"
)

// Store persists editor view state per document and user. A missing entry
// loads as the zero ViewState.
type Store interface {
	Load(ctx context.Context, documentID, userID string) (blocks.ViewState, error)
	Save(ctx context.Context, documentID, userID string, state blocks.ViewState) error
	Clear(ctx context.Context, documentID, userID string) error
	Ping(ctx context.Context) error
}

// MemoryStore keeps view state in process. It is used when Redis is not
// configured and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	state     blocks.ViewState
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Load(_ context.Context, documentID, userID string) (blocks.ViewState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(documentID, userID)
	entry, ok := m.entries[k]
	if !ok {
		return blocks.ViewState{}, nil
	}
	if m.ttl > 0 && m.now().After(entry.expiresAt) {
		delete(m.entries, k)
		return blocks.ViewState{}, nil
	}
	return entry.state, nil
}

// Ping always succeeds; process memory is never unreachable.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) Save(_ context.Context, documentID, userID string, state blocks.ViewState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key(documentID, userID)] = memoryEntry{state: state, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, documentID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key(documentID, userID))
	return nil
}

func key(documentID, userID string) string {
	return "kb:editor:" + documentID + ":" + userID
}
