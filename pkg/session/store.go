package session

import (
	"sync"

	"github.com/rs/zerolog"
)

// Store is keyed storage for session records. Implementations must be
// safe for concurrent use across senders; callers that mutate a single
// sender's session are expected to serialize their own read-modify-write
// cycles (the conversation engine does this per sender).
type Store interface {
	// GetOrCreate returns the session for senderID, creating one in the
	// starting state if the sender has never been seen. It never fails.
	GetOrCreate(senderID string) *Session
	// Put replaces the stored session for senderID wholesale.
	Put(senderID string, sess *Session)
	// Get looks up a session without creating one.
	Get(senderID string) (*Session, bool)
	// ListIDs returns all known sender identities. Order is unspecified;
	// callers must not rely on it.
	ListIDs() []string
	// CountByState returns how many sessions are currently in each
	// state. States with no sessions may be absent from the map.
	CountByState() map[State]int
}

// MemoryStore keeps all sessions in process memory. Nothing is evicted
// and nothing survives a restart; that is the intended lifetime.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
	logger   zerolog.Logger
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(logger zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		logger:   logger.With().Str("component", "session.store").Logger(),
	}
}

// GetOrCreate returns a copy of the stored session, creating a fresh one
// on first contact. Copies keep the store race-free even when the admin
// surface reads a session the engine is mid-way through updating.
func (m *MemoryStore) GetOrCreate(senderID string) *Session {
	m.mu.RLock()
	existing, ok := m.sessions[senderID]
	m.mu.RUnlock()
	if ok {
		return existing.Clone()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[senderID]; ok {
		return existing.Clone()
	}
	sess := New(senderID)
	m.sessions[senderID] = sess
	m.order = append(m.order, senderID)
	m.logger.Debug().Str("sender_id", senderID).Msg("Session created")
	return sess.Clone()
}

// Put replaces the stored session. Unknown senders are stored as-is,
// silently; overwrites are silent too.
func (m *MemoryStore) Put(senderID string, sess *Session) {
	if sess == nil {
		return
	}
	stored := sess.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[senderID]; !ok {
		m.order = append(m.order, senderID)
	}
	m.sessions[senderID] = stored
}

// Get returns a copy of the session for senderID, or false when the
// sender has never been seen. Absence is not an error.
func (m *MemoryStore) Get(senderID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[senderID]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

// ListIDs returns sender identities in insertion order.
func (m *MemoryStore) ListIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids
}

// Count returns the number of known sessions.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CountByState returns how many sessions are currently in each state.
func (m *MemoryStore) CountByState() map[State]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[State]int, len(stateNames))
	for _, sess := range m.sessions {
		counts[sess.State]++
	}
	return counts
}
