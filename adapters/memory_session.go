package adapters

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/domain/repositories"
)

// MemorySessionRepository is an in-memory implementation of SessionRepository
// used when no MongoDB URI is configured
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.TranslationSession
	ttl      time.Duration
	now      func() time.Time
}

var _ repositories.SessionRepository = (*MemorySessionRepository)(nil)

// NewMemorySessionRepository creates a new in-memory session repository
func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	if ttl <= 0 {
		ttl = entities.DefaultSessionTTL
	}
	return &MemorySessionRepository{
		sessions: make(map[string]*entities.TranslationSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create implements SessionRepository interface
func (m *MemorySessionRepository) Create(ctx context.Context, session *entities.TranslationSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}

	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return errors.New("session with this ID already exists")
	}

	session.ExpiresAt = session.LastActiveAt.Add(m.ttl)
	m.sessions[session.ID] = cloneSession(session)
	return nil
}

// GetByID implements SessionRepository interface
func (m *MemorySessionRepository) GetByID(ctx context.Context, sessionID string) (*entities.TranslationSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, repositories.ErrSessionNotFound
	}

	// Return a copy to prevent external modifications
	return cloneSession(session), nil
}

// AppendUtterance implements SessionRepository interface
func (m *MemorySessionRepository) AppendUtterance(ctx context.Context, sessionID string, record entities.UtteranceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return repositories.ErrSessionNotFound
	}

	session.AddUtterance(record)
	session.LastActiveAt = m.now()
	session.ExpiresAt = session.LastActiveAt.Add(m.ttl)
	return nil
}

// Close implements SessionRepository interface
func (m *MemorySessionRepository) Close(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return repositories.ErrSessionNotFound
	}

	session.Close()
	return nil
}

// ListActive implements SessionRepository interface. Newest sessions come first.
func (m *MemorySessionRepository) ListActive(ctx context.Context) ([]*entities.TranslationSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	result := make([]*entities.TranslationSession, 0)
	for _, session := range m.sessions {
		if session.Status == entities.SessionStatusActive && now.Before(session.ExpiresAt) {
			result = append(result, cloneSession(session))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// ExpireSessions implements SessionRepository interface
func (m *MemorySessionRepository) ExpireSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var count int64
	for _, session := range m.sessions {
		if session.Status == entities.SessionStatusActive && now.After(session.ExpiresAt) {
			session.Expire()
			count++
		}
	}
	return count, nil
}

func cloneSession(session *entities.TranslationSession) *entities.TranslationSession {
	sessionCopy := *session
	sessionCopy.Utterances = append([]entities.UtteranceRecord(nil), session.Utterances...)
	if session.EndedAt != nil {
		endedAt := *session.EndedAt
		sessionCopy.EndedAt = &endedAt
	}
	return &sessionCopy
}
