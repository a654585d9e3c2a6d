package repositories

import (
	"context"
	"errors"

	"github.com/satriahrh/jurubahasa/domain/entities"
)

// ErrSessionNotFound is returned when no session matches the given ID
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository defines data access methods for translation sessions
type SessionRepository interface {
	Create(ctx context.Context, session *entities.TranslationSession) error
	GetByID(ctx context.Context, sessionID string) (*entities.TranslationSession, error)
	// AppendUtterance records an utterance outcome and bumps the session counters
	AppendUtterance(ctx context.Context, sessionID string, record entities.UtteranceRecord) error
	Close(ctx context.Context, sessionID string) error
	ListActive(ctx context.Context) ([]*entities.TranslationSession, error)
	// ExpireSessions marks every active session past its expiry as expired
	// and returns how many were touched.
	ExpireSessions(ctx context.Context) (int64, error)
}
