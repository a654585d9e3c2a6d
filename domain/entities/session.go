package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the status of a translation session
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusClosed  SessionStatus = "closed"
	SessionStatusExpired SessionStatus = "expired"
)

// UtteranceStatus is the outcome of translating one utterance
type UtteranceStatus string

const (
	UtteranceStatusTranslated UtteranceStatus = "translated"
	UtteranceStatusFailed     UtteranceStatus = "failed"
)

// DefaultSessionTTL is how long a session record stays active without
// activity before the cleanup job expires it.
const DefaultSessionTTL = 24 * time.Hour

// UtteranceRecord is the persisted trace of one translated utterance
type UtteranceRecord struct {
	Seq              uint64          `json:"seq" bson:"seq"`
	DetectedAt       time.Time       `json:"detected_at" bson:"detected_at"`
	InputDurationMs  int64           `json:"input_duration_ms" bson:"input_duration_ms"`
	OutputDurationMs int64           `json:"output_duration_ms" bson:"output_duration_ms"`
	LatencyMs        int64           `json:"latency_ms" bson:"latency_ms"`
	Status           UtteranceStatus `json:"status" bson:"status"`
	Error            string          `json:"error,omitempty" bson:"error,omitempty"`
}

// SessionStats aggregates utterance outcomes of a session
type SessionStats struct {
	Detected   int `json:"detected" bson:"detected"`
	Translated int `json:"translated" bson:"translated"`
	Failed     int `json:"failed" bson:"failed"`
}

// TranslationSession is the record of a single websocket connection
type TranslationSession struct {
	ID             string            `json:"id" bson:"_id"`
	ClientID       string            `json:"client_id" bson:"client_id"`
	SourceLanguage string            `json:"source_language" bson:"source_language"`
	TargetLanguage string            `json:"target_language" bson:"target_language"`
	Engine         string            `json:"engine" bson:"engine"`
	CreatedAt      time.Time         `json:"created_at" bson:"created_at"`
	LastActiveAt   time.Time         `json:"last_active_at" bson:"last_active_at"`
	EndedAt        *time.Time        `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
	ExpiresAt      time.Time         `json:"expires_at" bson:"expires_at"`
	Status         SessionStatus     `json:"status" bson:"status"`
	Stats          SessionStats      `json:"stats" bson:"stats"`
	Utterances     []UtteranceRecord `json:"utterances" bson:"utterances"`
}

// NewTranslationSession creates a new active session for a connection
func NewTranslationSession(clientID, sourceLanguage, targetLanguage, engine string) *TranslationSession {
	now := time.Now()
	return &TranslationSession{
		ID:             uuid.NewString(),
		ClientID:       clientID,
		SourceLanguage: sourceLanguage,
		TargetLanguage: targetLanguage,
		Engine:         engine,
		CreatedAt:      now,
		LastActiveAt:   now,
		ExpiresAt:      now.Add(DefaultSessionTTL),
		Status:         SessionStatusActive,
		Utterances:     make([]UtteranceRecord, 0),
	}
}

// AddUtterance appends an utterance outcome and updates the counters
func (s *TranslationSession) AddUtterance(record UtteranceRecord) {
	s.Utterances = append(s.Utterances, record)
	s.Stats.Detected++
	switch record.Status {
	case UtteranceStatusTranslated:
		s.Stats.Translated++
	case UtteranceStatusFailed:
		s.Stats.Failed++
	}
	s.UpdateLastActive()
}

// UpdateLastActive updates the last active timestamp and extends expiration
func (s *TranslationSession) UpdateLastActive() {
	s.LastActiveAt = time.Now()
	s.ExpiresAt = s.LastActiveAt.Add(DefaultSessionTTL)
}

// Close marks the session as ended by the client
func (s *TranslationSession) Close() {
	now := time.Now()
	s.EndedAt = &now
	s.Status = SessionStatusClosed
	s.LastActiveAt = now
}

// Expire marks the session as expired
func (s *TranslationSession) Expire() {
	s.Status = SessionStatusExpired
}

// IsExpired checks if the session has expired
func (s *TranslationSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt) || s.Status == SessionStatusExpired
}

// Validate validates the session data
func (s *TranslationSession) Validate() error {
	if s.ID == "" {
		return errors.New("id is required")
	}

	if s.TargetLanguage == "" {
		return errors.New("target_language is required")
	}

	switch s.Status {
	case SessionStatusActive, SessionStatusClosed, SessionStatusExpired:
	default:
		return errors.New("invalid session status")
	}

	return nil
}
