package api

import (
	"time"

	"github.com/satriahrh/jurubahasa/domain/entities"
)

// TokenRequest represents the request payload for client token issuance
type TokenRequest struct {
	ClientID string `json:"client_id"`
}

// TokenResponse represents the response payload for client token issuance
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ClientID  string    `json:"client_id"`
}

// StatusResponse reports what the server is running
type StatusResponse struct {
	Status            string `json:"status"`
	Engine            string `json:"engine"`
	VADModel          string `json:"vad_model"`
	ActiveConnections int    `json:"active_connections"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SessionSummary is a translation session without its utterance records
type SessionSummary struct {
	ID             string                 `json:"id"`
	ClientID       string                 `json:"client_id"`
	TargetLanguage string                 `json:"target_language"`
	Engine         string                 `json:"engine"`
	Status         entities.SessionStatus `json:"status"`
	Stats          entities.SessionStats  `json:"stats"`
	CreatedAt      time.Time              `json:"created_at"`
	LastActiveAt   time.Time              `json:"last_active_at"`
}

// SessionListResponse lists the active translation sessions
type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
	Count    int              `json:"count"`
}

func summarize(session *entities.TranslationSession) SessionSummary {
	return SessionSummary{
		ID:             session.ID,
		ClientID:       session.ClientID,
		TargetLanguage: session.TargetLanguage,
		Engine:         session.Engine,
		Status:         session.Status,
		Stats:          session.Stats,
		CreatedAt:      session.CreatedAt,
		LastActiveAt:   session.LastActiveAt,
	}
}
