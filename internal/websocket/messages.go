package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType defines the type of a JSON text frame
type MessageType string

// Client to server message types
const (
	MessageTypeSetSilenceDuration MessageType = "set_silence_duration"
	MessageTypeReset              MessageType = "reset"
	MessageTypePing               MessageType = "ping"
)

// Server to client message types
const (
	MessageTypeSessionStarted      MessageType = "session_started"
	MessageTypeUtteranceDetected   MessageType = "utterance_detected"
	MessageTypeUtteranceTranslated MessageType = "utterance_translated"
	MessageTypeConfigUpdated       MessageType = "config_updated"
	MessageTypeResetDone           MessageType = "reset_done"
	MessageTypePong                MessageType = "pong"
	MessageTypeError               MessageType = "error"
)

// Error codes sent in ErrorMessage
const (
	ErrorCodeInvalidMessage         = "invalid_message"
	ErrorCodeUnsupportedMessage     = "unsupported_message"
	ErrorCodeInvalidSilenceDuration = "invalid_silence_duration"
	ErrorCodeTranslationFailed      = "translation_failed"
)

var (
	// ErrInvalidMessage is returned for text frames that are not a JSON control message.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrUnsupportedMessage is returned for control messages of an unknown type.
	ErrUnsupportedMessage = errors.New("unsupported message type")
)

// BaseMessage defines the common structure for all text frames
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// ControlMessage is a client request received as a text frame
type ControlMessage struct {
	BaseMessage
	SilenceMs *int `json:"silence_ms,omitempty"`
}

// SessionStartedMessage is sent once the connection is ready for audio
type SessionStartedMessage struct {
	BaseMessage
	SessionID      string `json:"session_id"`
	TargetLanguage string `json:"tgt_lang"`
	SampleRate     int    `json:"sample_rate"`
	SilenceMs      int    `json:"silence_ms"`
}

// UtteranceDetectedMessage is sent when an utterance is queued for translation
type UtteranceDetectedMessage struct {
	BaseMessage
	Seq        uint64 `json:"seq"`
	DurationMs int64  `json:"duration_ms"`
}

// ConfigUpdatedMessage acknowledges a silence duration change
type ConfigUpdatedMessage struct {
	BaseMessage
	SilenceMs int `json:"silence_ms"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	// Seq is set when the error concerns a single utterance.
	Seq *uint64 `json:"seq,omitempty"`
}

// UtteranceTranslatedMessage follows the binary frame of a translated utterance
type UtteranceTranslatedMessage struct {
	BaseMessage
	Seq       uint64 `json:"seq"`
	LatencyMs int64  `json:"latency_ms"`
	Bytes     int    `json:"bytes"`
}

// ParseControlMessage decodes and validates a text frame
func ParseControlMessage(data []byte) (*ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	switch msg.Type {
	case MessageTypeSetSilenceDuration:
		if msg.SilenceMs == nil {
			return nil, fmt.Errorf("%w: silence_ms is required", ErrInvalidMessage)
		}
	case MessageTypeReset, MessageTypePing:
	case "":
		return nil, fmt.Errorf("%w: type is required", ErrInvalidMessage)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMessage, msg.Type)
	}

	return &msg, nil
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().Format(time.RFC3339)}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{BaseMessage: newBase(MessageTypeError), Code: code, Message: message}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage() *BaseMessage {
	base := newBase(MessageTypePong)
	return &base
}

// CreateResetDoneMessage acknowledges a segmentation reset
func CreateResetDoneMessage() *BaseMessage {
	base := newBase(MessageTypeResetDone)
	return &base
}

// CreateConfigUpdatedMessage acknowledges a new silence duration
func CreateConfigUpdatedMessage(silenceMs int) *ConfigUpdatedMessage {
	return &ConfigUpdatedMessage{BaseMessage: newBase(MessageTypeConfigUpdated), SilenceMs: silenceMs}
}

// CreateSessionStartedMessage announces a new session
func CreateSessionStartedMessage(sessionID, targetLanguage string, sampleRate, silenceMs int) *SessionStartedMessage {
	return &SessionStartedMessage{
		BaseMessage:    newBase(MessageTypeSessionStarted),
		SessionID:      sessionID,
		TargetLanguage: targetLanguage,
		SampleRate:     sampleRate,
		SilenceMs:      silenceMs,
	}
}

// CreateUtteranceDetectedMessage announces a queued utterance
func CreateUtteranceDetectedMessage(seq uint64, duration time.Duration) *UtteranceDetectedMessage {
	return &UtteranceDetectedMessage{
		BaseMessage: newBase(MessageTypeUtteranceDetected),
		Seq:         seq,
		DurationMs:  duration.Milliseconds(),
	}
}

// CreateTranslationFailedMessage reports an utterance that was dropped
func CreateTranslationFailedMessage(seq uint64) *ErrorMessage {
	msg := CreateErrorMessage(ErrorCodeTranslationFailed, fmt.Sprintf("translation of utterance %d failed", seq))
	msg.Seq = &seq
	return msg
}

// CreateUtteranceTranslatedMessage reports a delivered translation
func CreateUtteranceTranslatedMessage(seq uint64, latency time.Duration, bytes int) *UtteranceTranslatedMessage {
	return &UtteranceTranslatedMessage{
		BaseMessage: newBase(MessageTypeUtteranceTranslated),
		Seq:         seq,
		LatencyMs:   latency.Milliseconds(),
		Bytes:       bytes,
	}
}
