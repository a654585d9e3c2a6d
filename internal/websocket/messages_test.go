package websocket

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseControlMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    MessageType
		wantErr error
	}{
		{"set silence duration", `{"type":"set_silence_duration","silence_ms":800}`, MessageTypeSetSilenceDuration, nil},
		{"reset", `{"type":"reset"}`, MessageTypeReset, nil},
		{"ping", `{"type":"ping"}`, MessageTypePing, nil},
		{"missing silence_ms", `{"type":"set_silence_duration"}`, "", ErrInvalidMessage},
		{"missing type", `{"silence_ms":800}`, "", ErrInvalidMessage},
		{"malformed json", `{"type":`, "", ErrInvalidMessage},
		{"unknown type", `{"type":"listening_start"}`, "", ErrUnsupportedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseControlMessage([]byte(tt.message))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if msg.Type != tt.want {
				t.Errorf("Expected type %s, got %s", tt.want, msg.Type)
			}
		})
	}
}

func TestParseControlMessageSilenceValue(t *testing.T) {
	msg, err := ParseControlMessage([]byte(`{"type":"set_silence_duration","silence_ms":99}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if *msg.SilenceMs != 99 {
		t.Errorf("Expected silence_ms 99, got %d", *msg.SilenceMs)
	}
}

func TestCreateMessagesSerialization(t *testing.T) {
	tests := []struct {
		name     string
		message  interface{}
		expected map[string]interface{}
	}{
		{
			name:    "error",
			message: CreateErrorMessage(ErrorCodeInvalidSilenceDuration, "out of range"),
			expected: map[string]interface{}{
				"type":       "error",
				"error_code": "invalid_silence_duration",
				"message":    "out of range",
			},
		},
		{
			name:     "config updated",
			message:  CreateConfigUpdatedMessage(800),
			expected: map[string]interface{}{"type": "config_updated", "silence_ms": float64(800)},
		},
		{
			name:    "session started",
			message: CreateSessionStartedMessage("abc", "eng", 16000, 500),
			expected: map[string]interface{}{
				"type":        "session_started",
				"session_id":  "abc",
				"tgt_lang":    "eng",
				"sample_rate": float64(16000),
			},
		},
		{
			name:     "utterance detected",
			message:  CreateUtteranceDetectedMessage(3, 1500*time.Millisecond),
			expected: map[string]interface{}{"type": "utterance_detected", "seq": float64(3), "duration_ms": float64(1500)},
		},
		{
			name:     "utterance translated",
			message:  CreateUtteranceTranslatedMessage(3, 250*time.Millisecond, 4096),
			expected: map[string]interface{}{"type": "utterance_translated", "seq": float64(3), "latency_ms": float64(250), "bytes": float64(4096)},
		},
		{
			name:     "translation failed",
			message:  CreateTranslationFailedMessage(4),
			expected: map[string]interface{}{"type": "error", "error_code": "translation_failed", "seq": float64(4)},
		},
		{
			name:     "pong",
			message:  CreatePongMessage(),
			expected: map[string]interface{}{"type": "pong"},
		},
		{
			name:     "reset done",
			message:  CreateResetDoneMessage(),
			expected: map[string]interface{}{"type": "reset_done"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.message)
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}

			var decoded map[string]interface{}
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}

			for key, want := range tt.expected {
				if decoded[key] != want {
					t.Errorf("Expected %s=%v, got %v", key, want, decoded[key])
				}
			}
			if decoded["timestamp"] == "" {
				t.Error("Expected timestamp to be set")
			}
		})
	}
}
