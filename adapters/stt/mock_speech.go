package stt

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/jurubahasa/domain/repositories"
)

// MockSpeechToText returns a fixed transcript and records every request
type MockSpeechToText struct {
	Transcript string
	Err        error

	mu      sync.Mutex
	configs []repositories.AudioConfig
	logger  *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(transcript string, logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{Transcript: transcript, logger: logger}
}

// TranscribeAudio implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	s.mu.Lock()
	s.configs = append(s.configs, config)
	s.mu.Unlock()

	s.logger.Debug("Mock transcription",
		zap.Int("audioSize", len(audioData)),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("language", config.Language))

	if s.Err != nil {
		return "", s.Err
	}
	if len(audioData) == 0 {
		return "", fmt.Errorf("no audio data received")
	}
	return s.Transcript, nil
}

// Configs returns the audio configs of every request so far
func (s *MockSpeechToText) Configs() []repositories.AudioConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repositories.AudioConfig(nil), s.configs...)
}

var _ repositories.SpeechToText = (*MockSpeechToText)(nil)
