package tts

import (
	"context"
	"fmt"
	"sync"

	"github.com/satriahrh/jurubahasa/domain/repositories"
)

// MockTextToSpeech streams a fixed PCM payload split into chunks and records
// the texts it was asked to speak.
type MockTextToSpeech struct {
	PCM       []byte
	ChunkSize int
	// StreamErr, if non-nil, is delivered as the last chunk.
	StreamErr error

	mu    sync.Mutex
	texts []string
}

// ConvertTextToSpeech implements repositories.TextToSpeech
func (m *MockTextToSpeech) ConvertTextToSpeech(ctx context.Context, text, languageCode string) (<-chan repositories.AudioChunk, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	size := m.ChunkSize
	if size <= 0 {
		size = 1024
	}

	out := make(chan repositories.AudioChunk, len(m.PCM)/size+2)
	for start := 0; start < len(m.PCM); start += size {
		end := start + size
		if end > len(m.PCM) {
			end = len(m.PCM)
		}
		out <- repositories.AudioChunk{Data: m.PCM[start:end]}
	}
	if m.StreamErr != nil {
		out <- repositories.AudioChunk{Err: m.StreamErr}
	}
	close(out)
	return out, nil
}

// Texts returns every text spoken so far
func (m *MockTextToSpeech) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)
