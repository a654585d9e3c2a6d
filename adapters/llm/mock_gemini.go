package llm

import (
	"context"
	"fmt"

	"github.com/satriahrh/jurubahasa/domain/repositories"
)

// MockTextTranslator is a placeholder implementation for text translation.
// It tags the text with the target language instead of translating it.
type MockTextTranslator struct {
	Err error
}

// NewMockTextTranslator creates a new mock text translator
func NewMockTextTranslator() *MockTextTranslator {
	return &MockTextTranslator{}
}

// TranslateText implements repositories.TextTranslator
func (m *MockTextTranslator) TranslateText(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return fmt.Sprintf("[%s] %s", targetLanguage, text), nil
}

var _ repositories.TextTranslator = (*MockTextTranslator)(nil)
