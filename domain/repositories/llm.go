package repositories

import "context"

// TextTranslator abstracts a text translation provider
type TextTranslator interface {
	// TranslateText translates text from sourceLanguage into targetLanguage.
	// Languages are ISO 639-3 codes.
	TranslateText(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
}
