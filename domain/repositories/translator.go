package repositories

import "context"

// SpeechTranslator turns an utterance into synthesized speech in the target
// language. Input and output are mono float32 samples at entities.SampleRate.
type SpeechTranslator interface {
	Translate(ctx context.Context, samples []float32, targetLanguage string) ([]float32, error)
	Name() string
}
