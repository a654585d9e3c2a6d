package repositories

import "context"

// AudioChunk is one piece of a synthesized audio stream. A chunk carrying
// Err is the last one sent.
type AudioChunk struct {
	Data []byte
	Err  error
}

// TextToSpeech streams synthesized audio for a text. The chunk format is
// decided by the implementation's output format setting. languageCode is a
// BCP-47 tag and may be ignored by providers that detect the language.
type TextToSpeech interface {
	ConvertTextToSpeech(ctx context.Context, text, languageCode string) (<-chan AudioChunk, error)
}
