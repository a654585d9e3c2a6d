package translator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/domain/repositories"
	"github.com/satriahrh/jurubahasa/internal/audio"
)

var (
	// ErrUnsupportedLanguage is returned for language codes the engine does
	// not know.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrNoSpeech is returned when recognition produced no text.
	ErrNoSpeech = errors.New("no speech recognized")
)

// Cascade translates speech in three steps: recognition in the source
// language, text translation, then synthesis in the target language.
// The synthesizer must emit 16-bit PCM at entities.SampleRate.
type Cascade struct {
	recognizer     repositories.SpeechToText
	textTranslator repositories.TextTranslator
	synthesizer    repositories.TextToSpeech
	sourceLanguage entities.Language
	logger         *zap.Logger
}

var _ repositories.SpeechTranslator = (*Cascade)(nil)

// NewCascade wires the three steps together
func NewCascade(
	recognizer repositories.SpeechToText,
	textTranslator repositories.TextTranslator,
	synthesizer repositories.TextToSpeech,
	sourceLanguage string,
	logger *zap.Logger,
) (*Cascade, error) {
	source, ok := entities.LookupLanguage(sourceLanguage)
	if !ok {
		return nil, fmt.Errorf("%w: source %q", ErrUnsupportedLanguage, sourceLanguage)
	}

	logger.Info("Cascade translation engine ready", zap.String("sourceLanguage", source.Code))
	return &Cascade{
		recognizer:     recognizer,
		textTranslator: textTranslator,
		synthesizer:    synthesizer,
		sourceLanguage: source,
		logger:         logger,
	}, nil
}

// Translate implements repositories.SpeechTranslator
func (c *Cascade) Translate(ctx context.Context, samples []float32, targetLanguage string) ([]float32, error) {
	target, ok := entities.LookupLanguage(targetLanguage)
	if !ok {
		return nil, fmt.Errorf("%w: target %q", ErrUnsupportedLanguage, targetLanguage)
	}

	transcript, err := c.recognizer.TranscribeAudio(ctx, audio.Float32ToPCM16(samples), repositories.AudioConfig{
		SampleRate: entities.SampleRate,
		Encoding:   "LINEAR16",
		Language:   c.sourceLanguage.BCP47,
	})
	if err != nil {
		return nil, fmt.Errorf("speech recognition: %w", err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrNoSpeech
	}

	text := transcript
	if target.Code != c.sourceLanguage.Code {
		text, err = c.textTranslator.TranslateText(ctx, transcript, c.sourceLanguage.Code, target.Code)
		if err != nil {
			return nil, fmt.Errorf("text translation: %w", err)
		}
	}

	c.logger.Debug("Cascade text stage done",
		zap.String("sourceLanguage", c.sourceLanguage.Code),
		zap.String("targetLanguage", target.Code),
		zap.Int("transcriptLength", len(transcript)),
		zap.Int("translationLength", len(text)),
	)

	stream, err := c.synthesizer.ConvertTextToSpeech(ctx, text, target.BCP47)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}

	var pcm bytes.Buffer
	for chunk := range stream {
		if chunk.Err != nil {
			return nil, fmt.Errorf("speech synthesis: %w", chunk.Err)
		}
		pcm.Write(chunk.Data)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pcm.Len() == 0 {
		return nil, fmt.Errorf("speech synthesis: empty audio")
	}

	return audio.PCM16ToFloat32(pcm.Bytes()), nil
}

// Name returns "cascade"
func (c *Cascade) Name() string { return "cascade" }
