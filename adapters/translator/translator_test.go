package translator

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/jurubahasa/adapters/llm"
	"github.com/satriahrh/jurubahasa/adapters/stt"
	"github.com/satriahrh/jurubahasa/adapters/tts"
	"github.com/satriahrh/jurubahasa/internal/audio"
)

func TestEchoTranslate(t *testing.T) {
	engine := NewEcho(EchoConfig{Gain: 0.5}, zaptest.NewLogger(t))

	input := []float32{0.2, -0.4, 0.6}
	out, err := engine.Translate(context.Background(), input, "eng")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []float32{0.1, -0.2, 0.3}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Errorf("Sample %d: expected %f, got %f", i, want[i], out[i])
		}
	}
	if input[0] != 0.2 {
		t.Error("Input must not be modified")
	}
}

func TestEchoLatencyRespectsContext(t *testing.T) {
	engine := NewEcho(EchoConfig{Latency: time.Second}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := engine.Translate(ctx, []float32{0}, "eng"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func newTestCascade(t *testing.T, recognizer *stt.MockSpeechToText, synthesizer *tts.MockTextToSpeech) *Cascade {
	t.Helper()
	engine, err := NewCascade(recognizer, llm.NewMockTextTranslator(), synthesizer, "deu", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewCascade failed: %v", err)
	}
	return engine
}

func TestCascadeTranslate(t *testing.T) {
	logger := zaptest.NewLogger(t)
	recognizer := stt.NewMockSpeechToText("Guten Morgen", logger)
	synthesized := []float32{0.25, -0.25, 0.5, 0}
	synthesizer := &tts.MockTextToSpeech{PCM: audio.Float32ToPCM16(synthesized), ChunkSize: 3}

	engine := newTestCascade(t, recognizer, synthesizer)
	out, err := engine.Translate(context.Background(), make([]float32, 1600), "eng")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(out) != len(synthesized) {
		t.Fatalf("Expected %d samples, got %d", len(synthesized), len(out))
	}
	for i := range synthesized {
		if math.Abs(float64(out[i]-synthesized[i])) > 0.001 {
			t.Errorf("Sample %d: expected %f, got %f", i, synthesized[i], out[i])
		}
	}

	configs := recognizer.Configs()
	if len(configs) != 1 || configs[0].Language != "de-DE" || configs[0].SampleRate != 16000 {
		t.Errorf("Unexpected recognition config %+v", configs)
	}
	if texts := synthesizer.Texts(); len(texts) != 1 || texts[0] != "[eng] Guten Morgen" {
		t.Errorf("Unexpected synthesized texts %v", texts)
	}
}

func TestCascadeSameLanguageSkipsTextTranslation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	synthesizer := &tts.MockTextToSpeech{PCM: []byte{0, 0}}
	engine := newTestCascade(t, stt.NewMockSpeechToText("Hallo", logger), synthesizer)

	if _, err := engine.Translate(context.Background(), make([]float32, 10), "deu"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if texts := synthesizer.Texts(); len(texts) != 1 || texts[0] != "Hallo" {
		t.Errorf("Expected untranslated text, got %v", texts)
	}
}

func TestCascadeErrors(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("unknown target", func(t *testing.T) {
		engine := newTestCascade(t, stt.NewMockSpeechToText("x", logger), &tts.MockTextToSpeech{PCM: []byte{0, 0}})
		if _, err := engine.Translate(context.Background(), []float32{0}, "zzz"); !errors.Is(err, ErrUnsupportedLanguage) {
			t.Errorf("Expected ErrUnsupportedLanguage, got %v", err)
		}
	})

	t.Run("empty transcript", func(t *testing.T) {
		engine := newTestCascade(t, stt.NewMockSpeechToText("  ", logger), &tts.MockTextToSpeech{PCM: []byte{0, 0}})
		if _, err := engine.Translate(context.Background(), []float32{0}, "eng"); !errors.Is(err, ErrNoSpeech) {
			t.Errorf("Expected ErrNoSpeech, got %v", err)
		}
	})

	t.Run("recognition failure", func(t *testing.T) {
		recognizer := stt.NewMockSpeechToText("x", logger)
		recognizer.Err = errors.New("quota")
		engine := newTestCascade(t, recognizer, &tts.MockTextToSpeech{PCM: []byte{0, 0}})
		if _, err := engine.Translate(context.Background(), []float32{0}, "eng"); err == nil {
			t.Error("Expected recognition error")
		}
	})

	t.Run("synthesis stream failure", func(t *testing.T) {
		synthesizer := &tts.MockTextToSpeech{PCM: []byte{0, 0}, StreamErr: errors.New("connection reset")}
		engine := newTestCascade(t, stt.NewMockSpeechToText("x", logger), synthesizer)
		if _, err := engine.Translate(context.Background(), []float32{0}, "eng"); err == nil {
			t.Error("Expected synthesis error")
		}
	})

	t.Run("unknown source", func(t *testing.T) {
		if _, err := NewCascade(stt.NewMockSpeechToText("x", logger), llm.NewMockTextTranslator(), &tts.MockTextToSpeech{}, "klingon", logger); !errors.Is(err, ErrUnsupportedLanguage) {
			t.Errorf("Expected ErrUnsupportedLanguage, got %v", err)
		}
	})
}
