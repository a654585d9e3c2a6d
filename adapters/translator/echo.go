package translator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/jurubahasa/domain/repositories"
)

// EchoConfig holds the settings of the echo engine
type EchoConfig struct {
	// Gain is applied to every sample. Zero means 1.
	Gain float64
	// Latency simulates inference time.
	Latency time.Duration
}

// Echo is the local development engine: it returns the utterance audio
// itself, so the whole pipeline can run without cloud credentials.
type Echo struct {
	gain    float32
	latency time.Duration
	logger  *zap.Logger
}

var _ repositories.SpeechTranslator = (*Echo)(nil)

// NewEcho creates the echo engine
func NewEcho(config EchoConfig, logger *zap.Logger) *Echo {
	gain := float32(config.Gain)
	if gain == 0 {
		gain = 1
	}
	logger.Info("Echo translation engine ready",
		zap.Float32("gain", gain),
		zap.Duration("latency", config.Latency))
	return &Echo{gain: gain, latency: config.Latency, logger: logger}
}

// Translate returns a gain-adjusted copy of samples after the configured
// latency
func (e *Echo) Translate(ctx context.Context, samples []float32, targetLanguage string) ([]float32, error) {
	if e.latency > 0 {
		timer := time.NewTimer(e.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s * e.gain
	}
	return out, nil
}

// Name returns "echo"
func (e *Echo) Name() string { return "echo" }
