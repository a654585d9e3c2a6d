package vad

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/domain/repositories"
	"github.com/satriahrh/jurubahasa/internal/audio"
)

// Config holds the settings of the energy model and its sessions
type Config struct {
	// Threshold is the speech probability at which speech starts.
	Threshold float64
	// MinSilenceMs is the silence that ends speech.
	MinSilenceMs int
	// SpeechPadMs widens reported boundaries on both sides.
	SpeechPadMs int
	// MidpointDBFS is the RMS level, in dBFS, mapped to probability 0.5.
	MidpointDBFS float64
	// Slope is the steepness of the dBFS to probability curve.
	Slope float64
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{
		Threshold:    0.5,
		MinSilenceMs: 500,
		SpeechPadMs:  30,
		MidpointDBFS: -40,
		Slope:        0.5,
	}
}

// EnergyModel estimates speech probability from the RMS level of a window.
// It holds no per-connection state and is shared by every session.
type EnergyModel struct {
	config Config
	logger *zap.Logger
}

// NewEnergyModel validates config and creates the shared model
func NewEnergyModel(config Config, logger *zap.Logger) (*EnergyModel, error) {
	if config.Threshold <= 0 || config.Threshold >= 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %f", config.Threshold)
	}
	if config.MinSilenceMs < 0 {
		return nil, fmt.Errorf("min silence must not be negative, got %d", config.MinSilenceMs)
	}
	if config.SpeechPadMs < 0 {
		return nil, fmt.Errorf("speech pad must not be negative, got %d", config.SpeechPadMs)
	}
	if config.Slope <= 0 {
		return nil, fmt.Errorf("slope must be positive, got %f", config.Slope)
	}

	logger.Info("Voice activity model loaded",
		zap.String("model", "energy"),
		zap.Float64("threshold", config.Threshold),
		zap.Int("minSilenceMs", config.MinSilenceMs),
		zap.Int("speechPadMs", config.SpeechPadMs),
		zap.Float64("midpointDBFS", config.MidpointDBFS),
	)

	return &EnergyModel{config: config, logger: logger}, nil
}

// Probability returns the speech probability of window
func (m *EnergyModel) Probability(window entities.AudioWindow) float64 {
	rms := audio.RMS(window)
	dbfs := 20 * math.Log10(rms+1e-10)
	return 1 / (1 + math.Exp(-m.config.Slope*(dbfs-m.config.MidpointDBFS)))
}

// NewSession opens per-connection classifier state on the shared model
func (m *EnergyModel) NewSession() repositories.VoiceActivityClassifier {
	return newSession(m, m.config)
}

// Name returns the model name
func (m *EnergyModel) Name() string { return "energy" }

var _ repositories.VoiceActivityModel = (*EnergyModel)(nil)
