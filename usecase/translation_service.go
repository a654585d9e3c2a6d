package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/domain/repositories"
	"github.com/satriahrh/jurubahasa/internal/audio"
	"github.com/satriahrh/jurubahasa/internal/metrics"
	"github.com/satriahrh/jurubahasa/internal/pipeline"
)

// ErrEmptyTranslation is returned when the engine produced no audio.
var ErrEmptyTranslation = errors.New("engine returned no audio")

const recordTimeout = 5 * time.Second

// TranslationService turns one utterance into the WAV payload sent back to
// the client, and keeps the session record up to date.
type TranslationService struct {
	engine   repositories.SpeechTranslator
	sessions repositories.SessionRepository
	metrics  *metrics.Metrics
	debugDir string
	logger   *zap.Logger
}

var _ pipeline.Translator = (*TranslationService)(nil)

// TranslationServiceOption configures a TranslationService
type TranslationServiceOption func(*TranslationService)

// WithDebugDir dumps every input and output utterance as WAV into dir
func WithDebugDir(dir string) TranslationServiceOption {
	return func(s *TranslationService) { s.debugDir = dir }
}

// WithServiceMetrics records translation latency and failures
func WithServiceMetrics(m *metrics.Metrics) TranslationServiceOption {
	return func(s *TranslationService) { s.metrics = m }
}

// NewTranslationService creates a new translation service. sessions may be
// nil, in which case nothing is recorded.
func NewTranslationService(
	engine repositories.SpeechTranslator,
	sessions repositories.SessionRepository,
	logger *zap.Logger,
	opts ...TranslationServiceOption,
) *TranslationService {
	s := &TranslationService{
		engine:   engine,
		sessions: sessions,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EngineName returns the name of the configured engine
func (s *TranslationService) EngineName() string {
	return s.engine.Name()
}

// TranslateUtterance implements pipeline.Translator
func (s *TranslationService) TranslateUtterance(ctx context.Context, sessionID string, utt *entities.Utterance, targetLanguage string) ([]byte, error) {
	start := time.Now()

	if audio.IsQuiet(utt.Samples) {
		s.logger.Warn("Input audio is extremely quiet",
			zap.String("sessionID", sessionID),
			zap.Uint64("seq", utt.Seq),
			zap.Float32("peak", audio.Peak(utt.Samples)))
	}
	s.dump(sessionID, utt.Seq, "input", utt.Samples)

	payload, output, err := s.translate(ctx, utt, targetLanguage)
	latency := time.Since(start)
	s.metrics.RecordTranslation(latency.Seconds(), err)

	record := entities.UtteranceRecord{
		Seq:              utt.Seq,
		DetectedAt:       utt.DetectedAt,
		InputDurationMs:  utt.Duration().Milliseconds(),
		OutputDurationMs: entities.SamplesToDuration(len(output)).Milliseconds(),
		LatencyMs:        latency.Milliseconds(),
		Status:           entities.UtteranceStatusTranslated,
	}
	if err != nil {
		record.Status = entities.UtteranceStatusFailed
		record.Error = err.Error()
	}
	s.record(ctx, sessionID, record)

	if err != nil {
		return nil, err
	}
	s.dump(sessionID, utt.Seq, "output", output)

	s.logger.Info("Utterance translated",
		zap.String("sessionID", sessionID),
		zap.Uint64("seq", utt.Seq),
		zap.String("engine", s.engine.Name()),
		zap.Duration("latency", latency),
		zap.Int("outputBytes", len(payload)))
	return payload, nil
}

func (s *TranslationService) translate(ctx context.Context, utt *entities.Utterance, targetLanguage string) ([]byte, []float32, error) {
	translated, err := s.engine.Translate(ctx, utt.Samples, targetLanguage)
	if err != nil {
		return nil, nil, fmt.Errorf("%s engine: %w", s.engine.Name(), err)
	}
	if len(translated) == 0 {
		return nil, nil, ErrEmptyTranslation
	}

	normalized := audio.Normalize(translated)
	payload, err := audio.EncodeFloatWAV(normalized, entities.SampleRate)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode output: %w", err)
	}
	return payload, normalized, nil
}

func (s *TranslationService) record(ctx context.Context, sessionID string, record entities.UtteranceRecord) {
	if s.sessions == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := s.sessions.AppendUtterance(ctx, sessionID, record); err != nil {
		s.logger.Warn("Failed to record utterance",
			zap.String("sessionID", sessionID),
			zap.Uint64("seq", record.Seq),
			zap.Error(err))
	}
}

func (s *TranslationService) dump(sessionID string, seq uint64, kind string, samples []float32) {
	if s.debugDir == "" {
		return
	}

	data, err := audio.EncodeFloatWAV(samples, entities.SampleRate)
	if err != nil {
		s.logger.Warn("Failed to encode debug audio", zap.Error(err))
		return
	}

	name := filepath.Join(s.debugDir, fmt.Sprintf("%s_%d_%s.wav", sessionID, seq, kind))
	if err := os.WriteFile(name, data, 0o644); err != nil {
		s.logger.Warn("Failed to write debug audio", zap.String("path", name), zap.Error(err))
		return
	}
	s.logger.Debug("Debug audio written", zap.String("path", name))
}
