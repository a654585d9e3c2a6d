package segment

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/domain/repositories"
	"github.com/satriahrh/jurubahasa/internal/metrics"
)

const (
	MinSilenceMs     = 100
	MaxSilenceMs     = 5000
	DefaultSilenceMs = 500
)

// ErrSilenceOutOfRange is returned when a silence duration outside
// [MinSilenceMs, MaxSilenceMs] is requested. The previous value is kept.
var ErrSilenceOutOfRange = errors.New("silence duration out of range")

// Segmenter cuts a connection's audio byte stream into utterances using a
// voice activity classifier. One Segmenter belongs to one connection and must
// only be used from a single goroutine.
type Segmenter struct {
	classifier repositories.VoiceActivityClassifier
	logger     *zap.Logger
	metrics    *metrics.Metrics

	acc         Accumulator
	state       State
	accumulated []entities.AudioWindow
	silenceMs   int
	paddingMs   int
	seq         uint64
}

// Option configures a Segmenter
type Option func(*Segmenter)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Segmenter) { s.logger = logger }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Segmenter) { s.metrics = m }
}

// WithPadding sets the zero padding added on both ends of an utterance.
// Negative values are treated as 0.
func WithPadding(ms int) Option {
	return func(s *Segmenter) {
		if ms < 0 {
			ms = 0
		}
		s.paddingMs = ms
	}
}

// WithSilenceDuration sets the initial silence duration. Out of range values
// leave DefaultSilenceMs in place.
func WithSilenceDuration(ms int) Option {
	return func(s *Segmenter) {
		if ms >= MinSilenceMs && ms <= MaxSilenceMs {
			s.silenceMs = ms
		}
	}
}

// New creates a Segmenter on top of classifier and pushes the initial
// silence duration to it.
func New(classifier repositories.VoiceActivityClassifier, opts ...Option) *Segmenter {
	s := &Segmenter{
		classifier: classifier,
		logger:     zap.NewNop(),
		silenceMs:  DefaultSilenceMs,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.classifier.SetSilenceSamples(entities.MillisToSamples(s.silenceMs))
	return s
}

// Process feeds chunk through the classifier one window at a time and
// returns an utterance when the classifier reports the end of speech.
// Processing stops at the window carrying the end event; later windows stay
// buffered for the next call.
func (s *Segmenter) Process(chunk []byte) (*entities.Utterance, bool) {
	if len(chunk) == 0 {
		return nil, false
	}
	s.acc.Append(chunk)

	for {
		window, ok := s.acc.Next()
		if !ok {
			return nil, false
		}

		event, err := s.classifier.Call(window)
		s.metrics.RecordWindow()
		if err != nil {
			s.logger.Warn("Voice activity classifier failed, treating window as no event", zap.Error(err))
			s.metrics.RecordClassifierError()
			event = repositories.BoundaryEvent{Kind: repositories.BoundaryNone}
		}

		switch {
		case event.Kind == repositories.BoundaryStart && s.state == Recording:
			s.logger.Debug("Speech start reported while already recording", zap.Int("offset", event.Offset))
			s.metrics.RecordAnomaly("start_while_recording")
		case event.Kind == repositories.BoundaryStart:
			s.logger.Debug("Speech started", zap.Int("offset", event.Offset))
		}

		next, appendWindow, closeUtterance := Transition(s.state, event.Kind)
		if appendWindow {
			s.accumulated = append(s.accumulated, window)
		}
		s.state = next

		if closeUtterance {
			return s.flush(event.Offset)
		}
	}
}

func (s *Segmenter) flush(offset int) (*entities.Utterance, bool) {
	if len(s.accumulated) == 0 {
		s.logger.Debug("Speech end reported without accumulated audio", zap.Int("offset", offset))
		s.metrics.RecordAnomaly("end_without_speech")
		return nil, false
	}

	pad := entities.MillisToSamples(s.paddingMs)
	samples := make([]float32, pad+len(s.accumulated)*entities.WindowSize+pad)
	pos := pad
	for _, w := range s.accumulated {
		pos += copy(samples[pos:], w)
	}
	s.accumulated = nil

	s.seq++
	utt := &entities.Utterance{
		Seq:        s.seq,
		Samples:    samples,
		DetectedAt: time.Now(),
	}

	s.logger.Debug("Speech ended",
		zap.Uint64("seq", utt.Seq),
		zap.Int("samples", len(samples)),
		zap.Int("paddingSamples", pad),
		zap.Duration("duration", utt.Duration()),
	)
	s.metrics.RecordUtterance(utt.Duration().Seconds())
	return utt, true
}

// SetSilenceDuration changes the amount of trailing silence that ends an
// utterance. Values outside [MinSilenceMs, MaxSilenceMs] are rejected with
// ErrSilenceOutOfRange and the previous value stays in effect.
func (s *Segmenter) SetSilenceDuration(ms int) error {
	if ms < MinSilenceMs || ms > MaxSilenceMs {
		s.logger.Warn("Ignored invalid silence duration",
			zap.Int("silenceMs", ms),
			zap.Int("currentMs", s.silenceMs),
		)
		s.metrics.RecordSilenceChange(false)
		return fmt.Errorf("%w: %d ms not in [%d, %d]", ErrSilenceOutOfRange, ms, MinSilenceMs, MaxSilenceMs)
	}

	s.silenceMs = ms
	s.classifier.SetSilenceSamples(entities.MillisToSamples(ms))
	s.metrics.RecordSilenceChange(true)
	s.logger.Info("Silence duration updated", zap.Int("silenceMs", ms))
	return nil
}

// Reset returns the Segmenter and its classifier to the state of a fresh
// connection. Configured silence and padding are kept.
func (s *Segmenter) Reset() {
	s.classifier.ResetState()
	s.acc.Reset()
	s.accumulated = nil
	s.state = Idle
}

// SilenceDuration returns the silence duration in milliseconds
func (s *Segmenter) SilenceDuration() int { return s.silenceMs }

// Padding returns the padding in milliseconds
func (s *Segmenter) Padding() int { return s.paddingMs }

// Recording reports whether an utterance is in progress
func (s *Segmenter) Recording() bool { return s.state == Recording }

// Pending returns the number of buffered bytes not yet classified
func (s *Segmenter) Pending() int { return s.acc.Pending() }
