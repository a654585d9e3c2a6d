package vad

import (
	"fmt"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/domain/repositories"
)

// hysteresis is how far below Threshold the probability must fall before a
// window counts as silence.
const hysteresis = 0.15

type probabilityModel interface {
	Probability(window entities.AudioWindow) float64
}

// Session tracks speech boundaries for one connection. Start is reported on
// the first window at or above the threshold. End is reported once the
// probability has stayed below threshold minus hysteresis for at least the
// configured silence. Speech returning before that cancels the pending end.
type Session struct {
	model             probabilityModel
	threshold         float64
	minSilenceSamples int
	speechPadSamples  int

	triggered     bool
	tempEnd       int
	currentSample int
}

func newSession(model probabilityModel, config Config) *Session {
	return &Session{
		model:             model,
		threshold:         config.Threshold,
		minSilenceSamples: entities.MillisToSamples(config.MinSilenceMs),
		speechPadSamples:  entities.MillisToSamples(config.SpeechPadMs),
	}
}

// Call classifies one window
func (s *Session) Call(window entities.AudioWindow) (repositories.BoundaryEvent, error) {
	if len(window) != entities.WindowSize {
		return repositories.BoundaryEvent{}, fmt.Errorf("expected %d samples, got %d", entities.WindowSize, len(window))
	}

	s.currentSample += len(window)
	prob := s.model.Probability(window)

	if prob >= s.threshold && s.tempEnd != 0 {
		s.tempEnd = 0
	}

	if prob >= s.threshold && !s.triggered {
		s.triggered = true
		start := s.currentSample - s.speechPadSamples - len(window)
		if start < 0 {
			start = 0
		}
		return repositories.BoundaryEvent{Kind: repositories.BoundaryStart, Offset: start}, nil
	}

	if prob < s.threshold-hysteresis && s.triggered {
		if s.tempEnd == 0 {
			s.tempEnd = s.currentSample
		}
		if s.currentSample-s.tempEnd < s.minSilenceSamples {
			return repositories.BoundaryEvent{Kind: repositories.BoundaryNone}, nil
		}

		end := s.tempEnd + s.speechPadSamples - len(window)
		s.tempEnd = 0
		s.triggered = false
		return repositories.BoundaryEvent{Kind: repositories.BoundaryEnd, Offset: end}, nil
	}

	return repositories.BoundaryEvent{Kind: repositories.BoundaryNone}, nil
}

// ResetState forgets speech state and the stream position
func (s *Session) ResetState() {
	s.triggered = false
	s.tempEnd = 0
	s.currentSample = 0
}

// SetSilenceSamples changes the silence that ends speech, effective from the
// next window
func (s *Session) SetSilenceSamples(n int) {
	if n < 0 {
		n = 0
	}
	s.minSilenceSamples = n
}

var _ repositories.VoiceActivityClassifier = (*Session)(nil)
