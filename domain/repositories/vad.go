package repositories

import "github.com/satriahrh/jurubahasa/domain/entities"

// BoundaryKind is the kind of speech boundary reported for a window
type BoundaryKind int

const (
	// BoundaryNone means the window neither starts nor ends speech.
	BoundaryNone BoundaryKind = iota
	BoundaryStart
	BoundaryEnd
)

func (k BoundaryKind) String() string {
	switch k {
	case BoundaryStart:
		return "start"
	case BoundaryEnd:
		return "end"
	default:
		return "none"
	}
}

// BoundaryEvent is the outcome of classifying one window. Offset is the
// position, in samples since the last reset, the classifier attributes the
// boundary to.
type BoundaryEvent struct {
	Kind   BoundaryKind
	Offset int
}

// VoiceActivityClassifier is the per-connection view on a voice activity
// model. It carries state across calls and is not safe for concurrent use.
type VoiceActivityClassifier interface {
	// Call classifies one window of exactly entities.WindowSize samples.
	Call(window entities.AudioWindow) (BoundaryEvent, error)
	// ResetState clears every piece of state accumulated across calls.
	ResetState()
	// SetSilenceSamples changes how many samples of silence close speech.
	SetSilenceSamples(n int)
}

// VoiceActivityModel is the shared, process-wide classifier model. Each
// connection opens its own session on it.
type VoiceActivityModel interface {
	NewSession() VoiceActivityClassifier
	Name() string
}
