// Package mock provides a scripted test double for the voice activity
// classifier interfaces.
//
// Classifier answers its n-th Call with Script[n], and BoundaryNone once the
// script is exhausted:
//
//	c := &mock.Classifier{Script: mock.Events(
//	    repositories.BoundaryStart,
//	    repositories.BoundaryNone,
//	    repositories.BoundaryEnd,
//	)}
package mock

import (
	"sync"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/domain/repositories"
)

// Events builds a script out of boundary kinds, with offsets set to the
// window position of each event.
func Events(kinds ...repositories.BoundaryKind) []repositories.BoundaryEvent {
	script := make([]repositories.BoundaryEvent, len(kinds))
	for i, k := range kinds {
		script[i] = repositories.BoundaryEvent{Kind: k, Offset: i * entities.WindowSize}
	}
	return script
}

// Repeat returns kind n times, for use inside Events.
func Repeat(kind repositories.BoundaryKind, n int) []repositories.BoundaryKind {
	kinds := make([]repositories.BoundaryKind, n)
	for i := range kinds {
		kinds[i] = kind
	}
	return kinds
}

// Classifier is a scripted implementation of
// repositories.VoiceActivityClassifier.
type Classifier struct {
	mu sync.Mutex

	// Script holds the events returned by successive Call invocations.
	Script []repositories.BoundaryEvent

	// CallErr, if non-nil, is returned by every Call.
	CallErr error

	// --- Call records ---

	// Windows holds a copy of every window passed to Call.
	Windows []entities.AudioWindow

	// ResetCallCount is the number of times ResetState was called.
	ResetCallCount int

	// SilenceSamples records every value passed to SetSilenceSamples.
	SilenceSamples []int

	pos int
}

// Call records the window and returns the next scripted event.
func (c *Classifier) Call(window entities.AudioWindow) (repositories.BoundaryEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := make(entities.AudioWindow, len(window))
	copy(cp, window)
	c.Windows = append(c.Windows, cp)

	if c.CallErr != nil {
		return repositories.BoundaryEvent{}, c.CallErr
	}

	if c.pos >= len(c.Script) {
		return repositories.BoundaryEvent{Kind: repositories.BoundaryNone}, nil
	}
	event := c.Script[c.pos]
	c.pos++
	return event, nil
}

// ResetState records the call. The script position is not rewound.
func (c *Classifier) ResetState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ResetCallCount++
}

// SetSilenceSamples records n.
func (c *Classifier) SetSilenceSamples(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SilenceSamples = append(c.SilenceSamples, n)
}

// CallCount returns the number of Call invocations so far.
func (c *Classifier) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Windows)
}

// Silences returns a copy of the values passed to SetSilenceSamples.
func (c *Classifier) Silences() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.SilenceSamples...)
}

// Resets returns the number of ResetState calls so far.
func (c *Classifier) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ResetCallCount
}

// Ensure Classifier implements repositories.VoiceActivityClassifier at compile time.
var _ repositories.VoiceActivityClassifier = (*Classifier)(nil)

// Model is a mock implementation of repositories.VoiceActivityModel.
type Model struct {
	mu sync.Mutex

	// NewClassifier builds the classifier handed out by NewSession. If nil,
	// an empty Classifier is returned.
	NewClassifier func() *Classifier

	// Sessions records every classifier handed out, in order.
	Sessions []*Classifier
}

// NewSession returns a new scripted classifier and records it.
func (m *Model) NewSession() repositories.VoiceActivityClassifier {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := &Classifier{}
	if m.NewClassifier != nil {
		c = m.NewClassifier()
	}
	m.Sessions = append(m.Sessions, c)
	return c
}

// Classifiers returns the classifiers handed out so far.
func (m *Model) Classifiers() []*Classifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Classifier(nil), m.Sessions...)
}

// Name returns "mock".
func (m *Model) Name() string { return "mock" }

// Ensure Model implements repositories.VoiceActivityModel at compile time.
var _ repositories.VoiceActivityModel = (*Model)(nil)
