package segment

import "github.com/satriahrh/jurubahasa/domain/repositories"

// State is the recording state of a Segmenter
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

type step struct {
	next     State
	append   bool
	closeUtt bool
}

var transitions = map[State]map[repositories.BoundaryKind]step{
	Idle: {
		repositories.BoundaryNone:  {next: Idle},
		repositories.BoundaryStart: {next: Recording, append: true},
		repositories.BoundaryEnd:   {next: Idle, closeUtt: true},
	},
	Recording: {
		repositories.BoundaryNone:  {next: Recording, append: true},
		repositories.BoundaryStart: {next: Recording, append: true},
		repositories.BoundaryEnd:   {next: Idle, append: true, closeUtt: true},
	},
}

// Transition returns the state following state on event, whether the window
// carrying event belongs to the current utterance, and whether the
// utterance is complete after that window. Unknown events behave like
// BoundaryNone.
func Transition(state State, event repositories.BoundaryKind) (next State, appendWindow, closeUtterance bool) {
	st, ok := transitions[state][event]
	if !ok {
		st = transitions[state][repositories.BoundaryNone]
	}
	return st.next, st.append, st.closeUtt
}
