package entities

import "time"

const (
	// SampleRate is the rate of every PCM stream the server accepts and emits.
	SampleRate = 16000

	// WindowSize is the number of samples the voice activity classifier is
	// invoked on (32ms at 16kHz).
	WindowSize = 512

	// BytesPerSample is the width of one little-endian float32 sample.
	BytesPerSample = 4

	// WindowBytes is the wire size of a single window.
	WindowBytes = WindowSize * BytesPerSample
)

// AudioWindow is a fixed-length block of WindowSize samples. Producers never
// modify a window after handing it out.
type AudioWindow []float32

// Utterance is one complete spoken segment, already padded.
type Utterance struct {
	// Seq is the 1-based position of the utterance within its connection.
	Seq        uint64
	Samples    []float32
	DetectedAt time.Time
}

// Duration returns the playback length of the utterance.
func (u *Utterance) Duration() time.Duration {
	return SamplesToDuration(len(u.Samples))
}

// SamplesToDuration converts a sample count at SampleRate into a duration.
func SamplesToDuration(samples int) time.Duration {
	return time.Duration(samples) * time.Second / SampleRate
}

// MillisToSamples converts milliseconds into a sample count at SampleRate,
// truncating toward zero.
func MillisToSamples(ms int) int {
	return ms * SampleRate / 1000
}
