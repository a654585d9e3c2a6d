package audio

import "math"

const (
	// QuietPeak is the input peak under which audio is considered nearly silent.
	QuietPeak = 0.01

	// NormalizePeak is the peak output audio is scaled to.
	NormalizePeak = 0.9

	// normalizeFloor is the peak under which output is left untouched.
	normalizeFloor = 0.0001
)

// Peak returns the maximum absolute sample value
func Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// RMS returns the root mean square of the samples, 0 for empty input
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// IsQuiet reports whether the peak of samples is below QuietPeak
func IsQuiet(samples []float32) bool {
	return Peak(samples) < QuietPeak
}

// Normalize returns a copy of samples scaled so that the peak equals
// NormalizePeak. NaN becomes silence and infinities become full scale
// before scaling. Near-silent input is copied unchanged.
func Normalize(samples []float32) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = finite(s)
	}

	peak := Peak(out)
	if peak <= normalizeFloor {
		return out
	}

	gain := NormalizePeak / peak
	for i := range out {
		out[i] *= gain
	}
	return out
}

func finite(s float32) float32 {
	switch {
	case math.IsNaN(float64(s)):
		return 0
	case math.IsInf(float64(s), 1):
		return 1
	case math.IsInf(float64(s), -1):
		return -1
	}
	return s
}
