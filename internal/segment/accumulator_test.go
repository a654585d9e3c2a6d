package segment

import (
	"testing"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/internal/audio"
)

// streamBytes returns n windows where every sample of window i equals i+1,
// followed by extra bytes of a partial window.
func streamBytes(n, extra int) []byte {
	samples := make([]float32, n*entities.WindowSize)
	for i := range samples {
		samples[i] = float32(i/entities.WindowSize + 1)
	}
	data := audio.EncodeFloat32LE(samples)
	return append(data, make([]byte, extra)...)
}

func split(data []byte, size int) [][]byte {
	var chunks [][]byte
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

func TestAccumulatorChunkSizeIndependence(t *testing.T) {
	data := streamBytes(6, 100)

	for _, size := range []int{1, 3, 7, 1000, entities.WindowBytes, entities.WindowBytes + 1, len(data)} {
		var acc Accumulator
		var windows []entities.AudioWindow
		for _, chunk := range split(data, size) {
			windows = append(windows, acc.Push(chunk)...)
			if acc.Pending() >= entities.WindowBytes {
				t.Fatalf("chunk size %d: pending %d after push", size, acc.Pending())
			}
		}

		if len(windows) != 6 {
			t.Fatalf("chunk size %d: expected 6 windows, got %d", size, len(windows))
		}
		for i, w := range windows {
			if len(w) != entities.WindowSize {
				t.Fatalf("chunk size %d: window %d has %d samples", size, i, len(w))
			}
			if w[0] != float32(i+1) || w[entities.WindowSize-1] != float32(i+1) {
				t.Errorf("chunk size %d: window %d out of order", size, i)
			}
		}
		if acc.Pending() != 100 {
			t.Errorf("chunk size %d: expected 100 pending bytes, got %d", size, acc.Pending())
		}
	}
}

func TestAccumulatorEmptyChunk(t *testing.T) {
	var acc Accumulator
	if windows := acc.Push(nil); len(windows) != 0 {
		t.Errorf("Expected no windows, got %d", len(windows))
	}
	if windows := acc.Push([]byte{}); len(windows) != 0 {
		t.Errorf("Expected no windows, got %d", len(windows))
	}
}

func TestAccumulatorPartialSample(t *testing.T) {
	data := streamBytes(1, 0)
	var acc Accumulator

	// 2047 bytes leave a partial trailing sample pending.
	if windows := acc.Push(data[:entities.WindowBytes-1]); len(windows) != 0 {
		t.Fatalf("Expected no windows, got %d", len(windows))
	}
	if acc.Pending() != entities.WindowBytes-1 {
		t.Fatalf("Expected %d pending bytes, got %d", entities.WindowBytes-1, acc.Pending())
	}

	windows := acc.Push(data[entities.WindowBytes-1:])
	if len(windows) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(windows))
	}
	if windows[0][entities.WindowSize-1] != 1 {
		t.Errorf("Expected last sample 1, got %f", windows[0][entities.WindowSize-1])
	}
}

func TestAccumulatorNextLeavesRemainder(t *testing.T) {
	var acc Accumulator
	acc.Append(streamBytes(3, 0))

	w, ok := acc.Next()
	if !ok || w[0] != 1 {
		t.Fatal("Expected first window")
	}
	if acc.Pending() != 2*entities.WindowBytes {
		t.Errorf("Expected 2 windows pending, got %d bytes", acc.Pending())
	}

	acc.Append(streamBytes(1, 0))
	rest := acc.Drain()
	if len(rest) != 3 {
		t.Fatalf("Expected 3 windows, got %d", len(rest))
	}
	if rest[0][0] != 2 || rest[1][0] != 3 || rest[2][0] != 1 {
		t.Errorf("Unexpected window order: %v %v %v", rest[0][0], rest[1][0], rest[2][0])
	}
}

func TestAccumulatorReset(t *testing.T) {
	var acc Accumulator
	acc.Append(streamBytes(1, 10))
	acc.Reset()
	if acc.Pending() != 0 {
		t.Errorf("Expected no pending bytes, got %d", acc.Pending())
	}
	if _, ok := acc.Next(); ok {
		t.Error("Expected no window after reset")
	}
}
