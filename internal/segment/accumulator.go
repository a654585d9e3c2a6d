package segment

import (
	"encoding/binary"
	"math"

	"github.com/satriahrh/jurubahasa/domain/entities"
)

// Accumulator turns an arbitrarily framed little-endian float32 byte stream
// into fixed windows of entities.WindowSize samples. Bytes that do not fill
// a window, including a partial trailing sample, stay pending until more
// data arrives.
//
// The zero value is ready to use. An Accumulator is not safe for concurrent
// use.
type Accumulator struct {
	buf []byte
	off int
}

// Push appends chunk and returns every window that can be formed, in stream
// order. An empty chunk yields no windows.
func (a *Accumulator) Push(chunk []byte) []entities.AudioWindow {
	a.Append(chunk)
	return a.Drain()
}

// Append adds chunk to the pending bytes without extracting windows.
func (a *Accumulator) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	if a.off > 0 {
		n := copy(a.buf, a.buf[a.off:])
		a.buf = a.buf[:n]
		a.off = 0
	}
	a.buf = append(a.buf, chunk...)
}

// Next extracts the oldest complete window, if any.
func (a *Accumulator) Next() (entities.AudioWindow, bool) {
	if a.Pending() < entities.WindowBytes {
		return nil, false
	}

	raw := a.buf[a.off : a.off+entities.WindowBytes]
	window := make(entities.AudioWindow, entities.WindowSize)
	for i := range window {
		window[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*entities.BytesPerSample:]))
	}

	a.off += entities.WindowBytes
	if a.off == len(a.buf) {
		a.buf = a.buf[:0]
		a.off = 0
	}
	return window, true
}

// Drain extracts every complete window. Afterwards Pending is below
// entities.WindowBytes.
func (a *Accumulator) Drain() []entities.AudioWindow {
	var windows []entities.AudioWindow
	for {
		w, ok := a.Next()
		if !ok {
			return windows
		}
		windows = append(windows, w)
	}
}

// Pending returns the number of buffered bytes not yet handed out.
func (a *Accumulator) Pending() int {
	return len(a.buf) - a.off
}

// Reset drops every pending byte.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
	a.off = 0
}
