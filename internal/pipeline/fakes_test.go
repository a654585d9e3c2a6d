package pipeline

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/satriahrh/jurubahasa/domain/entities"
)

// fakeTransport feeds chunks from a channel and records written payloads.
// Closing input simulates the client going away.
type fakeTransport struct {
	input chan []byte

	mu       sync.Mutex
	written  [][]byte
	writeErr error

	closeOnce  sync.Once
	closed     chan struct{}
	closeCalls int
}

func newFakeTransport(buffer int) *fakeTransport {
	return &fakeTransport{
		input:  make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) ReadChunk(ctx context.Context) ([]byte, error) {
	select {
	case chunk, ok := <-f.input:
		if !ok {
			return nil, ErrTransportClosed
		}
		return chunk, nil
	case <-f.closed:
		return nil, ErrTransportClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) WriteAudio(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	select {
	case <-f.closed:
		return ErrTransportClosed
	default:
	}
	f.written = append(f.written, payload)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) payloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.written))
	for i, p := range f.written {
		out[i] = string(p)
	}
	return out
}

// chunkSegmenter turns every non-empty chunk into one utterance.
type chunkSegmenter struct {
	seq uint64
}

func (s *chunkSegmenter) Process(chunk []byte) (*entities.Utterance, bool) {
	if len(chunk) == 0 {
		return nil, false
	}
	s.seq++
	return &entities.Utterance{Seq: s.seq, Samples: make([]float32, entities.WindowSize)}, true
}

// fakeTranslator answers with the utterance seq after delay and tracks
// concurrency.
type fakeTranslator struct {
	delay  time.Duration
	failOn map[uint64]bool

	mu        sync.Mutex
	active    int
	maxActive int
	order     []uint64
}

func (f *fakeTranslator) TranslateUtterance(ctx context.Context, sessionID string, utt *entities.Utterance, targetLanguage string) ([]byte, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.order = append(f.order, utt.Seq)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.failOn[utt.Seq] {
		return nil, errors.New("engine exploded")
	}
	return []byte(strconv.FormatUint(utt.Seq, 10)), nil
}

func (f *fakeTranslator) peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}
