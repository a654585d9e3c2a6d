package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/jurubahasa/domain/entities"
)

// ErrTransportClosed is returned by a Transport once the connection is gone
var ErrTransportClosed = errors.New("transport closed")

// Transport is the duplex connection of one client
type Transport interface {
	// ReadChunk blocks until the next chunk of raw audio bytes arrives.
	ReadChunk(ctx context.Context) ([]byte, error)
	// WriteAudio sends one translated payload and returns once it is written.
	WriteAudio(ctx context.Context, payload []byte) error
	// Close tears the connection down. It must unblock a pending ReadChunk
	// and be safe to call more than once.
	Close() error
}

// Segmenter turns raw audio bytes into utterances
type Segmenter interface {
	Process(chunk []byte) (*entities.Utterance, bool)
}

// Orchestrator runs the capture and consumer goroutines of one connection.
// Capture reads from the transport and segments; the consumer translates
// queued utterances one at a time and writes the results in order.
type Orchestrator struct {
	segmenter      Segmenter
	queue          *Queue
	invoker        *Invoker
	targetLanguage string
	sessionID      string
	logger         *zap.Logger

	onQueued     func(*entities.Utterance)
	onTranslated func(utt *entities.Utterance, payload []byte, latency time.Duration)
	onFailed     func(utt *entities.Utterance, err error)
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// OnQueued registers a callback run on the capture goroutine after an
// utterance is queued.
func OnQueued(fn func(*entities.Utterance)) OrchestratorOption {
	return func(o *Orchestrator) { o.onQueued = fn }
}

// OnTranslated registers a callback run on the consumer goroutine after a
// translated payload has been written.
func OnTranslated(fn func(utt *entities.Utterance, payload []byte, latency time.Duration)) OrchestratorOption {
	return func(o *Orchestrator) { o.onTranslated = fn }
}

// OnFailed registers a callback run on the consumer goroutine when an
// utterance is dropped because its translation failed.
func OnFailed(fn func(utt *entities.Utterance, err error)) OrchestratorOption {
	return func(o *Orchestrator) { o.onFailed = fn }
}

// NewOrchestrator wires the per-connection pipeline
func NewOrchestrator(
	sessionID string,
	targetLanguage string,
	segmenter Segmenter,
	queue *Queue,
	invoker *Invoker,
	logger *zap.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		segmenter:      segmenter,
		queue:          queue,
		invoker:        invoker,
		targetLanguage: targetLanguage,
		sessionID:      sessionID,
		logger:         logger.With(zap.String("sessionID", sessionID)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run blocks until the connection is finished. It returns nil when the
// client went away and an error when translated audio could not be
// delivered. Cancelling ctx closes the transport.
func (o *Orchestrator) Run(ctx context.Context, t Transport) error {
	defer o.invoker.Close()

	stop := context.AfterFunc(ctx, func() { _ = t.Close() })
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.capture(gctx, t) })
	g.Go(func() error {
		// Closing the transport is what stops capture once the consumer is done.
		defer t.Close()
		return o.consume(gctx, t)
	})

	err := g.Wait()
	if dropped := o.queue.Discard(); dropped > 0 {
		o.logger.Info("Dropped untranslated utterances", zap.Int("count", dropped))
	}
	return err
}

func (o *Orchestrator) capture(ctx context.Context, t Transport) error {
	defer o.queue.Close()

	for {
		chunk, err := t.ReadChunk(ctx)
		if err != nil {
			if errors.Is(err, ErrTransportClosed) || ctx.Err() != nil {
				o.logger.Debug("Capture stopped", zap.Error(err))
			} else {
				o.logger.Info("Capture stopped on read error", zap.Error(err))
			}
			return nil
		}

		utt, ok := o.segmenter.Process(chunk)
		if !ok {
			continue
		}

		if !o.queue.Put(Item{Utterance: utt}) {
			return nil
		}
		o.logger.Info("Utterance queued",
			zap.Uint64("seq", utt.Seq),
			zap.Duration("duration", utt.Duration()),
			zap.Int("queueLength", o.queue.Len()),
		)
		if o.onQueued != nil {
			o.onQueued(utt)
		}
	}
}

func (o *Orchestrator) consume(ctx context.Context, t Transport) error {
	for {
		item, err := o.queue.Get(ctx)
		if err != nil {
			return nil
		}
		if item.End {
			o.logger.Debug("End of stream reached")
			return nil
		}

		utt := item.Utterance
		started := time.Now()
		payload, err := o.invoker.Invoke(ctx, utt, o.targetLanguage)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			o.logger.Error("Dropping utterance after translation failure",
				zap.Uint64("seq", utt.Seq),
				zap.Error(err),
			)
			if o.onFailed != nil {
				o.onFailed(utt, err)
			}
			continue
		}

		if err := t.WriteAudio(ctx, payload); err != nil {
			return fmt.Errorf("write translated audio for utterance %d: %w", utt.Seq, err)
		}

		latency := time.Since(started)
		o.logger.Info("Translated audio sent",
			zap.Uint64("seq", utt.Seq),
			zap.Int("bytes", len(payload)),
			zap.Duration("latency", latency),
		)
		if o.onTranslated != nil {
			o.onTranslated(utt, payload, latency)
		}
	}
}
