package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/satriahrh/jurubahasa/domain/entities"
)

var (
	// ErrTranslationFailed wraps every error returned by a Translator.
	ErrTranslationFailed = errors.New("translation failed")

	// ErrInvokerClosed is returned by Invoke after Close.
	ErrInvokerClosed = errors.New("invoker closed")
)

// Translator produces the outbound payload for one utterance
type Translator interface {
	TranslateUtterance(ctx context.Context, sessionID string, utt *entities.Utterance, targetLanguage string) ([]byte, error)
}

// InvokerConfig holds the settings shared by every connection's invoker
type InvokerConfig struct {
	// Limiter bounds concurrent translations across connections. May be nil.
	Limiter *semaphore.Weighted
	// Timeout bounds a single translation. Zero disables the bound.
	Timeout time.Duration
}

type invocation struct {
	ctx            context.Context
	utt            *entities.Utterance
	targetLanguage string
	result         chan invocationResult
}

type invocationResult struct {
	payload []byte
	err     error
}

// Invoker runs translations of one connection on a dedicated worker
// goroutine, so inference never runs on the goroutine reading the socket.
type Invoker struct {
	translator Translator
	config     InvokerConfig
	sessionID  string
	logger     *zap.Logger

	jobs      chan invocation
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewInvoker starts the worker goroutine of a connection
func NewInvoker(translator Translator, sessionID string, config InvokerConfig, logger *zap.Logger) *Invoker {
	i := &Invoker{
		translator: translator,
		config:     config,
		sessionID:  sessionID,
		logger:     logger,
		jobs:       make(chan invocation),
		done:       make(chan struct{}),
	}

	i.wg.Add(1)
	go i.worker()
	return i
}

// Invoke translates utt and waits for the result. There is no retry.
func (i *Invoker) Invoke(ctx context.Context, utt *entities.Utterance, targetLanguage string) ([]byte, error) {
	job := invocation{
		ctx:            ctx,
		utt:            utt,
		targetLanguage: targetLanguage,
		result:         make(chan invocationResult, 1),
	}

	select {
	case i.jobs <- job:
	case <-i.done:
		return nil, ErrInvokerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-job.result:
		return res.payload, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the worker after the current translation, if any, finishes.
func (i *Invoker) Close() {
	i.closeOnce.Do(func() {
		close(i.done)
	})
	i.wg.Wait()
}

func (i *Invoker) worker() {
	defer i.wg.Done()

	for {
		select {
		case job := <-i.jobs:
			payload, err := i.run(job)
			job.result <- invocationResult{payload: payload, err: err}
		case <-i.done:
			return
		}
	}
}

func (i *Invoker) run(job invocation) ([]byte, error) {
	ctx := job.ctx

	if i.config.Limiter != nil {
		if err := i.config.Limiter.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer i.config.Limiter.Release(1)
	}

	if i.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.config.Timeout)
		defer cancel()
	}

	i.logger.Debug("Translating utterance",
		zap.String("sessionID", i.sessionID),
		zap.Uint64("seq", job.utt.Seq),
		zap.String("targetLanguage", job.targetLanguage),
	)

	payload, err := i.translator.TranslateUtterance(ctx, i.sessionID, job.utt, job.targetLanguage)
	if err != nil {
		return nil, fmt.Errorf("%w: utterance %d: %w", ErrTranslationFailed, job.utt.Seq, err)
	}
	return payload, nil
}
