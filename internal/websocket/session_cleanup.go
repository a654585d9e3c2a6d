package websocket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/jurubahasa/domain/repositories"
)

const (
	defaultCleanupInterval = 30 * time.Minute
	defaultInitialDelay    = time.Minute
)

// SessionCleanupService periodically expires sessions that saw no activity
// within their TTL
type SessionCleanupService struct {
	sessionRepo  repositories.SessionRepository
	interval     time.Duration
	initialDelay time.Duration
	logger       *zap.Logger
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewSessionCleanupService creates a new session cleanup service. Zero
// durations use the defaults of 30 minutes and 1 minute.
func NewSessionCleanupService(sessionRepo repositories.SessionRepository, interval, initialDelay time.Duration, logger *zap.Logger) *SessionCleanupService {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	if initialDelay <= 0 {
		initialDelay = defaultInitialDelay
	}
	return &SessionCleanupService{
		sessionRepo:  sessionRepo,
		interval:     interval,
		initialDelay: initialDelay,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *SessionCleanupService) Start() {
	s.wg.Add(1)
	go s.cleanupLoop()
	s.logger.Info("Session cleanup service started", zap.Duration("interval", s.interval))
}

// Stop gracefully stops the cleanup service
func (s *SessionCleanupService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	s.logger.Info("Session cleanup service stopped")
}

// cleanupLoop runs the cleanup process periodically
func (s *SessionCleanupService) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	initialTimer := time.NewTimer(s.initialDelay)
	defer initialTimer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-initialTimer.C:
			s.RunCleanup()
		case <-ticker.C:
			s.RunCleanup()
		}
	}
}

// RunCleanup expires stale sessions once and returns how many were expired
func (s *SessionCleanupService) RunCleanup() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	count, err := s.sessionRepo.ExpireSessions(ctx)
	if err != nil {
		s.logger.Error("Failed to expire sessions", zap.Error(err))
		return 0
	}

	s.logger.Info("Session cleanup completed", zap.Int64("expired", count))
	return count
}
