package websocket

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/domain/repositories"
	"github.com/satriahrh/jurubahasa/internal/metrics"
	"github.com/satriahrh/jurubahasa/internal/pipeline"
	"github.com/satriahrh/jurubahasa/internal/segment"
)

// HubConfig holds what every connection's pipeline is built from
type HubConfig struct {
	Model      repositories.VoiceActivityModel
	Translator pipeline.Translator
	// Sessions stores the connection records. May be nil.
	Sessions repositories.SessionRepository
	Metrics  *metrics.Metrics
	Invoker  pipeline.InvokerConfig

	SilenceMs             int
	PaddingMs             int
	SourceLanguage        string
	DefaultTargetLanguage string
	Engine                string

	// AllowedOrigins restricts websocket origins. Empty allows all.
	AllowedOrigins []string
}

// Hub maintains the set of active clients and builds their pipelines.
type Hub struct {
	// Registered clients, keyed by session ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	// Closed when Run returns.
	done chan struct{}
	// Cancelled when Run returns; parent of every connection.
	ctx     context.Context
	closing bool

	wg       sync.WaitGroup
	config   HubConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(config HubConfig, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		ctx:        context.Background(),
		config:     config,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:     h.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return h
}

// Run starts the hub's main loop. When ctx is done every client is closed
// and Run returns after their pipelines have finished.
func (h *Hub) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	defer func() {
		cancel()
		h.mu.Lock()
		h.closing = true
		h.mu.Unlock()
		close(h.done)
		h.closeAll()
		h.wg.Wait()
	}()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.config.Metrics.ConnectionOpened()
			h.logger.Info("Client registered",
				zap.String("sessionID", client.sessionID),
				zap.String("clientID", client.clientID))

		case client := <-h.unregister:
			h.removeClient(client)

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.sessionID]
	if ok {
		delete(h.clients, client.sessionID)
	}
	h.mu.Unlock()

	if ok {
		h.config.Metrics.ConnectionClosed()
		h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.Close()
	}
}

// ActiveClients returns the number of connected clients
func (h *Hub) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Engine returns the name of the translation engine connections use
func (h *Hub) Engine() string {
	return h.config.Engine
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// HandleTranslate upgrades the request and serves a translation session.
// The target language comes from the tgt_lang query parameter.
func (h *Hub) HandleTranslate(c echo.Context, clientID string) error {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server is shutting down")
	}
	h.wg.Add(1)
	ctx := h.ctx
	h.mu.Unlock()

	targetLanguage := strings.ToLower(strings.TrimSpace(c.QueryParam("tgt_lang")))
	if targetLanguage == "" {
		targetLanguage = h.config.DefaultTargetLanguage
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.wg.Done()
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	session := entities.NewTranslationSession(clientID, h.config.SourceLanguage, targetLanguage, h.config.Engine)
	h.createSession(session)

	client := newClient(h, conn, session.ID, clientID, targetLanguage, h.logger)

	segmenter := segment.New(h.config.Model.NewSession(),
		segment.WithLogger(client.logger),
		segment.WithMetrics(h.config.Metrics),
		segment.WithPadding(h.config.PaddingMs),
		segment.WithSilenceDuration(h.config.SilenceMs),
	)
	client.control = segmenter
	segmenter.Reset()

	select {
	case h.register <- client:
	case <-h.done:
		h.wg.Done()
		conn.Close()
		h.closeSession(session.ID)
		return nil
	}

	orchestrator := pipeline.NewOrchestrator(
		session.ID,
		targetLanguage,
		segmenter,
		pipeline.NewQueue(h.config.Metrics),
		pipeline.NewInvoker(h.config.Translator, session.ID, h.config.Invoker, client.logger),
		h.logger,
		pipeline.OnQueued(func(utt *entities.Utterance) {
			client.sendJSON(CreateUtteranceDetectedMessage(utt.Seq, utt.Duration()))
		}),
		pipeline.OnTranslated(func(utt *entities.Utterance, payload []byte, latency time.Duration) {
			client.sendJSON(CreateUtteranceTranslatedMessage(utt.Seq, latency, len(payload)))
		}),
		pipeline.OnFailed(func(utt *entities.Utterance, err error) {
			client.sendJSON(CreateTranslationFailedMessage(utt.Seq))
		}),
	)

	client.sendJSON(CreateSessionStartedMessage(session.ID, targetLanguage, entities.SampleRate, segmenter.SilenceDuration()))

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go h.serve(ctx, client, orchestrator)
	return nil
}

func (h *Hub) serve(ctx context.Context, client *Client, orchestrator *pipeline.Orchestrator) {
	defer h.wg.Done()

	if err := orchestrator.Run(ctx, client); err != nil {
		client.logger.Warn("Translation session ended with error", zap.Error(err))
	}
	client.Close()

	select {
	case h.unregister <- client:
	case <-h.done:
		h.removeClient(client)
	}

	h.closeSession(client.sessionID)
}

func (h *Hub) createSession(session *entities.TranslationSession) {
	if h.config.Sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.config.Sessions.Create(ctx, session); err != nil {
		h.logger.Error("Failed to create session record",
			zap.String("sessionID", session.ID),
			zap.Error(err))
	}
}

func (h *Hub) closeSession(sessionID string) {
	if h.config.Sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.config.Sessions.Close(ctx, sessionID); err != nil {
		h.logger.Warn("Failed to close session record",
			zap.String("sessionID", sessionID),
			zap.Error(err))
	}
}
