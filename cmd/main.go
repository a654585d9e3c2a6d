package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/satriahrh/jurubahasa/adapters"
	"github.com/satriahrh/jurubahasa/adapters/llm"
	"github.com/satriahrh/jurubahasa/adapters/mongo"
	"github.com/satriahrh/jurubahasa/adapters/stt"
	"github.com/satriahrh/jurubahasa/adapters/translator"
	"github.com/satriahrh/jurubahasa/adapters/tts"
	"github.com/satriahrh/jurubahasa/adapters/vad"
	"github.com/satriahrh/jurubahasa/domain/repositories"
	"github.com/satriahrh/jurubahasa/internal/api"
	"github.com/satriahrh/jurubahasa/internal/auth"
	"github.com/satriahrh/jurubahasa/internal/config"
	"github.com/satriahrh/jurubahasa/internal/metrics"
	"github.com/satriahrh/jurubahasa/internal/pipeline"
	"github.com/satriahrh/jurubahasa/internal/websocket"
	"github.com/satriahrh/jurubahasa/usecase"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// The logger depends on the configuration.
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		zap.NewExample().Fatal("Failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	// Voice activity model, shared by every connection
	vadConfig := vad.DefaultConfig()
	vadConfig.Threshold = cfg.VAD.Threshold
	vadConfig.MinSilenceMs = cfg.VAD.MinSilenceDurationMs
	vadConfig.SpeechPadMs = cfg.VAD.SpeechPadMs
	vadModel, err := vad.NewEnergyModel(vadConfig, logger)
	if err != nil {
		logger.Fatal("Failed to load voice activity model", zap.Error(err))
	}

	// Translation engine
	engine, closeEngine, err := newEngine(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize translation engine",
			zap.String("engine", cfg.Translation.Engine),
			zap.Error(err))
	}
	defer closeEngine()

	// Session records
	sessions, storageCheck, closeSessions, err := newSessionRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session storage", zap.Error(err))
	}
	defer closeSessions()

	cleanup := websocket.NewSessionCleanupService(sessions, 0, 0, logger)
	cleanup.Start()
	defer cleanup.Stop()

	if cfg.App.DebugDir != "" {
		if err := os.MkdirAll(cfg.App.DebugDir, 0o755); err != nil {
			logger.Fatal("Failed to create debug directory", zap.Error(err))
		}
	}

	// Initialize usecase services
	translationService := usecase.NewTranslationService(engine, sessions, logger,
		usecase.WithDebugDir(cfg.App.DebugDir),
		usecase.WithServiceMetrics(m),
	)

	// Initialize WebSocket hub
	hub := websocket.NewHub(websocket.HubConfig{
		Model:      vadModel,
		Translator: translationService,
		Sessions:   sessions,
		Metrics:    m,
		Invoker: pipeline.InvokerConfig{
			Limiter: semaphore.NewWeighted(int64(cfg.Translation.MaxConcurrent)),
			Timeout: cfg.Translation.Timeout,
		},
		SilenceMs:             cfg.VAD.MinSilenceDurationMs,
		PaddingMs:             cfg.VAD.PaddingMs,
		SourceLanguage:        cfg.Translation.SourceLanguage,
		DefaultTargetLanguage: cfg.Translation.TargetLanguage,
		Engine:                engine.Name(),
		AllowedOrigins:        cfg.App.AllowedOrigins,
	}, logger)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	var authenticator *auth.Authenticator
	if cfg.AuthEnabled() {
		authenticator = auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	} else {
		logger.Warn("JWT_SECRET not set, websocket authentication disabled")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins(cfg.App.AllowedOrigins),
	}))

	// Initialize API routes
	api.InitRoutes(e, api.Dependencies{
		Hub:          hub,
		Auth:         authenticator,
		Sessions:     sessions,
		StorageCheck: storageCheck,
		Gatherer:     registry,
		StaticDir:    cfg.App.StaticDir,
		VADModel:     vadModel.Name(),
		Logger:       logger,
	})

	port := strconv.Itoa(cfg.App.Port)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", port),
		zap.String("engine", engine.Name()),
		zap.String("vadModel", vadModel.Name()),
		zap.String("targetLanguage", cfg.Translation.TargetLanguage))

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	select {
	case <-hubDone:
	case <-shutdownCtx.Done():
		logger.Warn("Timed out waiting for translation sessions to finish")
	}

	logger.Info("Server exited")
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// newEngine builds the configured translation engine and a function
// releasing its clients
func newEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SpeechTranslator, func(), error) {
	if cfg.Translation.Engine == config.EngineEcho {
		engine := translator.NewEcho(translator.EchoConfig{Latency: cfg.Translation.EchoLatency}, logger)
		return engine, func() {}, nil
	}

	recognizer, err := stt.NewGoogleSpeechToText(ctx, logger)
	if err != nil {
		return nil, nil, err
	}

	textTranslator, err := llm.NewGeminiTranslator(ctx, llm.GeminiConfig{
		APIKey: cfg.Translation.GeminiAPIKey,
		Model:  cfg.Translation.GeminiModel,
	}, logger)
	if err != nil {
		recognizer.Close()
		return nil, nil, err
	}

	synthesizer, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
		APIKey:  cfg.ElevenLabs.APIKey,
		VoiceID: cfg.ElevenLabs.VoiceID,
		ModelID: cfg.ElevenLabs.ModelID,
	}, logger)
	if err != nil {
		recognizer.Close()
		return nil, nil, err
	}

	engine, err := translator.NewCascade(recognizer, textTranslator, synthesizer, cfg.Translation.SourceLanguage, logger)
	if err != nil {
		recognizer.Close()
		return nil, nil, err
	}
	return engine, func() { recognizer.Close() }, nil
}

// newSessionRepository returns the MongoDB repository when a URI is
// configured and the in-memory one otherwise, with its health check
func newSessionRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SessionRepository, func(context.Context) error, func(), error) {
	if !cfg.UsesMongoDB() {
		logger.Info("MONGODB_URI not set, keeping session records in memory")
		return adapters.NewMemorySessionRepository(cfg.Storage.SessionTTL), nil, func() {}, nil
	}

	client, err := mongo.NewClient(ctx, mongo.ClientConfig{
		URI:      cfg.Storage.MongoDBURI,
		Database: cfg.Storage.Database,
	}, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	repo := mongo.NewSessionRepository(client.Database, cfg.Storage.SessionTTL, logger)
	return repo, client.Ping, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Close(closeCtx)
	}, nil
}
