package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/satriahrh/jurubahasa/domain/repositories"
	"github.com/satriahrh/jurubahasa/internal/auth"
	"github.com/satriahrh/jurubahasa/internal/websocket"
)

// Dependencies holds everything the routes need
type Dependencies struct {
	Hub *websocket.Hub
	// Auth guards the websocket endpoint. Nil disables authentication.
	Auth     *auth.Authenticator
	Sessions repositories.SessionRepository
	// StorageCheck pings the session store for /health. May be nil.
	StorageCheck func(ctx context.Context) error
	Gatherer     prometheus.Gatherer
	// StaticDir holds index.html and the other browser client files.
	StaticDir string
	VADModel  string
	Logger    *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	logger := deps.Logger

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return health(c, deps.StorageCheck, logger)
	})

	e.GET("/status", func(c echo.Context) error {
		return c.JSON(http.StatusOK, StatusResponse{
			Status:            "online",
			Engine:            deps.Hub.Engine(),
			VADModel:          deps.VADModel,
			ActiveConnections: deps.Hub.ActiveClients(),
		})
	})

	if deps.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if deps.StaticDir != "" {
		e.Static("/static", deps.StaticDir)
		e.GET("/", func(c echo.Context) error {
			return c.File(filepath.Join(deps.StaticDir, "index.html"))
		})
	}

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.POST("/token", func(c echo.Context) error {
		return issueToken(c, deps.Auth, logger)
	})

	if deps.Sessions != nil {
		v1.GET("/sessions", func(c echo.Context) error {
			return listSessions(c, deps.Sessions, logger)
		})
		v1.GET("/sessions/:id", func(c echo.Context) error {
			return getSession(c, deps.Sessions, logger)
		})
	}

	// WebSocket endpoint, optionally behind JWT validation
	e.GET("/ws/translate", func(c echo.Context) error {
		return websocketWithAuth(deps.Hub, deps.Auth, c, logger)
	})
}

func health(c echo.Context, storageCheck func(context.Context) error, logger *zap.Logger) error {
	response := map[string]string{
		"status":  "ok",
		"service": "jurubahasa-server",
	}
	if storageCheck == nil {
		return c.JSON(http.StatusOK, response)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := storageCheck(ctx); err != nil {
		logger.Warn("Storage health check failed", zap.Error(err))
		response["status"] = "degraded"
		response["storage"] = "unavailable"
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	response["storage"] = "ok"
	return c.JSON(http.StatusOK, response)
}

func issueToken(c echo.Context, authenticator *auth.Authenticator, logger *zap.Logger) error {
	if authenticator == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "auth_disabled",
			Message: "Authentication is not enabled on this server",
		})
	}

	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind token request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.ClientID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "client_id is required",
		})
	}

	token, expiresAt, err := authenticator.GenerateClientToken(req.ClientID)
	if err != nil {
		logger.Error("Failed to generate client token",
			zap.String("clientID", req.ClientID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	logger.Info("Client token issued", zap.String("clientID", req.ClientID))

	return c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Truncate(time.Second),
		ClientID:  req.ClientID,
	})
}

func listSessions(c echo.Context, sessions repositories.SessionRepository, logger *zap.Logger) error {
	active, err := sessions.ListActive(c.Request().Context())
	if err != nil {
		logger.Error("Failed to list active sessions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "Failed to list sessions",
		})
	}

	response := SessionListResponse{Sessions: make([]SessionSummary, 0, len(active))}
	for _, session := range active {
		response.Sessions = append(response.Sessions, summarize(session))
	}
	response.Count = len(response.Sessions)
	return c.JSON(http.StatusOK, response)
}

func getSession(c echo.Context, sessions repositories.SessionRepository, logger *zap.Logger) error {
	sessionID := c.Param("id")
	session, err := sessions.GetByID(c.Request().Context(), sessionID)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "No session with ID " + sessionID,
		})
	}
	if err != nil {
		logger.Error("Failed to get session",
			zap.String("sessionID", sessionID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "Failed to get session",
		})
	}

	return c.JSON(http.StatusOK, session)
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func websocketWithAuth(hub *websocket.Hub, authenticator *auth.Authenticator, c echo.Context, logger *zap.Logger) error {
	if authenticator == nil {
		return hub.HandleTranslate(c, c.RealIP())
	}

	token := auth.ExtractToken(c.Request().Header.Get("Authorization"), c.QueryParam("token"))
	claims, err := authenticator.ValidateToken(token)
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required in Authorization header or token query parameter",
		})
	case errors.Is(err, auth.ErrInvalidRole):
		logger.Warn("WebSocket connection rejected: invalid role")
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only client tokens are allowed for WebSocket connections",
		})
	case err != nil:
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	logger.Info("WebSocket connection authenticated", zap.String("clientID", claims.ClientID))

	return hub.HandleTranslate(c, claims.ClientID)
}
