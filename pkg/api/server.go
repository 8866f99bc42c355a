// Package api exposes the orchestrator over a thin HTTP + WebSocket
// control surface: load or generate a problem instance, start/step/stop
// a run, and stream progress to connected clients.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/metasched/metasched/internal/config"
	"github.com/metasched/metasched/pkg/auth"
	"github.com/metasched/metasched/pkg/orchestrator"
)

// Server is the control API's HTTP server. It wraps a single
// Orchestrator; concurrent runs are out of scope (spec.md's orchestrator
// owns exactly one run at a time).
type Server struct {
	config    *config.Config
	orch      *orchestrator.Orchestrator
	jwtSvc    *auth.JWTService
	rbac      *auth.RBAC
	auth      *auth.AuthMiddleware
	logger    *slog.Logger
	server    *http.Server
	websocket *WebSocketHub
}

// NewServer wires a control API server around an existing orchestrator.
func NewServer(cfg *config.Config, orch *orchestrator.Orchestrator, logger *slog.Logger) (*Server, error) {
	jwtSvc, err := auth.NewJWTService(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	rbac := auth.NewRBAC()
	authMw := auth.NewAuthMiddleware(jwtSvc, rbac)

	return &Server{
		config:    cfg,
		orch:      orch,
		jwtSvc:    jwtSvc,
		rbac:      rbac,
		auth:      authMw,
		logger:    logger,
		websocket: NewWebSocketHub(logger, orch),
	}, nil
}

// Start runs the HTTP server until ctx is cancelled or ListenAndServe
// returns an error.
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRouter()

	s.server = &http.Server{
		Addr:         s.config.Server.Listen,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.websocket.Run(ctx)

	s.logger.Info("starting control API server",
		"address", s.config.Server.Listen,
		"tls_enabled", s.config.Server.TLSEnabled)

	if s.config.Server.TLSEnabled {
		return s.server.ListenAndServeTLS(s.config.Server.CertFile, s.config.Server.KeyFile)
	}
	return s.server.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping control API server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRouter() *gin.Engine {
	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(s.loggingMiddleware())
	router.Use(gin.Recovery())
	router.Use(s.corsMiddleware())
	router.Use(s.securityMiddleware())
	router.Use(s.requestSizeMiddleware())

	if s.config.Server.RateLimit.Enabled {
		router.Use(s.rateLimitMiddleware())
	}

	router.GET("/health", s.healthHandler)

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", s.loginHandler)
			authGroup.POST("/refresh", s.refreshTokenHandler)
		}

		instances := v1.Group("/instance")
		if s.config.Auth.Enabled {
			instances.Use(s.auth.RequirePermission(auth.PermissionInstanceManage))
		}
		{
			instances.POST("/", s.loadInstanceHandler)
			instances.POST("/generate", s.generateInstanceHandler)
		}

		runControl := v1.Group("/run")
		if s.config.Auth.Enabled {
			runControl.Use(s.auth.RequirePermission(auth.PermissionRunControl))
		}
		{
			runControl.POST("/start", s.startRunHandler)
			runControl.POST("/step", s.stepRunHandler)
			runControl.POST("/stop", s.stopRunHandler)
			runControl.POST("/reset", s.resetRunHandler)
		}

		runRead := v1.Group("/run")
		if s.config.Auth.Enabled {
			runRead.Use(s.auth.RequirePermission(auth.PermissionRunRead))
		}
		{
			runRead.GET("/status", s.runStatusHandler)
			runRead.GET("/solution", s.runSolutionHandler)
		}
	}

	router.GET("/ws/progress", s.progressWebsocketHandler)

	return router
}
