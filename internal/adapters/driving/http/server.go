package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daybook-app/daybook-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	authService    driving.AuthService
	userService    driving.UserService
	connectService driving.ConnectService
	syncService    driving.SyncService
	itemService    driving.ItemService

	// Infrastructure
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// AllowedOrigins feeds the CORS middleware; empty means "*".
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	userService driving.UserService,
	connectService driving.ConnectService,
	syncService driving.SyncService,
	itemService driving.ItemService,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		authService:    authService,
		userService:    userService,
		connectService: connectService,
		syncService:    syncService,
		itemService:    itemService,
		db:             db,
		redisClient:    redisClient,
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	handler := NewRecoveryMiddleware().Handler(
		NewLoggingMiddleware().Handler(
			NewCORSMiddleware(origins).Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Create middleware
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)

	// Setup endpoint (public, one-time use)
	s.router.HandleFunc("POST /api/v1/setup", s.handleSetup)

	// Auth endpoints (authenticated)
	s.router.Handle("POST /api/v1/auth/logout",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleLogout)))

	// User endpoints
	s.router.Handle("GET /api/v1/me",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetMe)))
	s.router.Handle("POST /api/v1/me/password",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleChangePassword)))

	// Admin-only user management
	s.router.Handle("GET /api/v1/users",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleListUsers))))
	s.router.Handle("POST /api/v1/users",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleCreateUser))))
	s.router.Handle("PUT /api/v1/users/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleUpdateUser))))
	s.router.Handle("DELETE /api/v1/users/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleDeleteUser))))
	s.router.Handle("PUT /api/v1/users/{id}/password",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleSetPassword))))

	// Item endpoints (authenticated, scoped to the calling user)
	s.router.Handle("GET /api/v1/items",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListItems)))
	s.router.Handle("POST /api/v1/items",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCreateItem)))
	s.router.Handle("GET /api/v1/items/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetItem)))
	s.router.Handle("PATCH /api/v1/items/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleUpdateItem)))
	s.router.Handle("DELETE /api/v1/items/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteItem)))

	// Calendar connection endpoints (authenticated)
	s.router.Handle("POST /api/v1/calendar/connect",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleConnectStart)))
	s.router.Handle("POST /api/v1/calendar/connect/code",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleConnectCode)))
	s.router.Handle("GET /api/v1/calendar/connect/{state}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleConnectFlowStatus)))
	s.router.Handle("GET /api/v1/calendar/connect/{state}/wait",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleConnectWait)))
	s.router.Handle("GET /api/v1/calendar/status",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleConnectionStatus)))
	s.router.Handle("GET /api/v1/calendar/calendars",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListCalendars)))
	s.router.Handle("PUT /api/v1/calendar/calendars",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleUpdateCalendars)))
	s.router.Handle("POST /api/v1/calendar/disconnect",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDisconnect)))

	// Callback is public - receives redirects from the OAuth provider
	s.router.HandleFunc("GET /api/v1/calendar/callback", s.handleConnectCallback)

	// Sync and event endpoints (authenticated)
	s.router.Handle("POST /api/v1/calendar/sync",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleSync)))
	s.router.Handle("GET /api/v1/calendar/events",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListEvents)))
	s.router.Handle("DELETE /api/v1/calendar/events",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleClearEvents)))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
