package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"collab-lists/pkg/config"
	"collab-lists/pkg/db"
	"collab-lists/pkg/handlers"
	"collab-lists/pkg/realtime"
	"collab-lists/pkg/room"
	"collab-lists/pkg/session"
	"collab-lists/pkg/storage"
)

const (
	sessionIdleTimeout   = 24 * time.Hour
	sessionSweepInterval = 10 * time.Minute
)

// Server represents the application server
type Server struct {
	handler    http.Handler
	httpServer *http.Server
	store      *db.PostgresStore
	hub        *realtime.Hub
	sessions   *session.Manager
	config     *config.Config
	logger     *zap.Logger
}

// NewServer connects every backend and builds the HTTP handler
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := initLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	// Initialize PostgreSQL storage
	store, err := db.NewPostgresStore(ctx, cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logos, err := storage.NewLogoStore(ctx, storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
		PublicURL: cfg.GetStoragePublicURL(),
	}, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to connect to object storage: %w", err)
	}

	hub, err := realtime.NewListenerHub(cfg.GetDatabaseConnectionString(), db.ChangeChannel, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to listen for changes: %w", err)
	}

	roomManager := room.NewRoomManager(hub, logger)
	sessions := session.NewManager(cfg.Server.SecureCookies)

	// Initialize handlers
	h := handlers.NewHandlers(store, logos, roomManager, sessions, logger, cfg.Server.AllowedOrigin)

	r := h.Router()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return &Server{
		handler:  corsMiddleware(cfg.Server.AllowedOrigin, r),
		store:    store,
		hub:      hub,
		sessions: sessions,
		config:   cfg,
		logger:   logger,
	}, nil
}

// Start runs the change listener and serves HTTP until ctx is cancelled
// or the listener fails
func (s *Server) Start(ctx context.Context, addr string) error {
	if addr == "" {
		addr = s.config.GetServerAddr()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := s.hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("change listener stopped", zap.Error(err))
		}
	}()
	go s.sweepSessions(ctx)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting collaborative lists server", zap.String("addr", addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(sessionIdleTimeout); n > 0 {
				s.logger.Debug("swept idle sessions", zap.Int("removed", n))
			}
		}
	}
}

// Close closes the change listener and database connections
func (s *Server) Close() error {
	defer s.logger.Sync() //nolint:errcheck
	return errors.Join(s.hub.Close(), s.store.Close())
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapConfig zap.Config

	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	zapConfig.InitialFields = map[string]interface{}{
		"service": "collab-lists",
	}

	return zapConfig.Build()
}

// corsMiddleware handles CORS headers and responds to preflight requests
// at the outer layer so they don't get rejected by method-restricted routes.
func corsMiddleware(allowedOrigin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowedOrigin != "" && allowedOrigin != "*":
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		case origin != "":
			// Reflect the origin so the session cookie can be sent
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		default:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")

		// If the browser asked for specific headers, echo them back; otherwise allow common headers
		if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
			w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
		} else {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+handlers.UserHeader)
		}

		w.Header().Set("Access-Control-Max-Age", "600")
		w.Header().Add("Vary", "Origin")
		w.Header().Add("Vary", "Access-Control-Request-Headers")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
