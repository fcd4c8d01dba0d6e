package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"quickscribe/internal/config"
	"quickscribe/internal/dispatch"
	"quickscribe/internal/gateway"
	"quickscribe/internal/jobs"
	"quickscribe/internal/logging"
	"quickscribe/internal/rooms"
)

// Server exposes the relay's HTTP API and websocket live channel.
type Server struct {
	cfg        *config.Config
	store      *jobs.Store
	gateway    *gateway.Gateway
	dispatcher *dispatch.Dispatcher
	registry   *rooms.Registry
	logger     *slog.Logger
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

func New(cfg *config.Config, store *jobs.Store, gw *gateway.Gateway, dispatcher *dispatch.Dispatcher, registry *rooms.Registry, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		store:      store,
		gateway:    gw,
		dispatcher: dispatcher,
		registry:   registry,
		logger:     logging.NewComponentLogger(logger, "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from arbitrary origins; auth, where
			// configured, happens at the token layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Paths.APIBind,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()
	router.Use(s.recoverMiddleware)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	router.HandleFunc("/api/upload", s.handleUpload).Methods(http.MethodPost)
	router.HandleFunc("/api/upload/chunk", s.handleUploadChunk).Methods(http.MethodPost)
	router.HandleFunc("/api/presign", s.handlePresign).Methods(http.MethodPost)
	router.HandleFunc("/api/dispatch/{jobID}", s.handleDispatch).Methods(http.MethodPost)
	router.HandleFunc("/api/status/{jobID}", s.handleStatus).Methods(http.MethodGet)

	router.HandleFunc("/api/callback", s.callbackAuth(s.handleCallback)).Methods(http.MethodPost)

	router.HandleFunc("/api/jobs", s.apiAuth(s.handleJobs)).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", s.apiAuth(s.handleStats)).Methods(http.MethodGet)

	router.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	router.HandleFunc("/ws/{jobID}", s.handleWS).Methods(http.MethodGet)

	return router
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api listening", logging.String("bind", s.cfg.Paths.APIBind))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener and closes live connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.registry.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic",
					logging.Any("panic", rec),
					logging.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
