package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/julienschmidt/httprouter"

	"clipmark/internal/catalog"
	"clipmark/internal/config"
	"clipmark/internal/logging"
	"clipmark/internal/services"
	"clipmark/internal/store"
)

// Option customizes a Server.
type Option func(*Server)

// WithAssignerOptions forwards options to the block assigner.
func WithAssignerOptions(opts ...catalog.AssignerOption) Option {
	return func(s *Server) {
		s.assignerOpts = append(s.assignerOpts, opts...)
	}
}

// Server is the annotation backend.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store

	clips        *catalog.Catalog
	validation   *catalog.Catalog
	assigner     *catalog.Assigner
	assignerOpts []catalog.AssignerOption
	identity     *identity

	router  *httprouter.Router
	handler http.Handler

	lock     *flock.Flock
	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New scans the clip directories and builds the route table. The store is
// owned by the caller.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("server requires config and store")
	}
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "server"),
		store:    st,
		identity: newIdentity(cfg.Server.SecretKey, cfg.Server.CookieName, cfg.CookieMaxAge()),
		lock:     flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(s)
	}

	clips, err := catalog.Scan(cfg.Paths.VideosDir, cfg.Clips.FrameExtension, cfg.Clips.FramePadding)
	if err != nil {
		return nil, err
	}
	s.clips = clips
	s.assigner = catalog.NewAssigner(clips, st, cfg.Clips.ClipsPerBlock, cfg.Clips.AnnotatorsPerBlock, s.assignerOpts...)

	if dir := strings.TrimSpace(cfg.Paths.ValidationVideosDir); dir != "" {
		validation, err := catalog.Scan(dir, cfg.Clips.FrameExtension, cfg.Clips.FramePadding)
		switch {
		case err == nil:
			s.validation = validation
		case errors.Is(err, services.ErrConfiguration):
			s.logger.Info("validation mode disabled", slog.String("dir", dir))
		default:
			return nil, err
		}
	}

	s.logger.Info("clip catalog loaded",
		slog.String("dir", cfg.Paths.VideosDir),
		slog.Int("clips", clips.Len()),
		slog.Int("blocks", s.assigner.Blocks()),
	)

	s.routes()
	s.handler = withRequestID(s.withAccessLog(s.router))
	return s, nil
}

func (s *Server) routes() {
	s.router = httprouter.New()
	s.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.handle(http.MethodGet, "/api/health", s.handleHealth)
	s.handle(http.MethodGet, "/api/annotator-id", s.handleAnnotatorID)

	s.handle(http.MethodGet, "/api/clips", s.handleClips)
	s.handle(http.MethodGet, "/api/clips/:clip/frames/:frame", s.handleFrame)
	s.handle(http.MethodPost, "/api/annotations", s.handleAnnotation)
	s.handle(http.MethodPost, "/api/annotations/batch", s.handleBatch)

	s.handle(http.MethodGet, "/api/validation/clips", s.handleValidationClips)
	s.handle(http.MethodGet, "/api/validation/clips/:clip/frames/:frame", s.handleValidationFrame)
	s.handle(http.MethodPost, "/api/validation/annotations", s.handleValidationAnnotation)
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start takes the data directory lock and begins serving on the configured
// bind address. The server shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New("server already running")
	}

	if err := os.MkdirAll(s.cfg.Paths.DataDir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return services.Wrap(services.ErrConflict, "server", "start",
			fmt.Sprintf("another clipmark server is using %s", s.cfg.Paths.DataDir), nil)
	}

	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		slog.String("address", listener.Addr().String()),
		slog.String("lock", s.cfg.LockPath()),
	)
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down and releases the lock. It is safe to call
// more than once.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api shutdown incomplete", logging.Error(err))
	}
	s.server = nil
	s.listener = nil
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release server lock", logging.Error(err))
	}
	s.logger.Info("api server stopped")
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}
