// Package web gin server
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/tamerlane/internal/viewer"
	"github.com/Laisky/tamerlane/library/iiif"
	"github.com/Laisky/tamerlane/library/langs"
	"github.com/Laisky/tamerlane/library/log"
	"github.com/Laisky/tamerlane/library/search"
)

const shutdownTimeout = 5 * time.Second

// Viewer is the session state the API operates on.
type Viewer interface {
	Snapshot() viewer.State
	LoadContent(ctx context.Context, url string) error
	FetchManifestByIndex(ctx context.Context, index int) error
	NextManifest(ctx context.Context) error
	PreviousManifest(ctx context.Context) error
	SelectCanvas(index int) error
	NextCanvas()
	PreviousCanvas()
	ResetCanvasIndex()
	HandleSearch(ctx context.Context, query string)
	Autocomplete(ctx context.Context, prefix string) ([]iiif.Term, error)
	SelectSearchResult(ctx context.Context, snippetID string) error
	SetActivePanelTab(tab viewer.PanelTab) error
	SetSelectedLanguage(code string)
	CycleLanguage() langs.Language
	AvailableLanguages() []langs.Language
	VisibleSearchResults() []search.Snippet
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the logger attached to every request.
func WithLogger(logger logSDK.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server exposes a Viewer over HTTP.
type Server struct {
	engine *gin.Engine
	viewer Viewer
	logger logSDK.Logger
}

// NewServer builds the router for v.
func NewServer(v Viewer, opts ...Option) (*Server, error) {
	if v == nil {
		return nil, errors.New("web server requires a viewer")
	}

	s := &Server{
		viewer: v,
		logger: log.Logger.Named("gin"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	// identifiers are URLs, so path parameters arrive percent-encoded
	s.engine.UseRawPath = true
	s.engine.ContextWithFallback = true
	s.engine.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLogger(s.logger),
		),
	)
	s.registerRoutes()

	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on http", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server exit")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}

	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := s.engine.Group("/api")
	api.GET("/state", s.getState)
	api.POST("/content", s.loadContent)
	api.POST("/manifests/:index", s.openManifest)
	api.POST("/canvases/:index", s.openCanvas)
	api.GET("/search", s.search)
	api.GET("/autocomplete", s.autocomplete)
	api.POST("/results/:id/select", s.selectResult)
	api.PUT("/panel", s.setPanel)
	api.GET("/languages", s.listLanguages)
	api.PUT("/language", s.setLanguage)
	api.POST("/language/cycle", s.cycleLanguage)
}
