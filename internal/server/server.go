// Package server exposes the thumbnail pipeline over HTTP for
// presentation layers that render the grid remotely.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/irrwahn/ffpreview/internal/config"
	"github.com/irrwahn/ffpreview/internal/logging"
	"github.com/irrwahn/ffpreview/internal/player"
	"github.com/irrwahn/ffpreview/internal/preview"
)

// Server is the HTTP presentation adapter.
type Server struct {
	svc      *preview.Service
	player   *player.Player
	cfg      *config.Config
	log      *logging.Logger
	http     *http.Server
	defaults defaultsFunc
}

// defaultsFunc supplies default extraction parameter values for request
// fields the client left unset.
type defaultsFunc func() config.ExtractorConfig

// New creates the HTTP server.
func New(cfg *config.Config, svc *preview.Service, pl *player.Player, log *logging.Logger) *Server {
	s := &Server{
		svc:      svc,
		player:   pl,
		cfg:      cfg,
		log:      log,
		defaults: func() config.ExtractorConfig { return cfg.Extractor },
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/healthz", s.healthHandler)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	{
		api.GET("/previews", s.listPreviewsHandler)
		api.POST("/previews", s.buildPreviewHandler)
		api.GET("/previews/:video", s.getManifestHandler)
		api.GET("/previews/:video/thumbs/:file", s.getThumbHandler)
		api.DELETE("/previews/:video", s.deletePreviewHandler)
		api.POST("/abort", s.abortHandler)
		api.POST("/play", s.playHandler)
	}

	// No write deadline: the build endpoint blocks for the duration of
	// the extraction and the manifest response must still be writable
	// when it finishes.
	s.http = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: cfg.Server.ReadTimeout,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	s.svc.Abort()
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debugf("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Millisecond))
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "extracting": s.svc.Running()})
}
