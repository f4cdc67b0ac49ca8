// Package preview orchestrates the thumbnail pipeline: probe the video,
// decide reuse vs. rebuild against the cached manifest, and drive the
// extractor when a rebuild is needed.
package preview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/irrwahn/ffpreview/internal/cachedir"
	"github.com/irrwahn/ffpreview/internal/config"
	"github.com/irrwahn/ffpreview/internal/extract"
	"github.com/irrwahn/ffpreview/internal/index"
	"github.com/irrwahn/ffpreview/internal/logging"
	"github.com/irrwahn/ffpreview/internal/metrics"
	"github.com/irrwahn/ffpreview/internal/probe"
	"github.com/irrwahn/ffpreview/internal/procrun"
	"github.com/irrwahn/ffpreview/pkg/models"
)

// ErrUnreadableVideo signals that every probe strategy failed; the
// request is aborted with no cache interaction.
var ErrUnreadableVideo = errors.New("video is unreadable")

// metadataProber answers duration/frames/fps questions for a video.
type metadataProber interface {
	Meta(ctx context.Context, videoPath string) (models.VideoMeta, bool)
}

// thumbnailer runs one extraction to completion.
type thumbnailer interface {
	Extract(ctx context.Context, manifest *models.Manifest, params models.ExtractionParams, outDir string, progress extract.ProgressFunc) error
}

// indexCache round-trips manifests.
type indexCache interface {
	Load(dir string) (*models.Manifest, bool)
	Save(dir string, m *models.Manifest) error
}

// dirManager manages thumbnail directories under the cache root.
type dirManager interface {
	Root() string
	Dir(videoPath string) string
	Clear(dir string) error
	Remove(dir string) error
}

// Service is the blocking, single-request-at-a-time pipeline front.
type Service struct {
	prober    metadataProber
	extractor thumbnailer
	cache     indexCache
	dirs      dirManager
	runner    *procrun.Runner
	log       *logging.Logger
}

// NewService assembles a Service from its collaborators.
func NewService(prober metadataProber, extractor thumbnailer, cache indexCache, dirs dirManager, runner *procrun.Runner, log *logging.Logger) *Service {
	return &Service{
		prober:    prober,
		extractor: extractor,
		cache:     cache,
		dirs:      dirs,
		runner:    runner,
		log:       log,
	}
}

// FromConfig wires the full pipeline from configuration.
func FromConfig(cfg *config.Config, log *logging.Logger) (*Service, error) {
	runner := procrun.NewRunner(cfg.Tools.ExtraPath, cfg.Extractor.GracePeriod, log)
	dirs, err := cachedir.New(cfg.Extractor.CacheRoot, log)
	if err != nil {
		return nil, err
	}
	return NewService(
		probe.New(cfg.Tools.FFmpegPath, cfg.Tools.FFprobePath, runner, log),
		extract.New(cfg.Tools.FFmpegPath, runner, log),
		index.New(log),
		dirs,
		runner,
		log,
	), nil
}

// Root returns the cache root the service operates under.
func (s *Service) Root() string {
	return s.dirs.Root()
}

// Running reports whether an extraction or probe is currently in flight.
func (s *Service) Running() bool {
	return s.runner.Running()
}

// Abort terminates the in-flight subprocess, if any. The interrupted
// Build call returns an extraction failure; no manifest is written.
func (s *Service) Abort() {
	s.runner.Terminate()
}

// Build returns the manifest for a video, extracting thumbnails only
// when no existing manifest validates against the request. The bool
// result reports a cache hit. Build blocks until the extraction
// completes; progress is delivered through the callback.
func (s *Service) Build(ctx context.Context, params models.ExtractionParams, progress extract.ProgressFunc) (*models.Manifest, bool, error) {
	videoPath, err := filepath.Abs(params.VideoPath)
	if err != nil {
		return nil, false, fmt.Errorf("invalid video path: %w", err)
	}
	params.VideoPath = videoPath

	fi, err := os.Stat(videoPath)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnreadableVideo, err)
	}
	if fi.IsDir() {
		return nil, false, fmt.Errorf("%w: %s is a directory", ErrUnreadableVideo, videoPath)
	}

	log := s.log.WithVideo(videoPath).
		WithRunID(uuid.NewString()[:8]).
		WithMethod(string(params.Method.Name()))

	meta, ok := s.prober.Meta(ctx, videoPath)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnreadableVideo, videoPath)
	}

	manifest := models.NewManifest(params, meta)
	dir := s.dirs.Dir(videoPath)

	reason := "forced"
	if !params.Force {
		existing, _ := s.cache.Load(dir)
		valid, why := index.Validate(manifest, existing, params.Reuse)
		if valid {
			log.LogCacheDecision(videoPath, true, "manifest matches request")
			metrics.CacheHitsTotal.Inc()
			return existing, true, nil
		}
		reason = why
	}
	log.LogCacheDecision(videoPath, false, reason)
	metrics.CacheRebuildsTotal.WithLabelValues(reason).Inc()

	if err := s.dirs.Clear(dir); err != nil {
		return nil, false, err
	}

	start := time.Now()
	metrics.ExtractionInFlight.Set(1)
	defer metrics.ExtractionInFlight.Set(0)

	if err := s.extractor.Extract(ctx, manifest, params, dir, progress); err != nil {
		log.WithError(err).Error("extraction failed")
		metrics.ExtractionsTotal.WithLabelValues("failure").Inc()
		return nil, false, err
	}

	if err := s.cache.Save(dir, manifest); err != nil {
		log.WithError(err).Error("failed to write index")
		metrics.ExtractionsTotal.WithLabelValues("failure").Inc()
		return nil, false, err
	}

	metrics.ExtractionsTotal.WithLabelValues("success").Inc()
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	log.Infof("extracted %d thumbnails in %s", manifest.Count, time.Since(start).Round(time.Millisecond))
	return manifest, false, nil
}
