// Package extract runs one frame-selection strategy to completion,
// streaming per-frame timestamps from the extractor process into a
// growing manifest.
package extract

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/irrwahn/ffpreview/internal/logging"
	"github.com/irrwahn/ffpreview/internal/metrics"
	"github.com/irrwahn/ffpreview/internal/procrun"
	"github.com/irrwahn/ffpreview/pkg/models"
)

// ErrExtractorFailed signals that the extractor process exited nonzero
// or could not be spawned.
var ErrExtractorFailed = errors.New("thumbnail extraction failed")

// ProgressFunc receives the latest extracted timestamp and the known
// total duration. It is called from the extraction goroutine; the UI
// collaborator is expected to pump its own event queue.
type ProgressFunc func(ts, duration float64)

// processStarter spawns a process with a streamed stderr pipe.
// Satisfied by *procrun.Runner.
type processStarter interface {
	Start(ctx context.Context, name string, args ...string) (*procrun.Process, error)
}

// Extractor drives the external frame extractor.
type Extractor struct {
	ffmpegPath string
	runner     processStarter
	log        *logging.Logger
}

// New creates an Extractor.
func New(ffmpegPath string, runner processStarter, log *logging.Logger) *Extractor {
	return &Extractor{ffmpegPath: ffmpegPath, runner: runner, log: log}
}

// Extract spawns the extractor for the given request and incrementally
// appends a manifest entry per selected frame as the process reports it.
// On success the manifest's Count and Date are filled in; on any failure
// the manifest must be discarded by the caller and no index is written.
func (e *Extractor) Extract(ctx context.Context, manifest *models.Manifest, params models.ExtractionParams, outDir string, progress ProgressFunc) error {
	filter := BuildFilter(params.Method, manifest.FPS, params.Width,
		params.VideoPath, manifest.BurnSubIndex, params.Start)
	if manifest.BurnSubIndex >= 0 && params.Start > 0 {
		e.log.WithVideo(params.VideoPath).Debug("subtitle burn-in skipped: trim start is set")
	}
	args := BuildArgs(params, filter, OutTemplate(outDir))

	proc, err := e.runner.Start(ctx, e.ffmpegPath, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExtractorFailed, err)
	}

	var diag strings.Builder
	cnt := 0
	scanner := bufio.NewScanner(proc.Stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		diag.WriteString(line)
		diag.WriteByte('\n')

		ts, ok := ParseTimestamp(line)
		if !ok {
			continue
		}
		cnt++
		ts = ShiftTimestamp(ts, params.Start)
		manifest.Entries = append(manifest.Entries, models.Entry{
			Index:     cnt,
			Filename:  models.ThumbFileName(cnt),
			Timestamp: ts,
		})
		if progress != nil && cnt%10 == 0 {
			if v, err := strconv.ParseFloat(ts, 64); err == nil {
				progress(v, manifest.Duration)
				e.log.LogExtractionProgress(params.VideoPath, v, manifest.Duration, cnt)
			}
		}
	}

	waitErr := proc.Wait()
	if waitErr != nil {
		e.log.WithVideo(params.VideoPath).ErrorWithErr("extractor exited with error", waitErr)
		return fmt.Errorf("%w: %v, output: %s", ErrExtractorFailed, waitErr, tail(diag.String(), 2048))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: reading extractor output: %v", ErrExtractorFailed, err)
	}

	manifest.Count = cnt
	metrics.ThumbnailsWritten.Add(float64(cnt))
	return nil
}

// tail returns at most the last n bytes of s, for diagnostics.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n:]
}
