// Package probe answers "how many frames / how long / what fps" for a
// video file as cheaply as possible, through an ordered chain of probe
// strategies.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/irrwahn/ffpreview/internal/logging"
	"github.com/irrwahn/ffpreview/internal/metrics"
	"github.com/irrwahn/ffpreview/pkg/models"
)

// commandRunner runs one external command to completion. Satisfied by
// *procrun.Runner.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// Probe obtains video metadata via ffprobe, falling back to ffmpeg.
type Probe struct {
	ffmpegPath  string
	ffprobePath string
	runner      commandRunner
	log         *logging.Logger
}

// New creates a Probe.
func New(ffmpegPath, ffprobePath string, runner commandRunner, log *logging.Logger) *Probe {
	return &Probe{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      runner,
		log:         log,
	}
}

// Meta derives frame count, duration and fps for a video. The bool
// result is false when every strategy failed, which means the video is
// unreadable and neither caching nor extraction should proceed.
//
// Strategies, in order: declared stream duration and frame count from
// ffprobe; ffprobe packet counting; driving ffmpeg in copy-and-discard
// mode and scraping its progress lines.
func (p *Probe) Meta(ctx context.Context, videoPath string) (models.VideoMeta, bool) {
	meta := models.UnknownMeta()
	meta.SubStreams = p.SubtitleStreams(ctx, videoPath)

	if m, err := p.fastProbe(ctx, videoPath); err == nil {
		m.SubStreams = meta.SubStreams
		return m, true
	} else {
		p.log.LogProbeFallback(videoPath, "fast", "packet-count", err)
		metrics.ProbeFallbacksTotal.WithLabelValues("packet-count").Inc()
	}

	if m, err := p.packetCount(ctx, videoPath); err == nil {
		m.SubStreams = meta.SubStreams
		return m, true
	} else {
		p.log.LogProbeFallback(videoPath, "packet-count", "decode-scan", err)
		metrics.ProbeFallbacksTotal.WithLabelValues("decode-scan").Inc()
	}

	if m, err := p.decodeScan(ctx, videoPath); err == nil {
		m.SubStreams = meta.SubStreams
		return m, true
	} else {
		p.log.WithVideo(videoPath).ErrorWithErr("all probe strategies failed", err)
		metrics.ProbeFailuresTotal.Inc()
	}

	return meta, false
}

// SubtitleStreams counts the subtitle streams in a video. Failure yields
// -1 without aborting meta probing.
func (p *Probe) SubtitleStreams(ctx context.Context, videoPath string) int {
	stdout, _, err := p.runner.Run(ctx, p.ffprobePath,
		"-v", "error",
		"-select_streams", "s",
		"-show_entries", "stream=index",
		"-of", "csv=p=0",
		videoPath,
	)
	if err != nil {
		p.log.WithVideo(videoPath).Debugf("subtitle stream probe failed: %v", err)
		return -1
	}
	n := 0
	for _, line := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// streamJSON mirrors the ffprobe fields the fast strategy consumes; all
// numbers arrive as strings.
type streamJSON struct {
	Duration      string `json:"duration"`
	NBFrames      string `json:"nb_frames"`
	NBReadPackets string `json:"nb_read_packets"`
	AvgFrameRate  string `json:"avg_frame_rate"`
}

type formatJSON struct {
	Duration string `json:"duration"`
}

type probeJSON struct {
	Streams []streamJSON `json:"streams"`
	Format  formatJSON   `json:"format"`
}

func (p *Probe) fastProbe(ctx context.Context, videoPath string) (models.VideoMeta, error) {
	meta := models.UnknownMeta()
	stdout, _, err := p.runner.Run(ctx, p.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_streams",
		"-show_format",
		"-of", "json",
		videoPath,
	)
	if err != nil {
		return meta, err
	}

	var info probeJSON
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		return meta, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(info.Streams) == 0 {
		return meta, fmt.Errorf("no video stream reported")
	}
	stream := info.Streams[0]

	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil {
		duration, err = strconv.ParseFloat(info.Format.Duration, 64)
		if err != nil {
			return meta, fmt.Errorf("no usable duration reported")
		}
	}
	duration = max(duration, 0.000001)

	if frames, err := strconv.ParseInt(stream.NBFrames, 10, 64); err == nil {
		meta.Frames = frames
		meta.FPS = float64(frames) / duration
	} else if fps, err := parseFrac(stream.AvgFrameRate); err == nil {
		meta.FPS = fps
		meta.Frames = int64(fps * duration)
	} else {
		return meta, fmt.Errorf("no usable frame count or frame rate reported")
	}
	meta.Duration = duration
	return meta, nil
}

func (p *Probe) packetCount(ctx context.Context, videoPath string) (models.VideoMeta, error) {
	meta := models.UnknownMeta()
	stdout, _, err := p.runner.Run(ctx, p.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-of", "json",
		"-count_packets",
		"-show_entries", "format=duration:stream=nb_read_packets",
		videoPath,
	)
	if err != nil {
		return meta, err
	}

	var info probeJSON
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		return meta, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(info.Streams) == 0 {
		return meta, fmt.Errorf("no video stream reported")
	}

	frames, err := strconv.ParseInt(info.Streams[0].NBReadPackets, 10, 64)
	if err != nil {
		return meta, fmt.Errorf("no packet count reported: %w", err)
	}
	duration, err := strconv.ParseFloat(info.Format.Duration, 64)
	if err != nil {
		return meta, fmt.Errorf("no container duration reported: %w", err)
	}

	meta.Frames = frames
	meta.Duration = max(duration, 0.0001)
	meta.FPS = round2(float64(frames) / meta.Duration)
	return meta, nil
}

func (p *Probe) decodeScan(ctx context.Context, videoPath string) (models.VideoMeta, error) {
	meta := models.UnknownMeta()
	_, stderr, err := p.runner.Run(ctx, p.ffmpegPath,
		"-nostats",
		"-i", videoPath,
		"-c:v", "copy",
		"-f", "rawvideo",
		"-y", os.DevNull,
	)
	if err != nil {
		return meta, err
	}

	frames, duration, ok := ScanProgress(stderr)
	if !ok {
		return meta, fmt.Errorf("no progress markers in decoder output")
	}
	meta.Frames = frames
	meta.Duration = max(duration, 0.0001)
	meta.FPS = round2(float64(frames) / meta.Duration)
	return meta, nil
}
