package probe

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irrwahn/ffpreview/internal/logging"
)

// fakeRunner scripts the outcome of each probe strategy, identified by a
// distinctive argument, and records the order strategies were tried in.
type fakeRunner struct {
	calls []string

	subsOut string
	subsErr error

	fastOut string
	fastErr error

	packetsOut string
	packetsErr error

	decodeErrOut string
	decodeErr    error
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) (string, string, error) {
	switch {
	case slices.Contains(args, "csv=p=0"):
		f.calls = append(f.calls, "subs")
		return f.subsOut, "", f.subsErr
	case slices.Contains(args, "-show_streams"):
		f.calls = append(f.calls, "fast")
		return f.fastOut, "", f.fastErr
	case slices.Contains(args, "-count_packets"):
		f.calls = append(f.calls, "packets")
		return f.packetsOut, "", f.packetsErr
	case slices.Contains(args, "rawvideo"):
		f.calls = append(f.calls, "decode")
		return "", f.decodeErrOut, f.decodeErr
	}
	return "", "", errors.New("unexpected command")
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log, err := logging.NewLogger(logging.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	return log
}

const fastJSON = `{
  "streams": [{"duration": "300.04", "nb_frames": "9000", "avg_frame_rate": "30000/1001"}],
  "format": {"duration": "300.08"}
}`

const fastJSONNoFrames = `{
  "streams": [{"duration": "300.0", "avg_frame_rate": "30/1"}],
  "format": {}
}`

const fastJSONNoDuration = `{
  "streams": [{"avg_frame_rate": "30/1"}],
  "format": {}
}`

const packetsJSON = `{
  "streams": [{"nb_read_packets": "9000"}],
  "format": {"duration": "300.0"}
}`

func TestMetaFastPath(t *testing.T) {
	runner := &fakeRunner{subsOut: "2\n3\n", fastOut: fastJSON}
	p := New("ffmpeg", "ffprobe", runner, testLogger(t))

	meta, ok := p.Meta(context.Background(), "clip.mkv")
	require.True(t, ok)
	assert.Equal(t, int64(9000), meta.Frames)
	assert.InDelta(t, 300.04, meta.Duration, 1e-9)
	assert.InDelta(t, 9000/300.04, meta.FPS, 1e-9)
	assert.Equal(t, 2, meta.SubStreams)
	assert.Equal(t, []string{"subs", "fast"}, runner.calls)
}

func TestMetaFastPathDerivesFramesFromRate(t *testing.T) {
	runner := &fakeRunner{fastOut: fastJSONNoFrames}
	p := New("ffmpeg", "ffprobe", runner, testLogger(t))

	meta, ok := p.Meta(context.Background(), "clip.mkv")
	require.True(t, ok)
	assert.Equal(t, int64(9000), meta.Frames)
	assert.InDelta(t, 30.0, meta.FPS, 1e-9)
}

func TestMetaFallbackOrdering(t *testing.T) {
	t.Run("PacketCountBeforeDecodeScan", func(t *testing.T) {
		runner := &fakeRunner{
			fastOut:    fastJSONNoDuration,
			packetsOut: packetsJSON,
		}
		p := New("ffmpeg", "ffprobe", runner, testLogger(t))

		meta, ok := p.Meta(context.Background(), "clip.mkv")
		require.True(t, ok)
		assert.Equal(t, []string{"subs", "fast", "packets"}, runner.calls)
		assert.Equal(t, int64(9000), meta.Frames)
		assert.InDelta(t, 30.0, meta.FPS, 1e-9)
	})

	t.Run("DecodeScanLast", func(t *testing.T) {
		runner := &fakeRunner{
			fastErr:      errors.New("no such file"),
			packetsErr:   errors.New("no such file"),
			decodeErrOut: "frame= 9000 fps=300 q=-0.0 size=N/A time=00:05:00.00 bitrate=N/A speed=49x\n",
		}
		p := New("ffmpeg", "ffprobe", runner, testLogger(t))

		meta, ok := p.Meta(context.Background(), "clip.mkv")
		require.True(t, ok)
		assert.Equal(t, []string{"subs", "fast", "packets", "decode"}, runner.calls)
		assert.Equal(t, int64(9000), meta.Frames)
		assert.InDelta(t, 300.0, meta.Duration, 1e-9)
	})

	t.Run("AllStrategiesFail", func(t *testing.T) {
		failure := errors.New("unreadable")
		runner := &fakeRunner{
			subsErr:    failure,
			fastErr:    failure,
			packetsErr: failure,
			decodeErr:  failure,
		}
		p := New("ffmpeg", "ffprobe", runner, testLogger(t))

		meta, ok := p.Meta(context.Background(), "clip.mkv")
		assert.False(t, ok)
		assert.False(t, meta.Valid())
		assert.Equal(t, -1, meta.SubStreams)
		assert.Equal(t, []string{"subs", "fast", "packets", "decode"}, runner.calls)
	})
}

func TestSubtitleStreams(t *testing.T) {
	t.Run("CountsLines", func(t *testing.T) {
		runner := &fakeRunner{subsOut: "2\n3\n4\n"}
		p := New("ffmpeg", "ffprobe", runner, testLogger(t))
		assert.Equal(t, 3, p.SubtitleStreams(context.Background(), "clip.mkv"))
	})

	t.Run("NoStreams", func(t *testing.T) {
		runner := &fakeRunner{subsOut: ""}
		p := New("ffmpeg", "ffprobe", runner, testLogger(t))
		assert.Equal(t, 0, p.SubtitleStreams(context.Background(), "clip.mkv"))
	})

	t.Run("FailureYieldsMinusOne", func(t *testing.T) {
		runner := &fakeRunner{subsErr: errors.New("boom")}
		p := New("ffmpeg", "ffprobe", runner, testLogger(t))
		assert.Equal(t, -1, p.SubtitleStreams(context.Background(), "clip.mkv"))
	})
}
