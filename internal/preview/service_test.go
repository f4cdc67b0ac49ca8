package preview

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irrwahn/ffpreview/internal/extract"
	"github.com/irrwahn/ffpreview/internal/logging"
	"github.com/irrwahn/ffpreview/pkg/models"
)

// fakeProber returns a fixed meta.
type fakeProber struct {
	meta  models.VideoMeta
	ok    bool
	calls int
}

func (f *fakeProber) Meta(context.Context, string) (models.VideoMeta, bool) {
	f.calls++
	return f.meta, f.ok
}

// fakeExtractor simulates a run producing n evenly spaced entries.
type fakeExtractor struct {
	n     int
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, m *models.Manifest, params models.ExtractionParams, _ string, progress extract.ProgressFunc) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	step := m.Duration / float64(f.n)
	for i := 1; i <= f.n; i++ {
		ts := float64(i-1) * step
		m.Entries = append(m.Entries, models.Entry{
			Index:     i,
			Filename:  models.ThumbFileName(i),
			Timestamp: strconv.FormatFloat(ts, 'f', -1, 64),
		})
		if progress != nil && i%10 == 0 {
			progress(ts, m.Duration)
		}
	}
	m.Count = f.n
	return nil
}

// fakeCache keeps manifests in memory.
type fakeCache struct {
	stored map[string]*models.Manifest
	saves  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{stored: make(map[string]*models.Manifest)}
}

func (f *fakeCache) Load(dir string) (*models.Manifest, bool) {
	m, ok := f.stored[dir]
	return m, ok
}

func (f *fakeCache) Save(dir string, m *models.Manifest) error {
	f.saves++
	cp := *m
	f.stored[dir] = &cp
	return nil
}

// fakeDirs records clear calls.
type fakeDirs struct {
	root   string
	clears int
}

func (f *fakeDirs) Root() string { return f.root }

func (f *fakeDirs) Dir(videoPath string) string {
	return filepath.Join(f.root, filepath.Base(videoPath))
}

func (f *fakeDirs) Clear(string) error  { f.clears++; return nil }
func (f *fakeDirs) Remove(string) error { return nil }

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log, err := logging.NewLogger(logging.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func testVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mkv")
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0644))
	return path
}

func testService(t *testing.T, prober *fakeProber, ext *fakeExtractor, cache *fakeCache) (*Service, *fakeDirs) {
	t.Helper()
	dirs := &fakeDirs{root: t.TempDir()}
	return NewService(prober, ext, cache, dirs, nil, testLogger(t)), dirs
}

func stdMeta() models.VideoMeta {
	return models.VideoMeta{Frames: 9000, Duration: 300, FPS: 30, SubStreams: 0}
}

func stdParams(video string) models.ExtractionParams {
	return models.ExtractionParams{
		VideoPath:    video,
		Width:        192,
		Method:       models.FrameSkip{N: 200},
		BurnSubIndex: -1,
	}
}

func TestBuildExtractsAndCaches(t *testing.T) {
	video := testVideo(t)
	prober := &fakeProber{meta: stdMeta(), ok: true}
	ext := &fakeExtractor{n: 45}
	cache := newFakeCache()
	svc, dirs := testService(t, prober, ext, cache)

	manifest, hit, err := svc.Build(context.Background(), stdParams(video), nil)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 45, manifest.Count)
	assert.True(t, manifest.SelfConsistent())
	assert.Equal(t, 1, ext.calls)
	assert.Equal(t, 1, dirs.clears)
	assert.Equal(t, 1, cache.saves)
}

func TestBuildIdempotence(t *testing.T) {
	video := testVideo(t)
	prober := &fakeProber{meta: stdMeta(), ok: true}
	ext := &fakeExtractor{n: 45}
	cache := newFakeCache()
	svc, _ := testService(t, prober, ext, cache)

	first, hit, err := svc.Build(context.Background(), stdParams(video), nil)
	require.NoError(t, err)
	require.False(t, hit)

	second, hit, err := svc.Build(context.Background(), stdParams(video), nil)
	require.NoError(t, err)
	assert.True(t, hit, "second identical request must be a cache hit")
	assert.Equal(t, 1, ext.calls, "exactly one real extraction")
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, first.Count, second.Count)
}

func TestBuildForceRebuilds(t *testing.T) {
	video := testVideo(t)
	prober := &fakeProber{meta: stdMeta(), ok: true}
	ext := &fakeExtractor{n: 45}
	cache := newFakeCache()
	svc, dirs := testService(t, prober, ext, cache)

	_, _, err := svc.Build(context.Background(), stdParams(video), nil)
	require.NoError(t, err)

	params := stdParams(video)
	params.Force = true
	_, hit, err := svc.Build(context.Background(), params, nil)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, ext.calls, "force must trigger a second real extraction")
	assert.Equal(t, 2, dirs.clears)
}

func TestBuildParameterChangeInvalidates(t *testing.T) {
	video := testVideo(t)
	prober := &fakeProber{meta: stdMeta(), ok: true}
	ext := &fakeExtractor{n: 45}
	cache := newFakeCache()
	svc, _ := testService(t, prober, ext, cache)

	_, _, err := svc.Build(context.Background(), stdParams(video), nil)
	require.NoError(t, err)

	t.Run("MethodParamChange", func(t *testing.T) {
		params := stdParams(video)
		params.Method = models.FrameSkip{N: 100}
		_, hit, err := svc.Build(context.Background(), params, nil)
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("WidthChange", func(t *testing.T) {
		params := stdParams(video)
		params.Width = 256
		_, hit, err := svc.Build(context.Background(), params, nil)
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("ReuseModeIgnoresMethodParam", func(t *testing.T) {
		// Rebuild the baseline first, then relax matching.
		_, _, err := svc.Build(context.Background(), stdParams(video), nil)
		require.NoError(t, err)

		params := stdParams(video)
		params.Method = models.FrameSkip{N: 500}
		params.Reuse = true
		_, hit, err := svc.Build(context.Background(), params, nil)
		require.NoError(t, err)
		assert.True(t, hit)
	})
}

func TestBuildUnreadableVideo(t *testing.T) {
	t.Run("ProbeFails", func(t *testing.T) {
		video := testVideo(t)
		prober := &fakeProber{meta: models.UnknownMeta(), ok: false}
		ext := &fakeExtractor{n: 1}
		cache := newFakeCache()
		svc, dirs := testService(t, prober, ext, cache)

		_, _, err := svc.Build(context.Background(), stdParams(video), nil)
		assert.ErrorIs(t, err, ErrUnreadableVideo)
		assert.Zero(t, ext.calls)
		assert.Zero(t, dirs.clears, "no cache interaction on unreadable input")
	})

	t.Run("MissingFile", func(t *testing.T) {
		prober := &fakeProber{meta: stdMeta(), ok: true}
		svc, _ := testService(t, prober, &fakeExtractor{n: 1}, newFakeCache())
		_, _, err := svc.Build(context.Background(), stdParams("/nonexistent/clip.mkv"), nil)
		assert.ErrorIs(t, err, ErrUnreadableVideo)
		assert.Zero(t, prober.calls)
	})

	t.Run("Directory", func(t *testing.T) {
		prober := &fakeProber{meta: stdMeta(), ok: true}
		svc, _ := testService(t, prober, &fakeExtractor{n: 1}, newFakeCache())
		_, _, err := svc.Build(context.Background(), stdParams(t.TempDir()), nil)
		assert.ErrorIs(t, err, ErrUnreadableVideo)
	})
}

func TestBuildExtractionFailureWritesNoManifest(t *testing.T) {
	video := testVideo(t)
	prober := &fakeProber{meta: stdMeta(), ok: true}
	boom := errors.New("extractor exploded")
	ext := &fakeExtractor{err: boom}
	cache := newFakeCache()
	svc, _ := testService(t, prober, ext, cache)

	_, _, err := svc.Build(context.Background(), stdParams(video), nil)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, cache.saves, "no manifest may be written after a failed extraction")

	// A subsequent successful attempt rebuilds from scratch.
	ext.err = nil
	ext.n = 45
	manifest, hit, err := svc.Build(context.Background(), stdParams(video), nil)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 45, manifest.Count)
	assert.Equal(t, 1, cache.saves)
}

func TestBuildProgressCallback(t *testing.T) {
	video := testVideo(t)
	prober := &fakeProber{meta: stdMeta(), ok: true}
	ext := &fakeExtractor{n: 45}
	svc, _ := testService(t, prober, ext, newFakeCache())

	var calls int
	var lastTotal float64
	_, _, err := svc.Build(context.Background(), stdParams(video), func(ts, total float64) {
		calls++
		lastTotal = total
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls, "one callback per ten entries")
	assert.Equal(t, 300.0, lastTotal)
}
