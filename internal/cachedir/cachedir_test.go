package cachedir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irrwahn/ffpreview/internal/logging"
	"github.com/irrwahn/ffpreview/pkg/models"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log, err := logging.NewLogger(logging.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func TestNew(t *testing.T) {
	t.Run("AppendsSubdir", func(t *testing.T) {
		base := t.TempDir()
		m, err := New(base, testLogger(t))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, Subdir), m.Root())
		assert.DirExists(t, m.Root())
	})

	t.Run("KeepsExistingSubdirSuffix", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), Subdir)
		m, err := New(base, testLogger(t))
		require.NoError(t, err)
		assert.Equal(t, base, m.Root())
	})
}

func TestDir(t *testing.T) {
	m, err := New(t.TempDir(), testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Root(), "clip.mkv"), m.Dir("/videos/clip.mkv"))
}

func TestClear(t *testing.T) {
	t.Run("RemovesOnlyThumbnailsAndIndex", func(t *testing.T) {
		m, err := New(t.TempDir(), testLogger(t))
		require.NoError(t, err)

		dir := m.Dir("/videos/clip.mkv")
		require.NoError(t, os.MkdirAll(dir, 0755))
		for _, name := range []string{"00000001.png", "00000002.png", models.IndexFileName} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
		}
		// Files not matching the thumbnail pattern must survive.
		keep := []string{"notes.txt", "123.png", "000000001.png"}
		for _, name := range keep {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
		}

		require.NoError(t, m.Clear(dir))

		assert.NoFileExists(t, filepath.Join(dir, "00000001.png"))
		assert.NoFileExists(t, filepath.Join(dir, "00000002.png"))
		assert.NoFileExists(t, filepath.Join(dir, models.IndexFileName))
		for _, name := range keep {
			assert.FileExists(t, filepath.Join(dir, name))
		}
	})

	t.Run("CreatesMissingDirectory", func(t *testing.T) {
		m, err := New(t.TempDir(), testLogger(t))
		require.NoError(t, err)
		dir := m.Dir("fresh.mkv")
		require.NoError(t, m.Clear(dir))
		assert.DirExists(t, dir)
	})

	t.Run("RefusesDirectoryOutsideRoot", func(t *testing.T) {
		m, err := New(t.TempDir(), testLogger(t))
		require.NoError(t, err)

		victim := t.TempDir()
		file := filepath.Join(victim, "00000001.png")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		err = m.Clear(victim)
		assert.ErrorIs(t, err, ErrOutsideRoot)
		assert.FileExists(t, file)
	})

	t.Run("RefusesNestedPath", func(t *testing.T) {
		m, err := New(t.TempDir(), testLogger(t))
		require.NoError(t, err)
		err = m.Clear(filepath.Join(m.Root(), "a", "b"))
		assert.ErrorIs(t, err, ErrOutsideRoot)
	})
}

func TestRemove(t *testing.T) {
	m, err := New(t.TempDir(), testLogger(t))
	require.NoError(t, err)

	dir := m.Dir("gone.mkv")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00000001.png"), []byte("x"), 0644))

	require.NoError(t, m.Remove(dir))
	assert.NoDirExists(t, dir)

	t.Run("RefusesOutsideRoot", func(t *testing.T) {
		victim := t.TempDir()
		assert.ErrorIs(t, m.Remove(victim), ErrOutsideRoot)
		assert.DirExists(t, victim)
	})
}

func TestIsThumbFile(t *testing.T) {
	assert.True(t, IsThumbFile("00000001.png"))
	assert.True(t, IsThumbFile("99999999.png"))
	assert.False(t, IsThumbFile("0000001.png"))
	assert.False(t, IsThumbFile("000000001.png"))
	assert.False(t, IsThumbFile("00000001.jpg"))
	assert.False(t, IsThumbFile("ffpreview.idx"))
}
