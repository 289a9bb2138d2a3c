package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out", "nested")

	s, err := NewLocalStorage(base)
	require.NoError(t, err)
	assert.Equal(t, base, s.BasePath())

	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorage_PutGet(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "thumbs/1.2/3.4.png", bytes.NewReader([]byte("png"))))

	ok, err := s.Exists(ctx, "thumbs/1.2/3.4.png")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Get(ctx, "thumbs/1.2/3.4.png")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	require.NoError(t, s.Put(ctx, "thumbs/1.2/3.4.png", bytes.NewReader([]byte("v2"))))
	data, err = os.ReadFile(s.Path("thumbs/1.2/3.4.png"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(filepath.Dir(s.Path("thumbs/1.2/3.4.png")))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestLocalStorage_Missing(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ok, err := s.Exists(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(context.Background(), "nope")
	assert.Error(t, err)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../x", "a/../../x", "/etc/passwd", ""} {
		assert.Error(t, s.Put(context.Background(), key, bytes.NewReader(nil)), key)
	}
}

func TestLocalStorage_Cancelled(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Put(ctx, "a", bytes.NewReader(nil)), context.Canceled)
	_, err = s.Exists(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "1.2.840_x_y", SanitizeKey("1.2.840/x y"))
}
