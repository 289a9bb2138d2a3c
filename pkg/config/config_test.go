package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "dtriage.yaml")
	content := `
log:
  level: debug
`
	err := os.WriteFile(configFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := Load(configFile)
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, int64(100<<20), cfg.Ingest.MaxFileBytes)
	assert.Equal(t, []string{"", "application/dicom", "application/octet-stream"}, cfg.Ingest.AcceptedContentTypes)
	assert.Equal(t, runtime.NumCPU(), cfg.Ingest.Workers)
	assert.True(t, cfg.Ingest.DeepParse)
	assert.Equal(t, int64(0), cfg.Archive.MaxEntryBytes)
	assert.Equal(t, 16, cfg.Archive.Buffer)
	assert.Equal(t, 64, cfg.Thumbnail.Size)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "none", cfg.Output.Compression)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_CustomValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "dtriage.yaml")
	content := `
ingest:
  max_file_bytes: 1048576
  accepted_content_types: ["application/dicom"]
  workers: 3
  deep_parse: false
archive:
  max_entry_bytes: 4096
  buffer: 4
  progress_every: 100
  concurrency: 1
thumbnail:
  enabled: true
  size: 128
  dir: /tmp/thumbs
output:
  format: table
  compression: zstd
  path: /tmp/report.json.zst
log:
  format: json
`
	err := os.WriteFile(configFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, int64(1<<20), cfg.Ingest.MaxFileBytes)
	assert.Equal(t, []string{"application/dicom"}, cfg.Ingest.AcceptedContentTypes)
	assert.Equal(t, 3, cfg.Ingest.Workers)
	assert.False(t, cfg.Ingest.DeepParse)
	assert.Equal(t, int64(4096), cfg.Archive.MaxEntryBytes)
	assert.Equal(t, 4, cfg.Archive.Buffer)
	assert.Equal(t, 100, cfg.Archive.ProgressEvery)
	assert.True(t, cfg.Thumbnail.Enabled)
	assert.Equal(t, 128, cfg.Thumbnail.Size)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.Equal(t, "zstd", cfg.Output.Compression)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DTRIAGE_INGEST_WORKERS", "7")
	t.Setenv("DTRIAGE_OUTPUT_FORMAT", "table")

	cfg, err := LoadFromReader("yaml", []byte("ingest:\n  workers: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Ingest.Workers)
	assert.Equal(t, "table", cfg.Output.Format)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"format", "output:\n  format: xml\n", "unsupported output format"},
		{"compression", "output:\n  compression: brotli\n", "unsupported output compression"},
		{"workers", "ingest:\n  workers: 0\n", "workers must be at least 1"},
		{"size", "thumbnail:\n  size: 0\n", "thumbnail size"},
		{"log format", "log:\n  format: text\n", "unsupported log format"},
		{"entry cap", "archive:\n  max_entry_bytes: -1\n", "max_entry_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromReader("yaml", []byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Default(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.Archive.Concurrency = 0
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency")
}

func TestEnsureThumbnailDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "thumbs")

	cfg := Default()
	cfg.Thumbnail.Dir = dir
	require.NoError(t, cfg.EnsureThumbnailDir())
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	cfg.Thumbnail.Enabled = true
	require.NoError(t, cfg.EnsureThumbnailDir())
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/dtriage.yaml")
	// Should not return error, use defaults
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestLoadFromReader_Malformed(t *testing.T) {
	_, err := LoadFromReader("yaml", []byte("ingest: [unclosed"))
	assert.Error(t, err)
}
