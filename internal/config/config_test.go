package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultExtensions, cfg.Extensions)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, 256, cfg.Thumbnails.MaxSize)
	assert.Equal(t, 85, cfg.Thumbnails.Quality)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overlay(t *testing.T) {
	path := writeConfig(t, `
extensions: [".jpg", ".png"]
concurrency: 8
thumbnails:
  max_size: 512
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{".jpg", ".png"}, cfg.Extensions)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 512, cfg.Thumbnails.MaxSize)
	// Untouched values keep the defaults.
	assert.Equal(t, 85, cfg.Thumbnails.Quality)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "extensions: [unterminated")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"extension without dot", `extensions: ["jpg"]`},
		{"concurrency too high", `concurrency: 1000`},
		{"quality over 100", "thumbnails:\n  quality: 150"},
		{"thumbnail too small", "thumbnails:\n  max_size: 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
