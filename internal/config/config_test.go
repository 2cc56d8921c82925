package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.normalize())
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(50<<20), cfg.ThresholdBytes())
	assert.True(t, filepath.IsAbs(cfg.Paths.GameDir))
}

func TestSampleMatchesDefaults(t *testing.T) {
	t.Parallel()

	var fromSample Config
	require.NoError(t, toml.Unmarshal([]byte(Sample()), &fromSample))
	assert.Equal(t, Default(), fromSample)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "texpak.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[paths]
game_dir = "`+filepath.ToSlash(dir)+`"

[repack]
mode = " Replace "
workers = 4
compression = "ZSTD"

[logging]
level = "DEBUG"
format = "json"
`), 0o600))

	cfg, resolved, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)
	assert.Equal(t, "replace", cfg.Repack.Mode)
	assert.Equal(t, 4, cfg.Repack.Workers)
	assert.Equal(t, "zstd", cfg.Repack.Compression)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Repack.CloneAttributes, "unset keys keep defaults")
	assert.Equal(t, int64(50), cfg.Repack.ThresholdMiB)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "none.toml")
	cfg, resolved, exists, err := Load(path)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, path, resolved)
	assert.Equal(t, "patch", cfg.Repack.Mode)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"mode", "[repack]\nmode = \"overwrite\"\n"},
		{"workers", "[repack]\nworkers = -1\n"},
		{"compression", "[repack]\ncompression = \"lz4\"\n"},
		{"level", "[logging]\nlevel = \"trace\"\n"},
		{"repository", "[update]\nrepository = \"texpak\"\n"},
		{"unknown key", "[repack]\nthreads = 2\n"},
		{"syntax", "[repack\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "texpak.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			_, _, _, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestCreateSample(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, CreateSample(path, false))
	assert.Error(t, CreateSample(path, false))
	require.NoError(t, CreateSample(path, true))

	cfg, _, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "none", cfg.Repack.Compression)
}
