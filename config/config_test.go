package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/zipstream/compressor"
	"github.com/sagarc03/zipstream/config"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "index.html", cfg.Server.IndexPath)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "test_photos", cfg.Archive.Root)
	assert.Equal(t, "photos.zip", cfg.Archive.Name)
	assert.Equal(t, time.Duration(0), cfg.Archive.NetworkDelay)
	assert.Equal(t, 102400, cfg.Archive.ChunkSize)
	assert.Equal(t, "exec", cfg.Compressor.Backend)
	assert.Equal(t, compressor.Command{"zip", "-r", "-", "."}, cfg.Compressor.Command)
	assert.Equal(t, 6, cfg.Compressor.Level)
	assert.False(t, cfg.CORS.Enabled)
	assert.True(t, cfg.Log.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	path := writeConfig(t, "config.yaml", `
server:
  port: 9000
  index_path: /srv/index.html
archive:
  root: /srv/photos
  name: album.zip
  network_delay: 250ms
  chunk_size: 4096
compressor:
  backend: native
  level: 9
log:
  level: debug
  format: json
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/srv/index.html", cfg.Server.IndexPath)
	assert.Equal(t, "/srv/photos", cfg.Archive.Root)
	assert.Equal(t, "album.zip", cfg.Archive.Name)
	assert.Equal(t, 250*time.Millisecond, cfg.Archive.NetworkDelay)
	assert.Equal(t, 4096, cfg.Archive.ChunkSize)
	assert.Equal(t, "native", cfg.Compressor.Backend)
	assert.Equal(t, 9, cfg.Compressor.Level)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	t.Chdir(t.TempDir())

	base := writeConfig(t, "base.yaml", `
server:
  port: 8080
archive:
  root: /srv/photos
  name: photos.zip
`)
	override := writeConfig(t, "override.yaml", `
server:
  port: 9000
`)

	cfg, err := config.Load([]string{base, override}, nil)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/srv/photos", cfg.Archive.Root)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "port out of range",
			content: "server:\n  port: 99999\n",
		},
		{
			name:    "unknown compressor backend",
			content: "compressor:\n  backend: tar\n",
		},
		{
			name:    "compression level out of range",
			content: "compressor:\n  level: 12\n",
		},
		{
			name:    "negative delay",
			content: "archive:\n  network_delay: -1s\n",
		},
		{
			name:    "zero chunk size",
			content: "archive:\n  chunk_size: 0\n",
		},
		{
			name:    "unknown log level",
			content: "log:\n  level: verbose\n",
		},
		{
			name:    "unknown log format",
			content: "log:\n  format: xml\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			path := writeConfig(t, "config.yaml", tt.content)

			_, err := config.Load([]string{path}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validate config")
		})
	}
}

func TestLoad_WithCORS(t *testing.T) {
	t.Chdir(t.TempDir())

	path := writeConfig(t, "config.yaml", `
cors:
  enabled: true
  allowed_origins:
    - https://example.com
  allowed_methods:
    - GET
  max_age: 600
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"https://example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"GET"}, cfg.CORS.AllowedMethods)
	assert.Equal(t, []string{"Content-Disposition"}, cfg.CORS.ExposedHeaders)
	assert.Equal(t, 600, cfg.CORS.MaxAge)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ZIPSTREAM_SERVER_PORT", "9090")
	t.Setenv("ZIPSTREAM_COMPRESSOR_COMMAND", "zip -r -0 - .")
	t.Setenv("ZIPSTREAM_LOG_LEVEL", "warn")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, compressor.Command{"zip", "-r", "-0", "-", "."}, cfg.Compressor.Command)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_ListEnvironmentVariablesAreCommaSeparated(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ZIPSTREAM_CORS_ENABLED", "true")
	t.Setenv("ZIPSTREAM_CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("ZIPSTREAM_CORS_ALLOWED_HEADERS", "X-Request-ID")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"X-Request-ID"}, cfg.CORS.AllowedHeaders)
	assert.Equal(t, compressor.DefaultCommand, cfg.Compressor.Command)
}

func TestLoad_CommandFromConfigFileList(t *testing.T) {
	t.Chdir(t.TempDir())

	path := writeConfig(t, "config.yaml", `
compressor:
  command:
    - zip
    - -r
    - -q
    - "-"
    - .
`)

	cfg, err := config.Load([]string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, compressor.Command{"zip", "-r", "-q", "-", "."}, cfg.Compressor.Command)
}

func TestLoad_LegacyEnvironmentVariables(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NETWORK_DELAY", "2")
	t.Setenv("ARCHIVE_NAME", "holiday.zip")
	t.Setenv("PHOTOS_DIR", "/data/photos")
	t.Setenv("ENABLE_LOGGING", "false")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Archive.NetworkDelay)
	assert.Equal(t, "holiday.zip", cfg.Archive.Name)
	assert.Equal(t, "/data/photos", cfg.Archive.Root)
	assert.False(t, cfg.Log.Enabled)
}

func TestLoad_PrefixedEnvironmentWinsOverLegacy(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ARCHIVE_NAME", "legacy.zip")
	t.Setenv("ZIPSTREAM_ARCHIVE_NAME", "prefixed.zip")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "prefixed.zip", cfg.Archive.Name)
}

func TestLoad_NetworkDelayFormats(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{value: "0", want: 0},
		{value: "1", want: time.Second},
		{value: "0.5", want: 500 * time.Millisecond},
		{value: "1500ms", want: 1500 * time.Millisecond},
		{value: "2s", want: 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("NETWORK_DELAY", tt.value)

			cfg, err := config.Load(nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Archive.NetworkDelay)
		})
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// Register restoration, then make sure the variable starts unset.
	t.Setenv("ARCHIVE_NAME", "")
	require.NoError(t, os.Unsetenv("ARCHIVE_NAME"))
	t.Setenv("PHOTOS_DIR", "/from/environment")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("ARCHIVE_NAME=dotenv.zip\nPHOTOS_DIR=/from/dotenv\n"), 0o644))

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "dotenv.zip", cfg.Archive.Name)
	assert.Equal(t, "/from/environment", cfg.Archive.Root, "the real environment wins over .env")
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ZIPSTREAM_SERVER_PORT", "9090")

	path := writeConfig(t, "config.yaml", "server:\n  port: 9000\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 8080, "")
	flags.String("root", "", "")
	flags.Duration("network-delay", 0, "")
	require.NoError(t, flags.Set("port", "7000"))
	require.NoError(t, flags.Set("network-delay", "3s"))

	cfg, err := config.Load([]string{path}, flags)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Archive.NetworkDelay)
	assert.Equal(t, "test_photos", cfg.Archive.Root, "unset flags do not override defaults")
}

func TestLoad_DefaultConfigFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("archive:\n  name: cwd.zip\n"), 0o644))

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "cwd.zip", cfg.Archive.Name)
}

func TestArchiveConfig_Stream(t *testing.T) {
	a := config.ArchiveConfig{
		Root:         "/srv/photos",
		Name:         "photos.zip",
		NetworkDelay: time.Second,
		ChunkSize:    1024,
	}

	sc := a.Stream()
	assert.Equal(t, "/srv/photos", sc.RootDir)
	assert.Equal(t, "photos.zip", sc.ArchiveName)
	assert.Equal(t, time.Second, sc.NetworkDelay)
	assert.Equal(t, 1024, sc.ChunkSize)
}

func TestFromContext_Missing(t *testing.T) {
	_, err := config.FromContext(context.Background())
	assert.Error(t, err)
}
