package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	testChdir(t, t.TempDir())
	t.Setenv(EnvAPIURL, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	testChdir(t, t.TempDir())
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvLogLevel, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://tagger.example.com
timeout: 5s
logging:
  level: debug
output:
  format: json
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://tagger.example.com", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 5*time.Second, cfg.ToastTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "/api/", cfg.APIRoot)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	testChdir(t, t.TempDir())
	t.Setenv(EnvAPIURL, "http://env.example:9000")
	t.Setenv(EnvLogLevel, "error")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://file.example\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example:9000", cfg.BaseURL)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	t.Setenv(EnvSessionFile, "")
	require.NoError(t, os.Unsetenv(EnvSessionFile))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvSessionFile+"=/tmp/doctag-session.json\n"), 0o600))

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/doctag-session.json", cfg.SessionFile)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{EnvAPIURL: "http://x", EnvSessionFile: "/s.json", EnvLogLevel: ""}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "http://x", cfg.BaseURL)
	assert.Equal(t, "/s.json", cfg.SessionFile)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.BaseURL = "localhost:8000"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Timeout = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("logging.level", "debug"))
	require.NoError(t, cfg.Set("timeout", "10s"))
	require.NoError(t, cfg.Set("output.no_color", "true"))

	v, err := cfg.Get("logging.level")
	require.NoError(t, err)
	assert.Equal(t, "debug", v)

	v, err = cfg.Get("timeout")
	require.NoError(t, err)
	assert.Equal(t, "10s", v)
	assert.True(t, cfg.Output.NoColor)

	assert.Error(t, cfg.Set("timeout", "soon"))
	assert.Error(t, cfg.Set("nope", "x"))
	_, err = cfg.Get("nope")
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.BaseURL = "https://tagger.example.com"
	require.NoError(t, cfg.Save(path))

	testChdir(t, t.TempDir())
	t.Setenv(EnvAPIURL, "")
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSessionPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	cfg := Default()
	p, err := cfg.SessionPath()
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.doctag/session.json", p)

	cfg.SessionFile = "~/custom.json"
	p, err = cfg.SessionPath()
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/custom.json", p)
}

func TestReadFile_IgnoresEnv(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://env.example:9000")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://file.example\n"), 0o600))

	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://file.example", cfg.BaseURL)
}
