package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates a test from keys set in the developer's shell.
func clearEnv(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "API_KEY", "SLIDECHECK_AI_API_KEY", "SLIDECHECK_AI_PROVIDER"} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLIDECHECK_AI_PROVIDER", "mock")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, int64(50), cfg.Server.MaxUploadMB)
	assert.Equal(t, "./storage/app.db", cfg.Storage.DBPath)
	assert.Equal(t, ProviderMock, cfg.AI.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, 5*time.Minute, cfg.AI.Timeout)
	assert.InDelta(t, 0.2, cfg.AI.InitialTemperature, 1e-6)
	assert.InDelta(t, 0.1, cfg.AI.LegalTemperature, 1e-6)
	assert.True(t, cfg.Rules.Watch)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
server:
  addr: ":9000"
  cors_origins: ["https://review.example.com"]
ai:
  provider: gemini
  api_key: from-file
  timeout: 30s
log:
  level: debug
`), 0o644))
	t.Setenv("SLIDECHECK_SERVER_ADDR", ":9100")

	cfg, err := Load(NewViper(), p)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr, "env overrides file")
	assert.Equal(t, []string{"https://review.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "from-file", cfg.AI.APIKey)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_APIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "legacy-key")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.AI.APIKey)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("GEMINI_API_KEY=dotenv-key\n"), 0o644))
	// godotenv does not override variables that are already set, even empty.
	os.Unsetenv("GEMINI_API_KEY")
	t.Cleanup(func() { os.Unsetenv("GEMINI_API_KEY") })

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.AI.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(NewViper(), "")
	assert.ErrorContains(t, err, "ai.api_key is required")

	_, err = Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config")

	t.Setenv("SLIDECHECK_AI_PROVIDER", "openai")
	_, err = Load(NewViper(), "")
	assert.ErrorContains(t, err, "unknown ai.provider")
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Server: ServerConfig{MaxUploadMB: 1},
		AI:     AIConfig{Provider: ProviderMock},
		Log:    LogConfig{Level: "loud"},
	}
	assert.ErrorContains(t, cfg.Validate(), "log.level")

	cfg.Log.Level = "warn"
	assert.NoError(t, cfg.Validate())

	cfg.Server.MaxUploadMB = 0
	assert.ErrorContains(t, cfg.Validate(), "max_upload_mb")
}
