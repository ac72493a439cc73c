package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "rulebook.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "./blobs", cfg.Blob.Root)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "https://api.perplexity.ai", cfg.Perplexity.BaseURL)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "gemini-embedding-001", cfg.Gemini.EmbedModel)
	assert.Equal(t, "local", cfg.OCR.Provider)
	assert.Equal(t, "mistral-ocr-latest", cfg.OCR.MistralModel)
	assert.False(t, cfg.Jina.Enabled)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "chess.com", cfg.Discovery.SearchDomain)
	assert.Equal(t, []string{"india"}, cfg.Discovery.ExcludeTokens)
	assert.Equal(t, []string{"discord.gg", "discord.com/invite"}, cfg.Discovery.PlatformTokens)
	assert.Equal(t, 4, cfg.Discovery.Concurrency)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/rulebook
log:
  level: debug
  format: console
server:
  port: 9090
discovery:
  exclude_tokens: [india, pakistan]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"india", "pakistan"}, cfg.Discovery.ExcludeTokens)
	// Defaults still apply for unset values
	assert.Equal(t, 4, cfg.Discovery.Concurrency)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RULEBOOK_STORE_DRIVER", "postgres")
	t.Setenv("RULEBOOK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("RULEBOOK_SERVER_PORT", "3000")
	t.Setenv("RULEBOOK_PERPLEXITY_KEY", "pplx-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "pplx-key", cfg.Perplexity.Key)
}

func TestLoadSecretsFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("RULEBOOK_PERPLEXITY_KEY", "pplx-key")
	t.Setenv("RULEBOOK_ANTHROPIC_KEY", "sk-ant")
	t.Setenv("RULEBOOK_GEMINI_KEY", "gem-key")
	t.Setenv("RULEBOOK_JINA_KEY", "jina-key")
	t.Setenv("RULEBOOK_OCR_MISTRAL_API_KEY", "mistral-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pplx-key", cfg.Perplexity.Key)
	assert.Equal(t, "sk-ant", cfg.Anthropic.Key)
	assert.Equal(t, "gem-key", cfg.Gemini.Key)
	assert.Equal(t, "jina-key", cfg.Jina.Key)
	assert.Equal(t, "mistral-key", cfg.OCR.MistralKey)
	assert.NoError(t, cfg.Validate("search"))
	assert.NoError(t, cfg.Validate("extract"))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "rulebook.db"
	cfg.Blob.Root = "./blobs"
	cfg.LLM.Provider = "anthropic"
	cfg.Discovery.Concurrency = 4
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateSearch(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "perplexity.key is required")

	cfg.Perplexity.Key = "pplx"
	assert.NoError(t, cfg.Validate("search"))
}

func TestValidateExtract_Providers(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant"
	assert.NoError(t, cfg.Validate("extract"))

	cfg.LLM.Provider = "gemini"
	err = cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.key is required")

	cfg.LLM.Provider = "openai"
	err = cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider must be anthropic or gemini")
}

func TestValidateStore_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateArchive_NoBlobRoot(t *testing.T) {
	cfg := validDefaults()
	cfg.Blob.Root = ""

	err := cfg.Validate("archive")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blob.root is required")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Discovery.Concurrency = 0
	err := cfg.Validate("store")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "discovery.concurrency must be between 1 and 32")

	cfg.Discovery.Concurrency = 33
	assert.Error(t, cfg.Validate("store"))

	cfg.Discovery.Concurrency = 32
	assert.NoError(t, cfg.Validate("store"))
}
