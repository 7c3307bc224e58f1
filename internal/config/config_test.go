package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Temp dir so no config.yaml or .env is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "diretoria.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "10838653000106", cfg.Plan.OrgCNPJ)
	assert.Equal(t, "2026", cfg.Plan.DefaultYear)
	assert.Equal(t, 100, cfg.Plan.PageSize)
	assert.Equal(t, "https://pncp.gov.br/api/pncp/v1", cfg.Plan.RegistryURL)
	assert.Equal(t, "12", cfg.Plan.SequenceFor("2026"))
	assert.Equal(t, "15", cfg.Plan.SequenceFor("2024"))
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.InDelta(t, 2.0, cfg.Retry.Multiplier, 0.001)
	assert.Equal(t, 5, cfg.Circuit.FailureThreshold)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/pca
log:
  level: debug
  format: console
server:
  port: 9090
plan:
  sequences:
    "2025": "7"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/pca", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "7", cfg.Plan.SequenceFor("2025"))
	// Defaults still apply for unset values
	assert.Equal(t, 100, cfg.Plan.PageSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DIRETORIA_STORE_DRIVER", "postgres")
	t.Setenv("DIRETORIA_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DIRETORIA_SERVER_PORT=3000\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("DIRETORIA_SERVER_PORT") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestSequenceFor_FallsBackToDefault(t *testing.T) {
	p := PlanConfig{Sequences: map[string]string{"2026": "12"}, DefaultSequence: "12"}
	assert.Equal(t, "12", p.SequenceFor("2030"))

	p.Sequences["2027"] = ""
	assert.Equal(t, "12", p.SequenceFor("2027"))
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "test.db"
	cfg.Plan.OrgCNPJ = "10838653000106"
	cfg.Plan.RegistryURL = "https://pncp.gov.br/api/pncp/v1"
	cfg.Plan.PageSize = 100
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_AllPresent(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("sync"))
	assert.NoError(t, cfg.Validate("serve"))
	assert.NoError(t, cfg.Validate("store"))
}

func TestValidate_MissingFields(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate("sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "plan.org_cnpj is required")
	assert.Contains(t, err.Error(), "plan.page_size must be positive")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	// Port only matters for serve.
	assert.NoError(t, cfg.Validate("sync"))
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
