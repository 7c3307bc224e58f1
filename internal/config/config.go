package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Plan    PlanConfig    `yaml:"plan" mapstructure:"plan"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PlanConfig configures the plan registry, the execution registry and the local snapshot.
type PlanConfig struct {
	OrgCNPJ string `yaml:"org_cnpj" mapstructure:"org_cnpj"`
	// Sequences maps a plan year to the organization's plan sequence number for that year.
	Sequences       map[string]string `yaml:"sequences" mapstructure:"sequences"`
	DefaultSequence string            `yaml:"default_sequence" mapstructure:"default_sequence"`
	DefaultYear     string            `yaml:"default_year" mapstructure:"default_year"`
	PageSize        int               `yaml:"page_size" mapstructure:"page_size"`
	RegistryURL     string            `yaml:"registry_url" mapstructure:"registry_url"`
	ExecutionURL    string            `yaml:"execution_url" mapstructure:"execution_url"`
	SnapshotSource  string            `yaml:"snapshot_source" mapstructure:"snapshot_source"`
	UserAgent       string            `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs     int               `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SequenceFor returns the plan sequence configured for year, or the default sequence.
func (p PlanConfig) SequenceFor(year string) string {
	if seq, ok := p.Sequences[year]; ok && seq != "" {
		return seq
	}
	return p.DefaultSequence
}

// RetryConfig configures retries against the remote registries.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig configures the per-registry circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, the config file and the environment.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DIRETORIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "diretoria.db")
	v.SetDefault("plan.org_cnpj", "10838653000106")
	v.SetDefault("plan.sequences", map[string]string{
		"2022": "20",
		"2023": "14",
		"2024": "15",
		"2025": "12",
		"2026": "12",
	})
	v.SetDefault("plan.default_sequence", "12")
	v.SetDefault("plan.default_year", "2026")
	v.SetDefault("plan.page_size", 100)
	v.SetDefault("plan.registry_url", "https://pncp.gov.br/api/pncp/v1")
	v.SetDefault("plan.execution_url", "")
	v.SetDefault("plan.snapshot_source", "data")
	v.SetDefault("plan.user_agent", "diretoria-adm/1.0")
	v.SetDefault("plan.timeout_secs", 30)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is one of "sync", "serve" or "store".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	switch mode {
	case "sync", "serve":
		if c.Plan.OrgCNPJ == "" {
			problems = append(problems, "plan.org_cnpj is required")
		}
		if c.Plan.RegistryURL == "" {
			problems = append(problems, "plan.registry_url is required")
		}
		if c.Plan.PageSize <= 0 {
			problems = append(problems, "plan.page_size must be positive")
		}
	}
	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
