package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/poll-lab/pollboard/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	CORSOrigins    []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// EngineConfig configures the reconciliation engine policy knobs.
type EngineConfig struct {
	// ArticleCutoff is the instant before which article-sourced rows are
	// hidden, RFC 3339. Empty means the built-in default.
	ArticleCutoff string `yaml:"article_cutoff" mapstructure:"article_cutoff"`

	// CycleYear is the electoral cycle being served; titles marked with
	// an earlier cycle are excluded as legacy.
	CycleYear int `yaml:"cycle_year" mapstructure:"cycle_year"`

	// AggregatorLabels are pollster labels denoting compiled article
	// sources. Empty means the built-in default set.
	AggregatorLabels []string `yaml:"aggregator_labels" mapstructure:"aggregator_labels"`

	// LexiconFile optionally points to a YAML overlay extending the
	// built-in noise lexicons.
	LexiconFile string `yaml:"lexicon_file" mapstructure:"lexicon_file"`
}

// CutoffTime parses the configured article cutoff. An empty setting
// returns the zero time, which downstream maps to the built-in default.
func (e EngineConfig) CutoffTime() (time.Time, error) {
	if e.ArticleCutoff == "" {
		return time.Time{}, nil
	}
	t := model.ParseInstant(e.ArticleCutoff)
	if t == nil {
		return time.Time{}, eris.Errorf("config: invalid engine.article_cutoff %q", e.ArticleCutoff)
	}
	return *t, nil
}

// Validate checks that the configuration is usable for the given mode.
// Modes: "serve" (API server), "ingest" (feed ingestion), "reconcile"
// (offline selection run).
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve", "ingest":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "reconcile":
		// Offline mode reads from files; no store required.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}
	if c.Store.MaxConns < 1 {
		problems = append(problems, "store.max_conns must be >= 1")
	}
	if c.Engine.CycleYear < 2000 {
		problems = append(problems, "engine.cycle_year must be a four-digit year")
	}
	if _, err := c.Engine.CutoffTime(); err != nil {
		problems = append(problems, "engine.article_cutoff must be a parseable timestamp")
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		problems = append(problems, "server rate limit values must be >= 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for mode %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("POLLBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("engine.article_cutoff", "")
	v.SetDefault("engine.cycle_year", 2026)
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
