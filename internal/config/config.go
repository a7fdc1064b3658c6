// Package config loads application configuration from file and
// environment and bootstraps the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
}

// AnalysisConfig carries the engine defaults; CLI flags override them
// per invocation.
type AnalysisConfig struct {
	Capacity int     `yaml:"capacity" mapstructure:"capacity"`
	Radius   float64 `yaml:"radius" mapstructure:"radius"`
	NameAttr string  `yaml:"name_attr" mapstructure:"name_attr"`
	PopAttr  string  `yaml:"pop_attr" mapstructure:"pop_attr"`
}

// SourcesConfig configures local handling of loaded datasets.
type SourcesConfig struct {
	// CacheDir is where remote downloads land; empty means a per-user
	// cache directory.
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
	// Encoding overrides attribute text decoding for shapefiles that
	// ship without a .cpg sidecar (IANA name, e.g. "windows-1252").
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
}

// PostgresConfig configures the PostGIS source backend.
type PostgresConfig struct {
	DSN            string `yaml:"dsn" mapstructure:"dsn"`
	GeometryColumn string `yaml:"geometry_column" mapstructure:"geometry_column"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Addr        string   `yaml:"addr" mapstructure:"addr"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// FetchConfig configures remote source downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("equimap")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EQUIMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("analysis.capacity", 2000)
	v.SetDefault("analysis.radius", 10.0)
	v.SetDefault("analysis.name_attr", "DIST_NAME")
	v.SetDefault("analysis.pop_attr", "TOTAL_POP")
	v.SetDefault("sources.cache_dir", "")
	v.SetDefault("sources.encoding", "")
	v.SetDefault("postgres.geometry_column", "geom")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_limit", 10.0)
	v.SetDefault("fetch.user_agent", "equimap/1.0")

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

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}
