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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Voyage    VoyageConfig    `yaml:"voyage" mapstructure:"voyage"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds the vision model credentials.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	VisionModel string `yaml:"vision_model" mapstructure:"vision_model"`
}

// VoyageConfig holds the embedding endpoint settings.
type VoyageConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	Model             string `yaml:"model" mapstructure:"model"`
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// PipelineConfig holds the classification tuning knobs.
type PipelineConfig struct {
	ScoreThreshold      float64 `yaml:"score_threshold" mapstructure:"score_threshold"`
	Margin              float64 `yaml:"margin" mapstructure:"margin"`
	TopK                int     `yaml:"top_k" mapstructure:"top_k"`
	ActivationCharacter float64 `yaml:"activation_character" mapstructure:"activation_character"`
	ActivationLocation  float64 `yaml:"activation_location" mapstructure:"activation_location"`
	ActivationScene     float64 `yaml:"activation_scene" mapstructure:"activation_scene"`
	PriorBonus          float64 `yaml:"prior_bonus" mapstructure:"prior_bonus"`
}

// ExtractConfig configures the schema-validation retry loop.
type ExtractConfig struct {
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("ASSET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "asset-cli.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.vision_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("voyage.model", "voyage-3.5")
	v.SetDefault("voyage.base_url", "https://api.voyageai.com/v1")
	v.SetDefault("voyage.requests_per_minute", 60)
	v.SetDefault("pipeline.score_threshold", 0.42)
	v.SetDefault("pipeline.margin", 0.08)
	v.SetDefault("pipeline.top_k", 3)
	v.SetDefault("pipeline.activation_character", 0.30)
	v.SetDefault("pipeline.activation_location", 0.30)
	v.SetDefault("pipeline.activation_scene", 0.25)
	v.SetDefault("pipeline.prior_bonus", 0.15)
	v.SetDefault("extract.max_retries", 2)

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

// Validate checks that the configuration required for the given mode is
// present and within bounds. Collects every problem before failing.
func (c *Config) Validate(mode string) error {
	var problems []string

	needsDB := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres driver")
			}
		case "sqlite":
			if c.Store.SQLitePath == "" {
				problems = append(problems, "store.sqlite_path is required for the sqlite driver")
			}
		default:
			problems = append(problems, "store.driver must be postgres or sqlite")
		}
	}
	needsModels := func() {
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Voyage.Key == "" {
			problems = append(problems, "voyage.key is required")
		}
	}
	needsPipeline := func() {
		for _, p := range []struct {
			name  string
			value float64
		}{
			{"pipeline.score_threshold", c.Pipeline.ScoreThreshold},
			{"pipeline.margin", c.Pipeline.Margin},
			{"pipeline.activation_character", c.Pipeline.ActivationCharacter},
			{"pipeline.activation_location", c.Pipeline.ActivationLocation},
			{"pipeline.activation_scene", c.Pipeline.ActivationScene},
			{"pipeline.prior_bonus", c.Pipeline.PriorBonus},
		} {
			if p.value < 0 || p.value > 1 {
				problems = append(problems, p.name+" must be between 0 and 1")
			}
		}
		if c.Pipeline.TopK < 1 || c.Pipeline.TopK > 20 {
			problems = append(problems, "pipeline.top_k must be between 1 and 20")
		}
		if c.Extract.MaxRetries < 0 || c.Extract.MaxRetries > 10 {
			problems = append(problems, "extract.max_retries must be between 0 and 10")
		}
	}

	switch mode {
	case "prepass":
		needsDB()
		needsPipeline()
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
	case "classify":
		needsDB()
		needsModels()
		needsPipeline()
	case "serve":
		needsDB()
		needsModels()
		needsPipeline()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "migrate", "audit", "entity-types":
		needsDB()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
