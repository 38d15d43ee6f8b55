// Package config loads server configuration from a YAML file merged with
// AGENTFORGE_* environment variables. Missing files fall back to defaults so
// a bare binary still starts.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Routing   RoutingConfig   `mapstructure:"routing" yaml:"routing"`
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" yaml:"retrieval"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`

	// AssistantsFile points at a YAML roster overriding the builtin profiles.
	AssistantsFile string `mapstructure:"assistants_file" yaml:"assistants_file"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr             string        `mapstructure:"addr" yaml:"addr"`
	PreStreamTimeout time.Duration `mapstructure:"pre_stream_timeout" yaml:"pre_stream_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	RatePerSecond    float64       `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	RateBurst        int           `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// RoutingConfig tunes the classifier and router.
type RoutingConfig struct {
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`

	// SemanticModel enables LLM-backed classification when non-empty.
	SemanticModel string `mapstructure:"semantic_model" yaml:"semantic_model"`
}

// ProvidersConfig names the enabled model providers and their credentials.
type ProvidersConfig struct {
	Default   string         `mapstructure:"default" yaml:"default"`
	Anthropic ProviderConfig `mapstructure:"anthropic" yaml:"anthropic"`
	OpenAI    ProviderConfig `mapstructure:"openai" yaml:"openai"`
}

// ProviderConfig is one provider's settings. The API key is usually supplied
// via environment rather than on disk.
type ProviderConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" yaml:"model"`
}

// RetrievalConfig points at the snippet store.
type RetrievalConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
	Limit  int    `mapstructure:"limit" yaml:"limit"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             ":8080",
			PreStreamTimeout: 30 * time.Second,
			IdleTimeout:      60 * time.Second,
			RatePerSecond:    10,
			RateBurst:        20,
		},
		Routing: RoutingConfig{
			Threshold: 0.5,
		},
		Providers: ProvidersConfig{
			Default: "anthropic",
			Anthropic: ProviderConfig{
				Enabled: true,
				Model:   "claude-opus-4-6",
			},
			OpenAI: ProviderConfig{
				Model: "gpt-5.2",
			},
		},
		Retrieval: RetrievalConfig{
			Limit: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, merged with AGENTFORGE_* environment
// variables. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("AGENTFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	bindDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, missing := err.(viper.ConfigFileNotFoundError); !missing && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindDefaults registers every key with viper so AutomaticEnv can override
// values that never appear in the file.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.pre_stream_timeout", cfg.Server.PreStreamTimeout)
	v.SetDefault("server.idle_timeout", cfg.Server.IdleTimeout)
	v.SetDefault("server.rate_per_second", cfg.Server.RatePerSecond)
	v.SetDefault("server.rate_burst", cfg.Server.RateBurst)
	v.SetDefault("routing.threshold", cfg.Routing.Threshold)
	v.SetDefault("routing.semantic_model", cfg.Routing.SemanticModel)
	v.SetDefault("providers.default", cfg.Providers.Default)
	v.SetDefault("providers.anthropic.enabled", cfg.Providers.Anthropic.Enabled)
	v.SetDefault("providers.anthropic.api_key", cfg.Providers.Anthropic.APIKey)
	v.SetDefault("providers.anthropic.model", cfg.Providers.Anthropic.Model)
	v.SetDefault("providers.openai.enabled", cfg.Providers.OpenAI.Enabled)
	v.SetDefault("providers.openai.api_key", cfg.Providers.OpenAI.APIKey)
	v.SetDefault("providers.openai.model", cfg.Providers.OpenAI.Model)
	v.SetDefault("retrieval.db_path", cfg.Retrieval.DBPath)
	v.SetDefault("retrieval.limit", cfg.Retrieval.Limit)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.pretty", cfg.Logging.Pretty)
	v.SetDefault("assistants_file", cfg.AssistantsFile)
}

func (c *Config) validate() error {
	if c.Routing.Threshold < 0 || c.Routing.Threshold > 1 {
		return fmt.Errorf("routing.threshold %.2f out of range [0,1]", c.Routing.Threshold)
	}
	if !c.Providers.Anthropic.Enabled && !c.Providers.OpenAI.Enabled {
		return fmt.Errorf("no provider enabled")
	}
	return nil
}
