// Package config provides configuration loading and validation for chaincheck.
//
// Values are layered, later layers overriding earlier ones:
//
//  1. Built-in defaults (Defaults)
//  2. Optional YAML file (--config, or chaincheck.yaml in the working directory)
//  3. .env file, which never overrides variables already present in the environment
//  4. CHAINCHECK_* environment variables
//  5. Command line flags, applied by the caller after Load returns
//
// Fields without an explicit value keep whatever the previous layer produced, so
// struct tags carry no envDefault values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"chaincheck/pkg/logx"
)

// EnvPrefix prefixes every environment variable read into Config.
const EnvPrefix = "CHAINCHECK_"

// DefaultConfigFile is probed when no --config path is given.
const DefaultConfigFile = "chaincheck.yaml"

// Config holds every tunable of a chaincheck run.
type Config struct {
	Provider       string   `yaml:"provider"        env:"PROVIDER"`
	Models         []string `yaml:"models"          env:"MODELS" envSeparator:","`
	BaseURL        string   `yaml:"base_url"        env:"BASE_URL"`
	OllamaHost     string   `yaml:"ollama_host"     env:"OLLAMA_HOST"`
	APIKeyEnv      string   `yaml:"api_key_env"     env:"API_KEY_ENV"`
	LogLevel       string   `yaml:"log_level"       env:"LOG_LEVEL"`
	MetricsFile    string   `yaml:"metrics_file"    env:"METRICS_FILE"`
	PushgatewayURL string   `yaml:"pushgateway_url" env:"PUSHGATEWAY_URL"`
	HistoryDB      string   `yaml:"history_db"      env:"HISTORY_DB"`
	Temperature    float32  `yaml:"temperature"     env:"TEMPERATURE"`
	MaxTokens      int      `yaml:"max_tokens"      env:"MAX_TOKENS"`
	LogJSON        bool     `yaml:"log_json"        env:"LOG_JSON"`
	VerifyModels   bool     `yaml:"verify_models"   env:"VERIFY_MODELS"`
	SkipAgents     bool     `yaml:"skip_agents"     env:"SKIP_AGENTS"`
}

// LoadOptions selects the files read by Load.
type LoadOptions struct {
	ConfigFile string // YAML file; empty probes DefaultConfigFile
	EnvFile    string // dotenv file; empty means ".env"
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Provider:    ProviderCohere,
		Temperature: 0.2,
		MaxTokens:   1024,
		LogLevel:    "info",
	}
}

// Load applies the default, file and environment layers.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Defaults()

	path := opts.ConfigFile
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := loadYAML(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	logx.NewLogger("config").Debug("loaded config: provider=%s models=%v", cfg.Provider, cfg.Models)
	return &cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if !IsKnownProvider(c.Provider) {
		return fmt.Errorf("unsupported provider %q (must be one of cohere, openai, anthropic, google, ollama)", c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %g", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	switch logx.Level(c.LogLevel) {
	case logx.LevelDebug, logx.LevelInfo, logx.LevelWarn, logx.LevelError:
	default:
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.LogLevel)
	}
	for _, m := range c.Models {
		if strings.TrimSpace(m) == "" {
			return errors.New("model list contains a blank entry")
		}
		if err := c.checkModelProvider(m); err != nil {
			return err
		}
	}
	return nil
}

// checkModelProvider rejects a model whose name belongs to another hosted provider.
// Unrecognized names pass, as does anything served by Ollama or a custom base URL,
// since those endpoints host arbitrary model names.
func (c *Config) checkModelProvider(model string) error {
	if c.Provider == ProviderOllama || c.BaseURL != "" {
		return nil
	}
	if owner, err := GetModelProvider(model); err == nil && owner != c.Provider {
		return fmt.Errorf("model %s belongs to provider %s, not %s", model, owner, c.Provider)
	}
	return nil
}

// Candidates returns the model preference order for the configured provider.
func (c *Config) Candidates() []string {
	if len(c.Models) > 0 {
		return append([]string(nil), c.Models...)
	}
	return append([]string(nil), DefaultModels[c.Provider]...)
}

// KeyEnv returns the name of the variable holding the credential.
// An empty result means the provider needs no credential.
func (c *Config) KeyEnv() string {
	if c.APIKeyEnv != "" {
		return c.APIKeyEnv
	}
	return ProviderKeyEnv[c.Provider]
}

// APIKey resolves the credential. An empty key is not an error here.
func (c *Config) APIKey() string {
	name := c.KeyEnv()
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// ResolvedOllamaHost returns the Ollama endpoint from config, OLLAMA_HOST, or the local default.
func (c *Config) ResolvedOllamaHost() string {
	if c.OllamaHost != "" {
		return c.OllamaHost
	}
	if host := os.Getenv(EnvOllamaHost); host != "" {
		return host
	}
	return "http://localhost:11434"
}
