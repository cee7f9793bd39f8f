// Package config loads the application configuration once at startup.
// The resulting Config is immutable for the life of the process;
// nothing reads environment variables after Load returns.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither file nor environment sets a value.
const (
	DefaultProvider      = "anthropic"
	DefaultOutputFormat  = "plaintext"
	DefaultRetryBudget   = 4
	DefaultUpstreamLimit = 450 * time.Second
	DefaultListenAddr    = ":8080"
)

// Config holds the application configuration.
type Config struct {
	Provider string
	Model    string

	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	// UpstreamEndpoint and UpstreamAPIKey configure the generic
	// question/answer provider.
	UpstreamEndpoint string
	UpstreamAPIKey   string

	// Timeout bounds each upstream call.
	Timeout time.Duration
	// RetryBudget is the number of correction re-prompts per request.
	RetryBudget int
	// DefaultFormat is used when a request names no output format.
	DefaultFormat string
	// FormatsFile optionally overlays extra format definitions.
	FormatsFile string
	// LearnDir is where interaction records land; empty disables
	// recording.
	LearnDir string

	ListenAddr string
	ConfigDir  string
}

// FileConfig represents the structure of ~/.improvellm/config.yaml
type FileConfig struct {
	APIKeys  APIKeysConfig  `yaml:"api_keys"`
	Provider string         `yaml:"provider"`
	Model    string         `yaml:"model"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Serve    ServeConfig    `yaml:"serve"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
	Upstream  string `yaml:"upstream"`
}

// UpstreamConfig holds the generic provider endpoint.
type UpstreamConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// PipelineConfig holds pipeline tuning from file.
type PipelineConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RetryBudget    *int   `yaml:"retry_budget"`
	DefaultFormat  string `yaml:"default_format"`
	FormatsFile    string `yaml:"formats_file"`
	LearnDir       string `yaml:"learn_dir"`
}

// ServeConfig holds HTTP server settings from file.
type ServeConfig struct {
	Listen string `yaml:"listen"`
}

// Load reads configuration from config files and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return loadFrom(configDir, filepath.Join(configDir, "config.yaml"))
}

// LoadFile reads configuration from a specific file path, with
// environment variables still taking precedence.
func LoadFile(path string) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return loadFrom(configDir, path)
}

func loadFrom(configDir, filePath string) (*Config, error) {
	fileConfig := loadFileConfig(filePath)

	cfg := &Config{
		Provider:         getEnvOrDefault("IMPROVELLM_PROVIDER", fileConfig.Provider),
		Model:            getEnvOrDefault("IMPROVELLM_MODEL", fileConfig.Model),
		AnthropicAPIKey:  getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:     getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:     getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		UpstreamEndpoint: getEnvOrDefault("IMPROVELLM_UPSTREAM_ENDPOINT", fileConfig.Upstream.Endpoint),
		UpstreamAPIKey:   getEnvOrDefault("IMPROVELLM_UPSTREAM_API_KEY", fileConfig.APIKeys.Upstream),
		DefaultFormat:    getEnvOrDefault("IMPROVELLM_DEFAULT_FORMAT", fileConfig.Pipeline.DefaultFormat),
		FormatsFile:      getEnvOrDefault("IMPROVELLM_FORMATS_FILE", fileConfig.Pipeline.FormatsFile),
		LearnDir:         getEnvOrDefault("IMPROVELLM_LEARN_DIR", fileConfig.Pipeline.LearnDir),
		ListenAddr:       getEnvOrDefault("IMPROVELLM_LISTEN", fileConfig.Serve.Listen),
		ConfigDir:        configDir,
	}

	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = DefaultOutputFormat
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}

	cfg.Timeout = DefaultUpstreamLimit
	if fileConfig.Pipeline.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(fileConfig.Pipeline.TimeoutSeconds) * time.Second
	}
	if raw := os.Getenv("IMPROVELLM_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid IMPROVELLM_TIMEOUT_SECONDS %q", raw)
		}
		cfg.Timeout = time.Duration(seconds) * time.Second
	}

	cfg.RetryBudget = DefaultRetryBudget
	if fileConfig.Pipeline.RetryBudget != nil && *fileConfig.Pipeline.RetryBudget >= 0 {
		cfg.RetryBudget = *fileConfig.Pipeline.RetryBudget
	}
	if raw := os.Getenv("IMPROVELLM_RETRY_BUDGET"); raw != "" {
		budget, err := strconv.Atoi(raw)
		if err != nil || budget < 0 {
			return nil, fmt.Errorf("invalid IMPROVELLM_RETRY_BUDGET %q", raw)
		}
		cfg.RetryBudget = budget
	}

	return cfg, nil
}

// APIKey returns the key configured for the given provider.
func (c *Config) APIKey(provider string) string {
	switch provider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "google":
		return c.GoogleAPIKey
	case "upstream":
		return c.UpstreamAPIKey
	default:
		return ""
	}
}

// HasProvider returns true if the given provider is usable with the
// current configuration.
func (c *Config) HasProvider(name string) bool {
	switch name {
	case "anthropic", "openai", "google":
		return c.APIKey(name) != ""
	case "upstream":
		return c.UpstreamEndpoint != ""
	case "mock":
		return true
	default:
		return false
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // Return empty config if file doesn't exist
	}

	_ = yaml.Unmarshal(data, cfg) // Ignore parse errors, use defaults
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".improvellm")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
