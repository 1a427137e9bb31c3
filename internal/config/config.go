package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Listen  string `toml:"listen"`
	BaseURL string `toml:"base_url"`
}

type ModelConfig struct {
	Provider    string  `toml:"provider_url"`
	Name        string  `toml:"name"`
	APIKeyEnv   string  `toml:"api_key_env"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	TimeoutSecs int     `toml:"timeout_seconds"`
	MaxRounds   int     `toml:"max_tool_rounds"`
}

type SessionConfig struct {
	Backend    string `toml:"backend"` // "memory" or "sqlite"
	SQLitePath string `toml:"sqlite_path"`
}

type Config struct {
	Server     ServerConfig  `toml:"server"`
	Model      ModelConfig   `toml:"model"`
	Session    SessionConfig `toml:"session"`
	OutputsDir string        `toml:"outputs_dir"`
	DataDir    string        `toml:"data_dir"`
}

// DefaultConfig returns a configuration suitable for local development
// against the DeepSeek chat-completions endpoint.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:  ":8000",
			BaseURL: "http://localhost:8000",
		},
		Model: ModelConfig{
			Provider:    "https://api.deepseek.com/v1",
			Name:        "deepseek-chat",
			APIKeyEnv:   "DEEPSEEK_API_KEY",
			Temperature: 0.7,
			MaxTokens:   4096,
			TimeoutSecs: 120,
			MaxRounds:   8,
		},
		Session: SessionConfig{
			Backend: "memory",
		},
		OutputsDir: "outputs",
		DataDir:    "data",
	}
}

// ValidateConfig checks if all required configuration fields are properly set
func ValidateConfig(cfg *Config) error {
	var missingFields []string

	if cfg.Server.Listen == "" {
		missingFields = append(missingFields, "server.listen")
	}
	if cfg.Model.Provider == "" {
		missingFields = append(missingFields, "model.provider_url")
	}
	if cfg.Model.Name == "" {
		missingFields = append(missingFields, "model.name")
	}
	if cfg.OutputsDir == "" {
		missingFields = append(missingFields, "outputs_dir")
	}

	if cfg.Server.Listen != "" && !strings.Contains(cfg.Server.Listen, ":") {
		return fmt.Errorf("server.listen does not contain a port (format should be host:port or :port)")
	}

	if cfg.Session.Backend != "" && cfg.Session.Backend != "memory" && cfg.Session.Backend != "sqlite" {
		return fmt.Errorf("session.backend must be \"memory\" or \"sqlite\", got %q", cfg.Session.Backend)
	}
	if cfg.Session.Backend == "sqlite" && cfg.Session.SQLitePath == "" {
		missingFields = append(missingFields, "session.sqlite_path")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	return nil
}

// LoadConfig reads a TOML config file, falling back to defaults for
// fields the file leaves unset.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load resolves the config path (flag value, CONFIG_PATH env, then the
// default) and loads it. A missing file at the default path is not an
// error; defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "geoagent.toml"
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg := DefaultConfig()
			if err := ValidateConfig(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
	}

	return LoadConfig(path)
}

// APIKey reads the model API key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.Model.APIKeyEnv)
}
