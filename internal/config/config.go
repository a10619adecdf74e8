package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gookit/validate"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	API        API        `yaml:"api"`
	RateLimit  RateLimit  `yaml:"rate_limit"`
	Timeline   Timeline   `yaml:"timeline"`
	Generation Generation `yaml:"generation"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

// API configures the remote profile/timeline endpoints.
type API struct {
	BaseURL     string        `yaml:"base_url" validate:"required|fullUrl"`
	TokenEnv    string        `yaml:"token_env"`
	Timeout     time.Duration `yaml:"timeout" validate:"min:1"`
	MaxAttempts int           `yaml:"max_attempts" validate:"min:1"`
	BackoffBase time.Duration `yaml:"backoff_base" validate:"min:1"`
}

// RateLimit bounds outbound API calls across all concurrent runs.
type RateLimit struct {
	PerMinute int `yaml:"per_minute" validate:"min:1|max:120"`
}

type Timeline struct {
	Pages     int           `yaml:"pages" validate:"min:1"`
	PageDelay time.Duration `yaml:"page_delay"`
}

type Generation struct {
	Provider    string        `yaml:"provider" validate:"in:ollama,openai"`
	Model       string        `yaml:"model"`
	OllamaURL   string        `yaml:"ollama_url"`
	OpenAIModel string        `yaml:"openai_model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	MaxAttempts int           `yaml:"max_attempts" validate:"min:1"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port" validate:"min:1|max:65535"`
}

type Logging struct {
	Level string `yaml:"level" validate:"in:trace,debug,info,warn,error"`
}

// ConfigDir returns the XDG config directory for cardforge.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "cardforge")
}

// DataDir returns the XDG data directory for cardforge.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "cardforge")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/cardforge/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'cardforge init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults and validating.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		API: API{
			BaseURL:     "https://api.profilewire.dev/v1",
			TokenEnv:    "PROFILEWIRE_TOKEN",
			Timeout:     15 * time.Second,
			MaxAttempts: 3,
			BackoffBase: 500 * time.Millisecond,
		},
		RateLimit: RateLimit{PerMinute: 100},
		Timeline: Timeline{
			Pages:     3,
			PageDelay: 250 * time.Millisecond,
		},
		Generation: Generation{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxAttempts: 3,
			RetryDelay:  2 * time.Second,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	v := validate.Struct(cfg)
	if !v.Validate() {
		return nil, fmt.Errorf("invalid config: %s", v.Errors.One())
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// APIToken reads the bearer token from the configured environment variable.
func (c *Config) APIToken() string {
	if c.API.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.API.TokenEnv)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
