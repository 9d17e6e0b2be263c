package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendLocal = "local"
	BackendCloud = "cloud"

	DefaultServer = "http://localhost:8000"
)

type Config struct {
	Backend       string `yaml:"backend,omitempty"`
	Server        string `yaml:"server,omitempty"`
	DefaultFilter string `yaml:"default_filter,omitempty"`
	AccessToken   string `yaml:"access_token,omitempty"`
	LogLevel      string `yaml:"log_level,omitempty"`
}

// Env holds the environment overrides applied on top of the config file.
type Env struct {
	Backend  string `env:"TODOS_BACKEND"`
	Server   string `env:"TODOS_SERVER"`
	LogLevel string `env:"TODOS_LOG_LEVEL"`
	// Secret signs tokens issued by the development server.
	Secret string `env:"TODOS_SECRET"`
}

// BackendName returns the configured backend, defaulting to local.
func (c *Config) BackendName() string {
	if c.Backend == "" {
		return BackendLocal
	}
	return c.Backend
}

// ServerURL returns the configured API base URL, defaulting to DefaultServer.
func (c *Config) ServerURL() string {
	if c.Server == "" {
		return DefaultServer
	}
	return c.Server
}

func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func Save(dataDir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	path := filepath.Join(dataDir, "config.yaml")
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	// The file may hold an access token.
	return os.WriteFile(path, data, 0600)
}

// LoadEnv reads dotenvPath if it exists and decodes TODOS_* variables.
func LoadEnv(dotenvPath string) (Env, error) {
	var env Env
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return env, fmt.Errorf("loading %s: %w", dotenvPath, err)
		}
	}
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return env, fmt.Errorf("decoding environment: %w", err)
	}
	return env, nil
}

// ApplyEnv overrides cfg fields with the non-empty values of env.
func (c *Config) ApplyEnv(env Env) {
	if env.Backend != "" {
		c.Backend = env.Backend
	}
	if env.Server != "" {
		c.Server = env.Server
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
}

// Validate checks the values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch c.BackendName() {
	case BackendLocal, BackendCloud:
	default:
		return fmt.Errorf("invalid backend %q: must be local or cloud", c.Backend)
	}
	return nil
}
