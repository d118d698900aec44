package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment variable, e.g. IMPACTLENS_API_BASE_URL.
	EnvPrefix = "IMPACTLENS"

	DefaultBaseURL = "http://localhost:8080"
	DefaultTimeout = 60 * time.Second
)

// Config holds the application configuration
type Config struct {
	// API configuration
	APIBaseURL string
	APITimeout time.Duration

	// Authentication
	TokenFile string

	// Logging
	LogLevel string
	LogFile  string

	// Jira configuration
	JiraBaseURL  string
	JiraUsername string
	JiraAPIToken string

	// LLM configuration
	LLMEnabled     bool
	LLMProvider    string // "openai", "azure"
	LLMModel       string
	LLMAPIKey      string
	LLMServiceURL  string
	LLMMaxTokens   int
	LLMTimeout     int // in seconds
	LLMTemperature float64
}

// init loads environment variables from .env file
func init() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded configuration from %s file", path)
			return
		}
	}
}

// Dir returns the per-user configuration directory for impactlens.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return ".impactlens"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "impactlens")
}

// SetDefaults registers every known key so environment overrides resolve
// even when no config file is present.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout", DefaultTimeout)

	v.SetDefault("auth.token_file", filepath.Join(Dir(), "token"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("jira.base_url", "")
	v.SetDefault("jira.username", "")
	v.SetDefault("jira.api_token", "")

	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.service_url", "")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", 30)
	v.SetDefault("llm.temperature", 0.0)
}

// Load reads configuration from defaults, the optional config file and the
// environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	return LoadViper(viper.New(), path)
}

// LoadViper is Load on a caller-supplied viper instance, so command-line flags
// bound to v take precedence over everything else.
func LoadViper(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		APIBaseURL: strings.TrimRight(v.GetString("api.base_url"), "/"),
		APITimeout: v.GetDuration("api.timeout"),

		TokenFile: v.GetString("auth.token_file"),

		LogLevel: v.GetString("log.level"),
		LogFile:  v.GetString("log.file"),

		JiraBaseURL:  v.GetString("jira.base_url"),
		JiraUsername: v.GetString("jira.username"),
		JiraAPIToken: v.GetString("jira.api_token"),

		LLMEnabled:     v.GetBool("llm.enabled"),
		LLMProvider:    v.GetString("llm.provider"),
		LLMModel:       v.GetString("llm.model"),
		LLMAPIKey:      v.GetString("llm.api_key"),
		LLMServiceURL:  v.GetString("llm.service_url"),
		LLMMaxTokens:   v.GetInt("llm.max_tokens"),
		LLMTimeout:     v.GetInt("llm.timeout"),
		LLMTemperature: v.GetFloat64("llm.temperature"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the client cannot run without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid api.base_url %q: %w", c.APIBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api.base_url %q: scheme must be http or https", c.APIBaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q: missing host", c.APIBaseURL)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.APITimeout)
	}
	return nil
}

// JiraConfigured reports whether ticket previews can be fetched.
func (c *Config) JiraConfigured() bool {
	return c.JiraBaseURL != "" && c.JiraUsername != "" && c.JiraAPIToken != ""
}
