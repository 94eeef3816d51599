// Package config loads runtime settings from an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"reverseDesignAi/internal/llm"
)

// Config holds runtime configuration values.
type Config struct {
	Port        string        `yaml:"port"`
	DatabaseURL string        `yaml:"database_url"`
	LLM         LLMConfig     `yaml:"llm"`
	Media       MediaConfig   `yaml:"media"`
	Extract     ExtractConfig `yaml:"extract"`
	Log         LogConfig     `yaml:"log"`
	// GenerateConcurrency bounds parallel SVG renders per request.
	GenerateConcurrency int `yaml:"generate_concurrency"`
	// SessionCapacity bounds the in-memory workspace store.
	SessionCapacity int `yaml:"session_capacity"`
}

// LLMConfig selects and configures the language model provider.
type LLMConfig struct {
	Provider     string        `yaml:"provider"`
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	Vertex       VertexConfig  `yaml:"vertex"`
	Timeout      time.Duration `yaml:"timeout"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

// VertexConfig mirrors the Vertex AI credentials settings.
type VertexConfig struct {
	ProjectID          string `yaml:"project_id"`
	Location           string `yaml:"location"`
	APIKey             string `yaml:"api_key"`
	ServiceAccount     string `yaml:"service_account"`
	ServiceAccountJSON string `yaml:"service_account_json"`
	AccessToken        string `yaml:"access_token"`
}

// MediaConfig describes S3/media related configuration.
type MediaConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PublicURL       string `yaml:"public_url"`
	KeyPrefix       string `yaml:"key_prefix"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	LocalDir        string `yaml:"local_dir"`
}

// ExtractConfig tunes structured-output extraction.
type ExtractConfig struct {
	Repair bool `yaml:"repair"`
}

// LogConfig selects log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port: "8080",
		LLM: LLMConfig{
			Provider:   "openai",
			BaseURL:    "https://openrouter.ai/api/v1",
			Timeout:    120 * time.Second,
			RetryDelay: 500 * time.Millisecond,
			Vertex:     VertexConfig{Location: "us-central1"},
		},
		Log:                 LogConfig{Level: "info", Format: "json"},
		GenerateConcurrency: 3,
		SessionCapacity:     200,
	}
}

// Load reads .env (if present), then the YAML file at path (if path is not
// empty), then environment overrides, and validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "APP_PORT")
	setString(&c.DatabaseURL, "DATABASE_URL")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	// OpenRouter's key wins when both are present.
	setString(&c.LLM.APIKey, "OPENROUTER_API_KEY")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.LLM.Vertex.ProjectID, "VERTEX_PROJECT_ID")
	setString(&c.LLM.Vertex.Location, "VERTEX_LOCATION")
	setString(&c.LLM.Vertex.APIKey, "VERTEX_API_KEY")
	setString(&c.LLM.Vertex.ServiceAccount, "VERTEX_SERVICE_ACCOUNT")
	setString(&c.LLM.Vertex.ServiceAccountJSON, "VERTEX_SERVICE_ACCOUNT_JSON")
	setString(&c.LLM.Vertex.AccessToken, "VERTEX_ACCESS_TOKEN")

	setString(&c.Media.Bucket, "S3_BUCKET")
	setString(&c.Media.Region, "S3_REGION")
	setString(&c.Media.Endpoint, "S3_ENDPOINT")
	setString(&c.Media.PublicURL, "S3_PUBLIC_URL")
	setString(&c.Media.KeyPrefix, "S3_KEY_PREFIX")
	setString(&c.Media.AccessKeyID, "S3_ACCESS_KEY_ID")
	setString(&c.Media.SecretAccessKey, "S3_SECRET_ACCESS_KEY")
	setString(&c.Media.LocalDir, "MEDIA_LOCAL_DIR")
	c.Media.KeyPrefix = strings.Trim(c.Media.KeyPrefix, "/")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	var errs []error
	errs = append(errs,
		setBool(&c.Media.ForcePathStyle, "S3_FORCE_PATH_STYLE"),
		setBool(&c.Extract.Repair, "EXTRACT_REPAIR"),
		setInt(&c.GenerateConcurrency, "GENERATE_CONCURRENCY"),
		setInt(&c.SessionCapacity, "SESSION_CAPACITY"),
		setDuration(&c.LLM.Timeout, "LLM_TIMEOUT"),
		setDuration(&c.LLM.RetryDelay, "LLM_RETRY_DELAY"),
	)
	return errors.Join(errs...)
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("APP_PORT cannot be empty"))
	}
	if c.GenerateConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("GENERATE_CONCURRENCY must be positive, got %d", c.GenerateConcurrency))
	}
	if c.SessionCapacity <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_CAPACITY must be positive, got %d", c.SessionCapacity))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("LLM_TIMEOUT must be positive, got %s", c.LLM.Timeout))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*dst = value
	}
}

func setBool(dst *bool, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func setInt(dst *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}

// ClientOptions maps the LLM settings onto llm.New options.
func (c LLMConfig) ClientOptions() llm.Options {
	return llm.Options{
		Provider:     c.Provider,
		APIKey:       c.APIKey,
		BaseURL:      c.BaseURL,
		GeminiAPIKey: c.GeminiAPIKey,
		Vertex: llm.VertexConfig{
			ProjectID:          c.Vertex.ProjectID,
			Location:           c.Vertex.Location,
			APIKey:             c.Vertex.APIKey,
			ServiceAccount:     c.Vertex.ServiceAccount,
			ServiceAccountJSON: c.Vertex.ServiceAccountJSON,
			AccessToken:        c.Vertex.AccessToken,
		},
		Model:   c.Model,
		Timeout: c.Timeout,
	}
}
