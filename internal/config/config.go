package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"

	// StorageLocal and StorageS3 select the object storage backend.
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Env  string `envconfig:"ENV" default:"development"`
	Port string `envconfig:"PORT" default:"8080"`

	// Security settings
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode    string `envconfig:"CSP_MODE" default:"relaxed"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Persistence
	DatabasePath string `envconfig:"DATABASE_PATH" default:"journal.db"`

	// Object storage
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"local"`
	StorageDir     string `envconfig:"STORAGE_DIR" default:"media"`
	StorageBaseURL string `envconfig:"STORAGE_BASE_URL" default:"http://localhost:8080/media"`
	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3Region       string `envconfig:"S3_REGION" default:"auto"`
	S3Endpoint     string `envconfig:"S3_ENDPOINT"`

	// Collaborator service, as seen by the recorder
	APIBaseURL  string        `envconfig:"API_BASE_URL" default:"http://localhost:8080"`
	APITimeout  time.Duration `envconfig:"API_TIMEOUT" default:"60s"`
	APIRetries  int           `envconfig:"API_RETRIES" default:"1"`
	JournalUser string        `envconfig:"JOURNAL_USER" default:"me"`

	// Provider keys. Empty keys fall back to the system keychain.
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	DeepgramAPIKey  string `envconfig:"DEEPGRAM_API_KEY"`

	// Live recognition
	DeepgramModel           string        `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage        string        `envconfig:"DEEPGRAM_LANGUAGE" default:"en-US"`
	RecognitionRestartDelay time.Duration `envconfig:"RECOGNITION_RESTART_DELAY" default:"250ms"`
	RecognitionStopGrace    time.Duration `envconfig:"RECOGNITION_STOP_GRACE" default:"3s"`

	// Capture
	SampleRate int `envconfig:"SAMPLE_RATE" default:"16000"`
}

// LoadConfig loads configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected in production)
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	// Parse environment variables into config struct
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageLocal:
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=%s", StorageS3)
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}

	if c.APIRetries < 0 {
		return fmt.Errorf("API_RETRIES must not be negative, got %d", c.APIRetries)
	}

	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// BuildCSP constructs Content Security Policy based on mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		// Production CSP
		return "default-src 'none'; " +
			"media-src 'self' https://*.tigris.dev; " +
			"frame-ancestors 'none'; " +
			"base-uri 'none'; " +
			"form-action 'none'"
	}

	// Development/relaxed CSP
	return "default-src 'self'; " +
		"media-src 'self' data: blob:"
}
