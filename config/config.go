package config

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/jinzhu/configor"
	"github.com/joho/godotenv"
)

const (
	// APIKeyEnv names the environment variable holding the FineData credential.
	APIKeyEnv = "FINEDATA_API_KEY"

	DefaultAPIURL  = "https://api.finedata.ai"
	DefaultTimeout = 180
)

// Config - Application configuration
type Config struct {
	FineData struct {
		APIKey  string `yaml:"api_key" env:"FINEDATA_API_KEY"`
		APIURL  string `yaml:"api_url" default:"https://api.finedata.ai" env:"FINEDATA_API_URL"`
		Timeout int    `yaml:"timeout" default:"180" env:"FINEDATA_TIMEOUT"` // Timeout in seconds
	} `yaml:"finedata"`
}

// ConfigurationError reports a missing or unusable setting.
type ConfigurationError struct {
	Variable string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s %s", e.Variable, e.Reason)
}

// LoadConfig - Load configuration from the environment, an optional .env file
// and an optional YAML file at path.
func LoadConfig(path string) (*Config, error) {
	// Variables already present in the environment are never overridden.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env file")
	}

	var files []string
	if path != "" {
		files = append(files, path)
	}

	cfg := &Config{}
	err := configor.New(&configor.Config{
		Debug:      false,
		Verbose:    false,
		Silent:     true,
		AutoReload: false,
	}).Load(cfg, files...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.FineData.APIKey == "" {
		return &ConfigurationError{
			Variable: APIKeyEnv,
			Reason:   "environment variable is required. Get your API key at https://finedata.ai",
		}
	}
	if c.FineData.Timeout <= 0 {
		return &ConfigurationError{
			Variable: "FINEDATA_TIMEOUT",
			Reason:   fmt.Sprintf("must be a positive number of seconds, got %d", c.FineData.Timeout),
		}
	}
	return nil
}

// MaskedAPIKey returns the credential with everything but the last four characters hidden.
func (c *Config) MaskedAPIKey() string {
	key := c.FineData.APIKey
	if len(key) > 4 {
		return "****" + key[len(key)-4:]
	}
	return "***"
}
