package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/querypilot/querypilot-cli/internal/secrets"
)

const (
	configDir      = ".querypilot"
	configFileName = "config.json"
	exportDirName  = "exports"

	// EnvToken and EnvAPIURL override any stored configuration.
	EnvToken  = "QUERYPILOT_TOKEN"
	EnvAPIURL = "QUERYPILOT_API_URL"

	defaultBaseURL = "https://api.querypilot.dev/v1"
)

type Config struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token,omitempty"`
}

// GetConfigPath returns the path to the config file (~/.querypilot/config.json)
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir, configFileName), nil
}

// ExportDir returns the directory where large result sets are persisted as CSV.
func ExportDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir, exportDirName), nil
}

// Load assembles configuration from, in order of precedence: environment
// variables, the OS keyring (token only), and ~/.querypilot/config.json.
// A missing config file is not an error; callers get defaults with whatever
// credentials could be resolved.
func Load() (*Config, error) {
	// Best effort; a local .env simply may not exist
	_ = godotenv.Load()

	cfg := &Config{}

	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.AccessToken == "" {
		if token, err := secrets.LoadToken(); err == nil && token != "" {
			cfg.AccessToken = token
		}
	}

	if url := os.Getenv(EnvAPIURL); url != "" {
		cfg.APIBaseURL = url
	}
	if token := os.Getenv(EnvToken); token != "" {
		cfg.AccessToken = token
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultBaseURL
	}

	return cfg, nil
}

// Save writes the config file, creating ~/.querypilot if needed. The access
// token is not written here; it belongs in the keyring (see internal/secrets).
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	persisted := Config{APIBaseURL: cfg.APIBaseURL}
	data, err := json.MarshalIndent(&persisted, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
