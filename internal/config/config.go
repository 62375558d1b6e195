package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeMock   Mode = "mock"
	ModeLive   Mode = "live"
	ModeHybrid Mode = "hybrid"
)

const (
	DefaultAmadeusBaseURL = "https://test.api.amadeus.com"

	EnvAmadeusKey     = "AMADEUS_API_KEY"
	EnvAmadeusSecret  = "AMADEUS_API_SECRET"
	EnvAmadeusBaseURL = "AMADEUS_BASE_URL"
)

type ProviderConfig struct {
	Enabled  bool              `yaml:"enabled"`
	Priority int               `yaml:"priority"`
	EnvKeys  map[string]string `yaml:"envKeys,omitempty"`
}

type AmadeusConfig struct {
	BaseURL  string        `yaml:"baseUrl"`
	TokenTTL time.Duration `yaml:"tokenTtl"`
}

type Config struct {
	Mode            Mode                      `yaml:"mode"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
	Amadeus         AmadeusConfig             `yaml:"amadeus"`
	DefaultCurrency string                    `yaml:"defaultCurrency"`
	DataDir         string                    `yaml:"dataDir"`
	CacheTTL        time.Duration             `yaml:"cacheTtl"`
	Debounce        time.Duration             `yaml:"debounce"`
	Timeout         time.Duration             `yaml:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Mode: ModeMock,
		Providers: map[string]ProviderConfig{
			"mock_flights": {Enabled: true, Priority: 100},
			"amadeus": {
				Enabled:  true,
				Priority: 10,
				EnvKeys: map[string]string{
					"api_key":    EnvAmadeusKey,
					"api_secret": EnvAmadeusSecret,
				},
			},
		},
		Amadeus: AmadeusConfig{
			BaseURL:  DefaultAmadeusBaseURL,
			TokenTTL: 25 * time.Minute,
		},
		DefaultCurrency: "USD",
		DataDir:         defaultDataDir(),
		CacheTTL:        10 * time.Minute,
		Debounce:        300 * time.Millisecond,
		Timeout:         15 * time.Second,
	}
}

// Load builds the configuration from defaults, the optional yaml file and
// the environment, in that order. A broken config file is reported but does
// not prevent startup.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	var fileErr error
	if path := configPath(); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				fileErr = fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if envMode := os.Getenv("SKY_MODE"); envMode != "" {
		cfg.WithMode(envMode)
	}

	if envProviders := os.Getenv("SKY_PROVIDERS"); envProviders != "" {
		names := strings.Split(envProviders, ",")
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n == "" {
				continue
			}
			if _, ok := cfg.Providers[n]; !ok {
				cfg.Providers[n] = ProviderConfig{Enabled: true, Priority: 50}
			}
		}
	}

	if dir := os.Getenv("SKY_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if base := os.Getenv(EnvAmadeusBaseURL); base != "" {
		cfg.Amadeus.BaseURL = base
	}
	if cfg.Amadeus.BaseURL == "" {
		cfg.Amadeus.BaseURL = DefaultAmadeusBaseURL
	}

	return cfg, fileErr
}

func (c *Config) WithMode(mode string) *Config {
	if mode == "" {
		return c
	}
	switch strings.ToLower(mode) {
	case "mock":
		c.Mode = ModeMock
	case "live":
		c.Mode = ModeLive
	case "hybrid":
		c.Mode = ModeHybrid
	}
	return c
}

func (c *Config) ProviderEnabled(name string) bool {
	pc, ok := c.Providers[name]
	return ok && pc.Enabled
}

func (c *Config) ProviderHasCredentials(name string) bool {
	pc, ok := c.Providers[name]
	if !ok {
		return false
	}
	for _, envKey := range pc.EnvKeys {
		if os.Getenv(envKey) == "" {
			return false
		}
	}
	return true
}

func (c *Config) MissingCredentials(name string) []string {
	pc, ok := c.Providers[name]
	if !ok {
		return nil
	}
	var missing []string
	for label, envKey := range pc.EnvKeys {
		if os.Getenv(envKey) == "" {
			missing = append(missing, fmt.Sprintf("%s (%s)", label, envKey))
		}
	}
	return missing
}

// EnvCheck reports on the Amadeus credential environment without exposing
// the secret values.
type EnvCheck struct {
	IsValid      bool     `json:"isValid"`
	Issues       []string `json:"issues"`
	HasAPIKey    bool     `json:"hasApiKey"`
	HasAPISecret bool     `json:"hasApiSecret"`
	HasBaseURL   bool     `json:"hasBaseUrl"`
	APIKeyLength int      `json:"apiKeyLength"`
	BaseURL      string   `json:"baseUrl"`
}

func CheckAmadeusEnv() EnvCheck {
	key := os.Getenv(EnvAmadeusKey)
	secret := os.Getenv(EnvAmadeusSecret)
	base := os.Getenv(EnvAmadeusBaseURL)

	check := EnvCheck{
		Issues:       []string{},
		HasAPIKey:    key != "",
		HasAPISecret: secret != "",
		HasBaseURL:   base != "",
		APIKeyLength: len(key),
		BaseURL:      base,
	}
	if base == "" {
		check.BaseURL = DefaultAmadeusBaseURL + " (default)"
	}

	switch {
	case key == "":
		check.Issues = append(check.Issues, EnvAmadeusKey+" is not set")
	case key == "your_api_key_here":
		check.Issues = append(check.Issues, EnvAmadeusKey+" still has the placeholder value")
	case strings.TrimSpace(key) != key:
		check.Issues = append(check.Issues, EnvAmadeusKey+" has leading or trailing whitespace")
	}

	switch {
	case secret == "":
		check.Issues = append(check.Issues, EnvAmadeusSecret+" is not set")
	case secret == "your_api_secret_here":
		check.Issues = append(check.Issues, EnvAmadeusSecret+" still has the placeholder value")
	case strings.TrimSpace(secret) != secret:
		check.Issues = append(check.Issues, EnvAmadeusSecret+" has leading or trailing whitespace")
	}

	check.IsValid = len(check.Issues) == 0
	return check
}

func configPath() string {
	if p := os.Getenv("SKY_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".config", "sky-scrapper", "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sky-scrapper")
	}
	return ".sky-scrapper"
}
