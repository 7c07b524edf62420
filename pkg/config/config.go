package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

type Config struct {
	// Salesforce connection. InstanceURL and AccessToken are optional: when
	// either is empty the token is read from the sf CLI for OrgAlias.
	InstanceURL string `envconfig:"SF_INSTANCE_URL"`
	AccessToken string `envconfig:"SF_ACCESS_TOKEN"`
	OrgAlias    string `envconfig:"SF_ORG_ALIAS" default:"elastic"`
	LoginURL    string `envconfig:"SF_LOGIN_URL" default:"https://elastic.my.salesforce.com"`
	APIVersion  string `envconfig:"SF_API_VERSION" default:"v59.0"`

	TargetCurrency  string `envconfig:"SF_TARGET_CURRENCY" default:"USD"`
	DefaultCurrency string `envconfig:"SF_DEFAULT_CURRENCY" default:"USD"`
	RatesAPIURL     string `envconfig:"RATES_API_URL" default:"https://api.exchangerate-api.com/v4/latest"`

	LogDir string `envconfig:"LOG_DIR" default:"logs"`
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	cfg.TargetCurrency = NormalizeCurrency(cfg.TargetCurrency)
	cfg.DefaultCurrency = NormalizeCurrency(cfg.DefaultCurrency)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.OrgAlias == "" && (c.InstanceURL == "" || c.AccessToken == "") {
		return fmt.Errorf("SF_ORG_ALIAS is required when SF_INSTANCE_URL and SF_ACCESS_TOKEN are not set")
	}
	if c.InstanceURL != "" && !hasHTTPScheme(c.InstanceURL) {
		return fmt.Errorf("SF_INSTANCE_URL must start with http:// or https://")
	}
	if c.APIVersion == "" {
		return fmt.Errorf("SF_API_VERSION is required")
	}
	if !currencyCodeRe.MatchString(c.TargetCurrency) {
		return fmt.Errorf("SF_TARGET_CURRENCY must be a 3-letter currency code, got %q", c.TargetCurrency)
	}
	if !currencyCodeRe.MatchString(c.DefaultCurrency) {
		return fmt.Errorf("SF_DEFAULT_CURRENCY must be a 3-letter currency code, got %q", c.DefaultCurrency)
	}
	if c.RatesAPIURL == "" {
		return fmt.Errorf("RATES_API_URL is required")
	}
	return nil
}

// HasStaticToken reports whether the Salesforce session comes from the
// environment rather than from the sf CLI.
func (c *Config) HasStaticToken() bool {
	return c.InstanceURL != "" && c.AccessToken != ""
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func hasHTTPScheme(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
