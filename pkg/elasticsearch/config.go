package elasticsearch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	AuthAPIKey = "api_key"
	AuthBasic  = "basic"
)

// Config holds the cluster connection settings read from ES_* variables.
type Config struct {
	ClusterURL     string        `envconfig:"ES_CLUSTER_URL"`
	Index          string        `envconfig:"ES_INDEX" default:"salesforce-opportunities"`
	APIKey         string        `envconfig:"ES_API_KEY"`
	Username       string        `envconfig:"ES_USERNAME"`
	Password       string        `envconfig:"ES_PASSWORD"`
	VerifyCerts    bool          `envconfig:"ES_VERIFY_CERTS" default:"false"`
	MaxRetries     int           `envconfig:"ES_MAX_RETRIES" default:"3"`
	RequestTimeout time.Duration `envconfig:"ES_REQUEST_TIMEOUT" default:"30s"`
}

// LoadConfig reads the ES_* environment variables. The result is not
// validated so callers can fall back to JSON output when no cluster is
// configured.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load elasticsearch config: %w", err)
	}
	return &cfg, nil
}

// Configured reports whether a cluster URL was provided at all.
func (c *Config) Configured() bool {
	return strings.TrimSpace(c.ClusterURL) != ""
}

// AuthType returns AuthAPIKey when an API key is set and AuthBasic otherwise.
func (c *Config) AuthType() string {
	if c.APIKey != "" {
		return AuthAPIKey
	}
	return AuthBasic
}

// Validate checks the cluster URL, credentials and index name.
func (c *Config) Validate() error {
	if !c.Configured() {
		return errors.New("cluster URL is required")
	}
	if !strings.HasPrefix(c.ClusterURL, "http://") && !strings.HasPrefix(c.ClusterURL, "https://") {
		return errors.New("cluster URL must start with http:// or https://")
	}

	switch c.AuthType() {
	case AuthAPIKey:
		if len(c.APIKey) < 10 {
			return errors.New("API key appears to be too short")
		}
	default:
		if c.Username == "" {
			return errors.New("username is required for basic authentication")
		}
		if c.Password == "" {
			return errors.New("password is required for basic authentication")
		}
	}

	return ValidateIndexName(c.Index)
}

// ValidateIndexName applies the Elasticsearch index naming rules.
func ValidateIndexName(name string) error {
	if name == "" {
		return errors.New("index name is required")
	}
	if name != strings.ToLower(name) {
		return errors.New("index name must be lowercase")
	}
	if strings.ContainsAny(name, ` "*\<|,>/?`) {
		return fmt.Errorf("index name %q contains invalid characters", name)
	}
	return nil
}
