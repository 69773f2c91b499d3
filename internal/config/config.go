package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrMissingConfig indicates required configuration is absent.
var ErrMissingConfig = errors.New("missing configuration")

// ConfigError lists the required variables that are not set. It carries
// variable names only, never values.
type ConfigError struct {
	Missing []string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingConfig, strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrMissingConfig.
func (e *ConfigError) Unwrap() error {
	return ErrMissingConfig
}

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port               int      `envconfig:"PORT" default:"8080"`
	LogLevel           string   `envconfig:"LOG_LEVEL" default:"info"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Shopify
	ShopifyStoreDomain string        `envconfig:"SHOPIFY_STORE_DOMAIN"`
	ShopifyAccessToken string        `envconfig:"SHOPIFY_ADMIN_API_KEY"`
	ShopifyAPIVersion  string        `envconfig:"SHOPIFY_API_VERSION" default:"2024-01"`
	ShopifyBaseURL     string        `envconfig:"SHOPIFY_BASE_URL"`
	ShopifyUseMock     bool          `envconfig:"SHOPIFY_USE_MOCK" default:"false"`
	ShopifyLookupMode  string        `envconfig:"SHOPIFY_LOOKUP_MODE" default:"graphql"`
	ShopifyScanLimit   int           `envconfig:"SHOPIFY_SCAN_LIMIT" default:"250"`
	ShopifyTimeout     time.Duration `envconfig:"SHOPIFY_TIMEOUT" default:"30s"`
	ShopifyMaxRetries  int           `envconfig:"SHOPIFY_MAX_RETRIES" default:"2"`

	// Tracking rules
	OrderNameMarker       string        `envconfig:"ORDER_NAME_MARKER" default:"#"`
	DeliveredTag          string        `envconfig:"DELIVERED_TAG" default:"Delivered"`
	TrackingCarrierLabel  string        `envconfig:"TRACKING_CARRIER_LABEL"`
	CustomerFallbackLabel string        `envconfig:"CUSTOMER_FALLBACK_LABEL" default:"Customer information unavailable"`
	DeliveryAssumedAfter  time.Duration `envconfig:"DELIVERY_ASSUMED_AFTER" default:"0s"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"order-tracking"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Legacy variable names accepted when the primary name is unset.
const (
	legacyStoreDomainVar = "SHOPIFY_SHOP"
	legacyAccessTokenVar = "SHOPIFY_ADMIN_API_TOKEN"
)

// Load reads configuration from the environment, after loading a .env file
// from the working directory if one exists. Real environment variables take
// precedence over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.ShopifyStoreDomain == "" {
		cfg.ShopifyStoreDomain = os.Getenv(legacyStoreDomainVar)
	}
	if cfg.ShopifyAccessToken == "" {
		cfg.ShopifyAccessToken = os.Getenv(legacyAccessTokenVar)
	}
	return &cfg, nil
}

// Validate checks required settings. Shopify credentials are not needed
// when the mock client is in use.
func (c *Config) Validate() error {
	var missing []string
	if !c.ShopifyUseMock {
		if c.ShopifyStoreDomain == "" && c.ShopifyBaseURL == "" {
			missing = append(missing, "SHOPIFY_STORE_DOMAIN")
		}
		if c.ShopifyAccessToken == "" {
			missing = append(missing, "SHOPIFY_ADMIN_API_KEY")
		}
		if c.ShopifyAPIVersion == "" && c.ShopifyBaseURL == "" {
			missing = append(missing, "SHOPIFY_API_VERSION")
		}
	}
	if c.DeliveredTag == "" {
		missing = append(missing, "DELIVERED_TAG")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}

	switch c.ShopifyLookupMode {
	case "graphql", "rest":
	default:
		return fmt.Errorf("SHOPIFY_LOOKUP_MODE must be graphql or rest, got %q", c.ShopifyLookupMode)
	}
	return nil
}
