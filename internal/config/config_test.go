package config_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/ordertrack/internal/config"
)

// unsetEnv removes keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func clearShopifyEnv(t *testing.T) {
	t.Helper()
	unsetEnv(t,
		"SHOPIFY_STORE_DOMAIN", "SHOPIFY_SHOP",
		"SHOPIFY_ADMIN_API_KEY", "SHOPIFY_ADMIN_API_TOKEN",
		"SHOPIFY_API_VERSION", "SHOPIFY_BASE_URL", "SHOPIFY_USE_MOCK",
		"SHOPIFY_LOOKUP_MODE", "SHOPIFY_SCAN_LIMIT", "SHOPIFY_TIMEOUT",
		"SHOPIFY_MAX_RETRIES",
	)
}

func TestLoad_Defaults(t *testing.T) {
	clearShopifyEnv(t)
	unsetEnv(t, "PORT", "ORDER_NAME_MARKER", "DELIVERED_TAG", "CUSTOMER_FALLBACK_LABEL",
		"DELIVERY_ASSUMED_AFTER", "CORS_ALLOWED_ORIGINS")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "2024-01", cfg.ShopifyAPIVersion)
	assert.Equal(t, "graphql", cfg.ShopifyLookupMode)
	assert.Equal(t, 250, cfg.ShopifyScanLimit)
	assert.Equal(t, 30*time.Second, cfg.ShopifyTimeout)
	assert.Equal(t, "#", cfg.OrderNameMarker)
	assert.Equal(t, "Delivered", cfg.DeliveredTag)
	assert.Equal(t, "Customer information unavailable", cfg.CustomerFallbackLabel)
	assert.Equal(t, time.Duration(0), cfg.DeliveryAssumedAfter)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoad_FromEnv(t *testing.T) {
	clearShopifyEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SHOPIFY_STORE_DOMAIN", "shop.myshopify.com")
	t.Setenv("SHOPIFY_ADMIN_API_KEY", "shpat_secret")
	t.Setenv("TRACKING_CARRIER_LABEL", "JNE Express")
	t.Setenv("DELIVERY_ASSUMED_AFTER", "168h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "shop.myshopify.com", cfg.ShopifyStoreDomain)
	assert.Equal(t, "shpat_secret", cfg.ShopifyAccessToken)
	assert.Equal(t, "JNE Express", cfg.TrackingCarrierLabel)
	assert.Equal(t, 168*time.Hour, cfg.DeliveryAssumedAfter)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_LegacyNames(t *testing.T) {
	clearShopifyEnv(t)
	t.Setenv("SHOPIFY_SHOP", "legacy.myshopify.com")
	t.Setenv("SHOPIFY_ADMIN_API_TOKEN", "shpat_legacy")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "legacy.myshopify.com", cfg.ShopifyStoreDomain)
	assert.Equal(t, "shpat_legacy", cfg.ShopifyAccessToken)
}

func TestLoad_PrimaryNameWins(t *testing.T) {
	clearShopifyEnv(t)
	t.Setenv("SHOPIFY_STORE_DOMAIN", "primary.myshopify.com")
	t.Setenv("SHOPIFY_SHOP", "legacy.myshopify.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "primary.myshopify.com", cfg.ShopifyStoreDomain)
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := &config.Config{ShopifyAPIVersion: "2024-01", ShopifyLookupMode: "graphql", DeliveredTag: "Delivered"}

	err := cfg.Validate()

	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrMissingConfig))

	var cfgErr *config.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"SHOPIFY_STORE_DOMAIN", "SHOPIFY_ADMIN_API_KEY"}, cfgErr.Missing)
}

func TestValidate_NeverLeaksValues(t *testing.T) {
	cfg := &config.Config{
		ShopifyStoreDomain: "shop.myshopify.com",
		ShopifyAPIVersion:  "2024-01",
		ShopifyLookupMode:  "graphql",
	}

	err := cfg.Validate()

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "shop.myshopify.com")
	assert.Contains(t, err.Error(), "SHOPIFY_ADMIN_API_KEY")
	assert.Contains(t, err.Error(), "DELIVERED_TAG")
}

func TestValidate_MockNeedsNoCredentials(t *testing.T) {
	cfg := &config.Config{ShopifyUseMock: true, ShopifyLookupMode: "rest", DeliveredTag: "Delivered"}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_LookupMode(t *testing.T) {
	cfg := &config.Config{ShopifyUseMock: true, ShopifyLookupMode: "soap", DeliveredTag: "Delivered"}
	assert.ErrorContains(t, cfg.Validate(), "SHOPIFY_LOOKUP_MODE")
}
