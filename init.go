package main

import (
	"context"
	"fmt"

	"github.com/tournevent/ordertrack/internal/config"
	"github.com/tournevent/ordertrack/internal/telemetry"
	"github.com/tournevent/ordertrack/internal/tracking"
	"github.com/tournevent/ordertrack/pkg/orderstore/shopify"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel, cfg.ServiceName, cfg.Version)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

func initService(cfg *config.Config, logger *otelzap.Logger, metrics *telemetry.Metrics) *tracking.Service {
	repo := shopify.New(shopify.Config{
		StoreDomain: cfg.ShopifyStoreDomain,
		AccessToken: cfg.ShopifyAccessToken,
		APIVersion:  cfg.ShopifyAPIVersion,
		BaseURL:     cfg.ShopifyBaseURL,
		LookupMode:  cfg.ShopifyLookupMode,
		ScanLimit:   cfg.ShopifyScanLimit,
		Timeout:     cfg.ShopifyTimeout,
		MaxRetries:  cfg.ShopifyMaxRetries,
		UseMock:     cfg.ShopifyUseMock,
	}, logger, nil)

	return tracking.NewService(repo, tracking.Options{
		Marker:           cfg.OrderNameMarker,
		DeliveredTag:     cfg.DeliveredTag,
		CarrierLabel:     cfg.TrackingCarrierLabel,
		CustomerFallback: cfg.CustomerFallbackLabel,
		DeliveredAfter:   cfg.DeliveryAssumedAfter,
	}, logger, metrics)
}

// initCommandService builds the engine for one-shot CLI commands.
func initCommandService() (*tracking.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return initService(cfg, logger, nil), func() { logger.Sync() }, nil
}
