package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/tournevent/ordertrack/internal/server"
	"github.com/tournevent/ordertrack/internal/telemetry"
	"github.com/tournevent/ordertrack/internal/tracking"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ordertrack",
	Short:   "Order tracking and delivery confirmation for Shopify stores",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var trackCmd = &cobra.Command{
	Use:   "track <order-number>",
	Short: "Look up an order and print its delivery status",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrack,
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <order-number>",
	Short: "Tag an order as delivered",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfirm,
}

func init() {
	trackCmd.Flags().String("email", "", "customer email that must match the order")

	rootCmd.AddCommand(serveCmd, trackCmd, confirmCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(context.Background())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	service := initService(cfg, logger, metrics)

	logger.Info("Starting order tracking service",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Bool("shopify_mock", cfg.ShopifyUseMock),
		zap.String("lookup_mode", cfg.ShopifyLookupMode),
	)

	srv := server.New(server.Config{
		Port:           cfg.Port,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, service, logger, metrics, reg)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runTrack(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")

	service, cleanup, err := initCommandService()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := service.Track(cmd.Context(), tracking.TrackRequest{
		OrderNumber:   args[0],
		CustomerEmail: email,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func runConfirm(cmd *cobra.Command, args []string) error {
	service, cleanup, err := initCommandService()
	if err != nil {
		return err
	}
	defer cleanup()

	conf, err := service.ConfirmDelivery(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, conf)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
