// Package main is the local HTTP receiver for the alert pipeline.
//
// It loads the same configuration as the Lambda function, builds the same
// Dispatcher, and exposes it over HTTP:
//
//	POST /events          classify, route and deliver one JSON event
//	POST /events/preview  classify and route without sending
//	GET  /health          liveness and configured channels
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alertsystem/internal/config"
	"alertsystem/internal/dispatch"
	"alertsystem/internal/logging"
	"alertsystem/internal/receiver"
	"alertsystem/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	// SSM resolution is skipped when APP_ENV=local, which is the usual case here.
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.NewStdout(cfg.LogLevel, cfg.Service, cfg.Environment)
	logger.Info("alert receiver starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Receiver.Port,
	)

	awsCfg, err := dispatch.LoadAWSConfig(context.Background(), cfg.AWS)
	if err != nil {
		return err
	}
	components, err := dispatch.Build(cfg, awsCfg, logger)
	if err != nil {
		return fmt.Errorf("building dispatcher: %w", err)
	}

	srv, err := receiver.NewServer(components.Dispatcher, components.Factory, channelNames(components), cfg.Build, logger,
		receiver.WithSigningSecret(cfg.Receiver.SigningSecret.Unmask()))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return runHTTPServer(srv, cfg.Receiver, logger)
}

func channelNames(c *dispatch.Components) []string {
	names := make([]string, len(c.Channels))
	for i, ch := range c.Channels {
		names[i] = ch.Name()
	}
	return names
}

// runHTTPServer serves until SIGINT/SIGTERM, then shuts down gracefully.
func runHTTPServer(srv *receiver.Server, cfg config.ReceiverConfig, logger types.Logger) error {
	addr := ":" + cfg.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}
