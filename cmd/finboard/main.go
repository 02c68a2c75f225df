package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finboard/internal/backend"
	"finboard/internal/cli"
	apphttp "finboard/internal/http"
	"finboard/internal/log"
	"finboard/internal/proxy"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).Create(startCtx, bc)
	cancelStart()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	checks := map[string]apphttp.HealthChecker{"storage": res.Store}
	if res.Publisher != nil {
		checks["amqp"] = res.Publisher
	}

	opts := apphttp.Options{
		Addr:        cli.Addr(cfg.Port),
		Credentials: res.Credentials,
		Dashboard:   res.Dashboard,
		Checks:      checks,
		Transport:   cfg.NotionTransport,
		Logger:      logger,
	}

	// The proxy endpoint is only served when this process holds the secret.
	if cfg.NotionToken != "" {
		opts.Proxy = proxy.NewEndpoint(proxy.Config{
			Token:         cfg.NotionToken,
			APIURL:        cfg.NotionAPIURL,
			Version:       cfg.NotionVersion,
			AllowedOrigin: cfg.ProxyAllowedOrigin,
			HTTPClient:    &http.Client{Timeout: cfg.FetchTimeout},
		}, logger.WithComponent(log.ComponentProxy).Logger)
	}

	srv := apphttp.NewServer(opts)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		return errors.Join(srv.Shutdown(ctx), res.Cleanup())
	})

	logger.Info("Starting finboard server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldTransport, cfg.NotionTransport,
		"proxy_enabled", opts.Proxy != nil,
		"amqp_enabled", res.Publisher != nil,
		"configured", res.Credentials.IsComplete())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
