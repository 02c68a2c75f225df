// Command notion-proxy serves only the Notion query proxy, for deployments
// where the dashboard page is hosted elsewhere.
package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"finboard/internal/cli"
	"finboard/internal/log"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/proxy"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentProxy)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.NotionToken == "" {
		logger.Warn("NOTION_TOKEN is not set, every query will fail with 500")
	}

	endpoint := proxy.NewEndpoint(proxy.Config{
		Token:         cfg.NotionToken,
		APIURL:        cfg.NotionAPIURL,
		Version:       cfg.NotionVersion,
		AllowedOrigin: cfg.ProxyAllowedOrigin,
		HTTPClient:    &http.Client{Timeout: cfg.FetchTimeout},
	}, logger.Logger)

	mux := http.NewServeMux()
	mux.Handle("/{$}", endpoint)
	mux.Handle("/api/notion-proxy", endpoint)

	detector := security.NewDetector()
	tracer := trace.NewMiddleware(logger, detector.ExtractClientIP)

	srv := &http.Server{
		Addr:              cli.Addr(cfg.Port),
		Handler:           tracer.Middleware(detector.Middleware(true)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, srv.Shutdown)

	logger.Info("Starting notion proxy",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"allowed_origin", cfg.ProxyAllowedOrigin,
		"token_set", cfg.NotionToken != "")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Proxy stopped gracefully")
}
