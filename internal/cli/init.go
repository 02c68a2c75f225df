// Package cli holds the startup steps shared by cmd/finboard,
// cmd/notion-proxy and cmd/finboard-cli.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finboard/internal/config"
	"finboard/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. An unknown level falls back to info.
func SetupLogger(component string) *log.Logger {
	return SetupLoggerTo(os.Stdout, component)
}

// SetupLoggerTo is SetupLogger writing to w. The CLI logs to stderr so
// that command output on stdout stays machine readable.
func SetupLoggerTo(w io.Writer, component string) *log.Logger {
	return setupLogger(w, component, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

func setupLogger(w io.Writer, component, level, format string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = w
	cfg.Component = component
	if format != "" {
		cfg.Format = format
	}

	lvl, err := log.ParseLevel(level)
	if err == nil {
		cfg.Level = lvl
	}

	logger := log.New(cfg)
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "value", level)
	}
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is not an
// error; production reads the real environment.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadConfig reads and validates the environment configuration.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndValidateConfig is LoadConfig for daemons: it exits on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown waits for SIGINT or SIGTERM and then runs cleanup with a
// bounded context. The returned context is cancelled once the signal
// arrives; done is closed after cleanup returns or the timeout expires.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context) error) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown, "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan error, 1)
		go func() {
			if cleanup == nil {
				finished <- nil
				return
			}
			finished <- cleanup(shutdownCtx)
		}()

		select {
		case err := <-finished:
			if err != nil {
				logger.Error("Shutdown finished with errors", log.FieldError, err)
			} else {
				logger.Info("Shutdown complete")
			}
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached", "timeout", timeout.String())
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the signal has been handled and cleanup is
// over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// Addr turns a PORT value into a listen address.
func Addr(port string) string {
	return fmt.Sprintf(":%s", port)
}
