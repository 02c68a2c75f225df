package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"finboard/internal/amqp"
	"finboard/internal/config"
	"finboard/internal/core"
	"finboard/internal/credentials"
	"finboard/internal/notion"
	"finboard/internal/services"
	"finboard/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// Create opens the credential store, builds the Notion client and, when
// configured, connects the AMQP publisher. The store's saved credentials are
// loaded before returning.
func (f *DefaultFactory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kv, err := f.createStore(cfg)
	if err != nil {
		return nil, err
	}

	client, err := f.createNotionClient(cfg)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	// AMQP is optional: a broker that is down at startup only disables events.
	var publisher *amqp.Client
	if cfg.AMQPURL != "" {
		publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPRoutingKey, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without summary events", "error", err)
			publisher = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	store := credentials.NewStore(kv, f.logger)
	loaded := store.Load(ctx)

	var summaryPublisher services.SummaryPublisher
	if publisher != nil {
		summaryPublisher = publisher
	}
	summarizer := core.NewSummarizer(core.Fields{Amount: cfg.AmountProperty, Category: cfg.CategoryProperty})
	dashboard := services.NewDashboardService(client, summarizer, summaryPublisher, cfg.FetchTimeout, f.logger)

	f.logger.Info("Initialized backend",
		"store", cfg.Type,
		"transport", transportName(cfg.Transport),
		"fallback_enabled", cfg.FallbackRelayURL != "",
		"amqp_enabled", publisher != nil,
		"credentials_loaded", loaded)

	return &Result{
		Store:       kv,
		Credentials: store,
		Notion:      client,
		Publisher:   publisher,
		Dashboard:   dashboard,
		Cleanup: func() error {
			var errs []error
			if publisher != nil {
				errs = append(errs, publisher.Close())
			}
			errs = append(errs, kv.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createStore(cfg Config) (KVStore, error) {
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", cfg.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory store")
		return storage.NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) createNotionClient(cfg Config) (*notion.Client, error) {
	opts := notion.Options{
		APIURL:     cfg.APIURL,
		Version:    cfg.Version,
		HTTPClient: &http.Client{Timeout: cfg.FetchTimeout},
	}

	var primary notion.Transport
	var err error
	switch cfg.Transport {
	case config.TransportRelay:
		primary, err = notion.NewRelayTransport(cfg.RelayURL, opts)
	case config.TransportProxy:
		primary = notion.NewProxyTransport(cfg.ProxyURL, opts.HTTPClient)
	default:
		primary, err = notion.NewDirectTransport(opts)
	}
	if err != nil {
		return nil, fmt.Errorf("notion transport: %w", err)
	}

	var fallback notion.Transport
	if cfg.FallbackRelayURL != "" {
		relay, err := notion.NewRelayTransport(cfg.FallbackRelayURL, opts)
		if err != nil {
			return nil, fmt.Errorf("notion fallback transport: %w", err)
		}
		fallback = relay
	}

	return notion.NewClient(primary, fallback, f.logger), nil
}

func transportName(t string) string {
	if t == "" {
		return config.TransportDirect
	}
	return t
}
