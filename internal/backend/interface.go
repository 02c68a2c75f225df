package backend

import (
	"context"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/credentials"
	"finboard/internal/notion"
	"finboard/internal/services"
)

// KVStore is the key/value storage behind the credential store.
type KVStore interface {
	credentials.KV
	HealthCheck(ctx context.Context) error
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds everything built from one configuration.
type Result struct {
	Store       KVStore
	Credentials *credentials.Store
	Notion      *notion.Client
	Publisher   *amqp.Client // nil when AMQP is disabled
	Dashboard   *services.DashboardService
	Cleanup     CleanupFunc
}

// Factory creates the application backend from configuration.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// Notion access
	Transport        string
	APIURL           string
	Version          string
	RelayURL         string
	FallbackRelayURL string
	ProxyURL         string
	AmountProperty   string
	CategoryProperty string
	FetchTimeout     time.Duration

	// AMQP is optional
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPRoutingKey string
}

// BackendType selects where credentials are persisted.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
