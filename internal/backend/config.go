package backend

import (
	"fmt"

	"finboard/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		Transport:        appConfig.NotionTransport,
		APIURL:           appConfig.NotionAPIURL,
		Version:          appConfig.NotionVersion,
		RelayURL:         appConfig.NotionRelayURL,
		FallbackRelayURL: appConfig.NotionFallbackRelayURL,
		ProxyURL:         appConfig.NotionProxyURL,
		AmountProperty:   appConfig.AmountProperty,
		CategoryProperty: appConfig.CategoryProperty,
		FetchTimeout:     appConfig.FetchTimeout,

		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPQueue:      appConfig.AMQPQueue,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}

	switch c.Transport {
	case config.TransportDirect, "":
	case config.TransportRelay:
		if c.RelayURL == "" {
			return fmt.Errorf("relay URL is required for relay transport")
		}
	case config.TransportProxy:
		if c.ProxyURL == "" {
			return fmt.Errorf("proxy URL is required for proxy transport")
		}
	default:
		return fmt.Errorf("unsupported notion transport: %s", c.Transport)
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
