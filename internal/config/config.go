package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	TransportDirect = "direct"
	TransportRelay  = "relay"
	TransportProxy  = "proxy"
)

type Config struct {
	// HTTP Server
	Port string

	// Credential storage
	DataBackend  string
	SQLiteDBPath string

	// Notion
	NotionTransport        string
	NotionAPIURL           string
	NotionVersion          string
	NotionRelayURL         string
	NotionFallbackRelayURL string
	NotionProxyURL         string
	AmountProperty         string
	CategoryProperty       string
	FetchTimeout           time.Duration

	// Proxy endpoint
	NotionToken        string
	ProxyAllowedOrigin string

	// AMQP (optional)
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPRoutingKey string

	// Google Sheets export (optional)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finboard.db"),

		NotionTransport:        getEnv("NOTION_TRANSPORT", TransportDirect),
		NotionAPIURL:           getEnv("NOTION_API_URL", "https://api.notion.com"),
		NotionVersion:          getEnv("NOTION_VERSION", "2022-06-28"),
		NotionRelayURL:         getEnv("NOTION_RELAY_URL", "https://cors-anywhere.herokuapp.com/"),
		NotionFallbackRelayURL: getEnv("NOTION_FALLBACK_RELAY_URL", ""),
		NotionProxyURL:         getEnv("NOTION_PROXY_URL", "http://localhost:8081/api/notion-proxy"),
		AmountProperty:         getEnv("NOTION_AMOUNT_PROPERTY", "Amount"),
		CategoryProperty:       getEnv("NOTION_CATEGORY_PROPERTY", "Category"),
		FetchTimeout:           getEnvDuration("FETCH_TIMEOUT", 15*time.Second),

		NotionToken:        getEnv("NOTION_TOKEN", ""),
		ProxyAllowedOrigin: getEnv("PROXY_ALLOWED_ORIGIN", "http://localhost:8081"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "finboard"),
		AMQPQueue:      getEnv("AMQP_QUEUE", "summary_events"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "summary.refreshed"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Summary"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	validTransports := []string{TransportDirect, TransportRelay, TransportProxy}
	if !slices.Contains(validTransports, c.NotionTransport) {
		errors = append(errors, fmt.Sprintf("invalid notion transport '%s': must be one of %v", c.NotionTransport, validTransports))
	}

	if err := checkHTTPURL("NOTION_API_URL", c.NotionAPIURL); err != "" {
		errors = append(errors, err)
	}
	switch c.NotionTransport {
	case TransportRelay:
		if err := checkHTTPURL("NOTION_RELAY_URL", c.NotionRelayURL); err != "" {
			errors = append(errors, err)
		}
	case TransportProxy:
		if err := checkHTTPURL("NOTION_PROXY_URL", c.NotionProxyURL); err != "" {
			errors = append(errors, err)
		}
	}
	if c.NotionFallbackRelayURL != "" {
		if err := checkHTTPURL("NOTION_FALLBACK_RELAY_URL", c.NotionFallbackRelayURL); err != "" {
			errors = append(errors, err)
		}
	}

	if c.NotionVersion == "" {
		errors = append(errors, "notion version cannot be empty")
	}
	if strings.TrimSpace(c.AmountProperty) == "" || strings.TrimSpace(c.CategoryProperty) == "" {
		errors = append(errors, "amount and category property names cannot be empty")
	}

	if c.FetchTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 1 second", c.FetchTimeout))
	} else if c.FetchTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at most 5 minutes", c.FetchTimeout))
	}

	if c.ProxyAllowedOrigin != "" && c.ProxyAllowedOrigin != "*" {
		if err := checkHTTPURL("PROXY_ALLOWED_ORIGIN", c.ProxyAllowedOrigin); err != "" {
			errors = append(errors, err)
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateSheets checks the settings needed by the Google Sheets export.
func (c *Config) ValidateSheets() error {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for sheets export")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME is required for sheets export")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets export")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("sheets configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func checkHTTPURL(name, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return fmt.Sprintf("invalid %s '%s': must be an absolute URL", name, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("invalid %s scheme '%s': must be 'http' or 'https'", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Sprintf("invalid %s '%s': missing host", name, raw)
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
