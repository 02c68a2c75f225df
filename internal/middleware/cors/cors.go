package cors

import (
	"net/http"
	"strconv"
	"strings"
)

// Config scopes cross-origin access to a single dashboard origin.
type Config struct {
	AllowedOrigin  string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int // seconds; 0 omits the header
}

// DefaultConfig allows POST from origin with a JSON body.
func DefaultConfig(origin string) Config {
	return Config{
		AllowedOrigin:  origin,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	}
}

type Middleware struct {
	config Config
}

func NewMiddleware(config Config) *Middleware {
	return &Middleware{config: config}
}

// Middleware sets the CORS headers on every response and answers any
// OPTIONS request itself with a bare 200.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if m.config.AllowedOrigin != "" {
			h.Set("Access-Control-Allow-Origin", m.config.AllowedOrigin)
			if m.config.AllowedOrigin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if len(m.config.AllowedMethods) > 0 {
			h.Set("Access-Control-Allow-Methods", strings.Join(m.config.AllowedMethods, ", "))
		}
		if len(m.config.AllowedHeaders) > 0 {
			h.Set("Access-Control-Allow-Headers", strings.Join(m.config.AllowedHeaders, ", "))
		}

		if r.Method == http.MethodOptions {
			if m.config.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(m.config.MaxAge))
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
