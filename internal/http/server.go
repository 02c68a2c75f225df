// Package http serves the dashboard page, its JSON API and the Notion proxy
// endpoint.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"finboard/internal/core"
	"finboard/internal/credentials"
	"finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	appweb "finboard/web"
)

// CredentialStore is the subset of credentials.Store the handlers use.
type CredentialStore interface {
	Current() credentials.Credentials
	IsComplete() bool
	Save(ctx context.Context, token, incomeID, expensesID string) (credentials.Credentials, error)
	Clear(ctx context.Context) error
}

// DashboardLoader runs one load cycle.
type DashboardLoader interface {
	Load(ctx context.Context, creds credentials.Credentials) (core.Summary, error)
}

// HealthChecker is a dependency probed by /readyz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Options wires the server's collaborators.
type Options struct {
	Addr        string
	Credentials CredentialStore
	Dashboard   DashboardLoader
	// Proxy, when set, is mounted at /api/notion-proxy.
	Proxy     http.Handler
	Checks    map[string]HealthChecker
	Transport string
	Logger    *log.Logger
	// RequestsPerMinute bounds mutating requests per client IP.
	RequestsPerMinute int
}

type Server struct {
	http.Server
	templates   *template.Template
	creds       CredentialStore
	dashboard   DashboardLoader
	checks      map[string]HealthChecker
	transport   string
	logger      *log.Logger
	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		creds:     opts.Credentials,
		dashboard: opts.Dashboard,
		checks:    opts.Checks,
		transport: opts.Transport,
		logger:    logger.WithComponent(log.ComponentHTTP),
		detector:  security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
		started: time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	t, err := template.New("").Funcs(template.FuncMap{
		"euros": core.FormatEuros,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("/api/summary", security.NoStore(http.HandlerFunc(s.handleSummary)))
	mux.Handle("/api/config", security.NoStore(http.HandlerFunc(s.handleConfig)))

	if opts.Proxy != nil {
		// The proxy answers its own CORS preflight and method checks.
		mux.Handle("/api/notion-proxy", opts.Proxy)
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limiter := s.rateLimiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, s.onRateLimit)

	var handler http.Handler = mux
	handler = limiter(handler)
	handler = headers.Middleware(handler)
	handler = s.detector.Middleware(true)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Rate limit exceeded. Please try again later."})
}
