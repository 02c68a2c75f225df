// Package proxy implements the endpoint that forwards a database query to
// Notion with a server-held token, so the secret never reaches the browser.
package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finboard/internal/middleware/cors"
)

const (
	maxRequestBody  = 4 << 10
	maxUpstreamBody = 16 << 20
)

type Config struct {
	Token         string // empty: every POST fails with 500
	APIURL        string
	Version       string
	AllowedOrigin string
	HTTPClient    *http.Client
}

// Handler answers POST {databaseId} with the upstream query result.
type Handler struct {
	token   string
	apiURL  string
	version string
	client  *http.Client
	logger  *slog.Logger
}

func NewHandler(cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.notion.com"
	}
	if cfg.Version == "" {
		cfg.Version = "2022-06-28"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Handler{
		token:   cfg.Token,
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		version: cfg.Version,
		client:  cfg.HTTPClient,
		logger:  logger.With("component", "proxy"),
	}
}

// NewEndpoint returns the handler wrapped with CORS scoped to cfg.AllowedOrigin.
func NewEndpoint(cfg Config, logger *slog.Logger) http.Handler {
	return cors.NewMiddleware(cors.DefaultConfig(cfg.AllowedOrigin)).Middleware(NewHandler(cfg, logger))
}

type request struct {
	DatabaseID string `json:"databaseId"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return
	}

	var req request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	databaseID := strings.TrimSpace(req.DatabaseID)
	if databaseID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "databaseId is required"})
		return
	}

	if h.token == "" {
		h.logger.ErrorContext(ctx, "NOTION_TOKEN is not set, refusing to proxy")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "proxy is not configured"})
		return
	}

	status, body, err := h.query(r, databaseID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Proxy request failed", "database_id", databaseID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "proxy internal error"})
		return
	}

	if status < 200 || status > 299 {
		h.logger.WarnContext(ctx, "Notion returned an error", "database_id", databaseID, "status", status)
		writeJSON(w, status, errorBody{
			Error:   fmt.Sprintf("Notion error: %d", status),
			Details: string(body),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) query(r *http.Request, databaseID string) (int, []byte, error) {
	endpoint := h.apiURL + "/v1/databases/" + url.PathEscape(databaseID) + "/query"

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, endpoint, bytes.NewReader([]byte("{}")))
	if err != nil {
		return 0, nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Notion-Version", h.version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody+1))
	if err != nil {
		return 0, nil, fmt.Errorf("read upstream body: %w", err)
	}
	if len(body) > maxUpstreamBody {
		return 0, nil, errors.New("upstream body too large")
	}
	return resp.StatusCode, body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
