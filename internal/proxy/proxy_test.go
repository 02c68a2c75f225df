package proxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const origin = "https://dash.example.com"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEndpoint(t *testing.T, token string, upstream http.HandlerFunc) http.Handler {
	t.Helper()
	cfg := Config{Token: token, AllowedOrigin: origin}
	if upstream != nil {
		srv := httptest.NewServer(upstream)
		t.Cleanup(srv.Close)
		cfg.APIURL = srv.URL
	}
	return NewEndpoint(cfg, quietLogger())
}

func do(h http.Handler, method, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/api/notion-proxy", r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestEndpoint_Options(t *testing.T) {
	rec := do(newEndpoint(t, "ntn_server", nil), http.MethodOptions, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestEndpoint_MethodNotAllowed(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := do(newEndpoint(t, "ntn_server", nil), method, "")

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.NotEmpty(t, decodeError(t, rec).Error)
		})
	}
}

func TestEndpoint_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing databaseId", body: `{}`},
		{name: "blank databaseId", body: `{"databaseId":"  "}`},
		{name: "not json", body: `databaseId=abc`},
		{name: "empty body", body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newEndpoint(t, "ntn_server", nil), http.MethodPost, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec).Error)
		})
	}
}

func TestEndpoint_UnsetSecretFailsClosed(t *testing.T) {
	upstreamCalled := false
	h := newEndpoint(t, "", func(w http.ResponseWriter, r *http.Request) {
		upstreamCalled = true
	})

	rec := do(h, http.MethodPost, `{"databaseId":"db-0123456789"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, upstreamCalled)
}

func TestEndpoint_Success(t *testing.T) {
	const upstreamBody = `{"object":"list","results":[{"object":"page","id":"p1"}],"has_more":false,"next_cursor":null}`
	h := newEndpoint(t, "ntn_server", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/databases/db-0123456789/query", r.URL.Path)
		assert.Equal(t, "Bearer ntn_server", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-06-28", r.Header.Get("Notion-Version"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{}`, string(b))
		io.WriteString(w, upstreamBody)
	})

	rec := do(h, http.MethodPost, `{"databaseId":"db-0123456789"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, upstreamBody, rec.Body.String(), "body is passed through verbatim")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestEndpoint_UpstreamStatusPassthrough(t *testing.T) {
	const notionErr = `{"object":"error","status":404,"code":"object_not_found","message":"Could not find database"}`
	h := newEndpoint(t, "ntn_server", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, notionErr)
	})

	rec := do(h, http.MethodPost, `{"databaseId":"db-0123456789"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Notion error: 404", body.Error)
	assert.Equal(t, notionErr, body.Details)
}

func TestEndpoint_UpstreamUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	apiURL := srv.URL
	srv.Close()
	h := NewEndpoint(Config{Token: "ntn_server", APIURL: apiURL, AllowedOrigin: origin}, quietLogger())

	rec := do(h, http.MethodPost, `{"databaseId":"db-0123456789"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "proxy internal error", decodeError(t, rec).Error)
}
