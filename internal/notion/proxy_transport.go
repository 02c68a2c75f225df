package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jomei/notionapi"
)

// ProxyTransport posts {databaseId} to an owned proxy endpoint that holds the
// Notion secret server-side. The caller's token is not forwarded.
type ProxyTransport struct {
	endpoint   string
	httpClient *http.Client
}

func NewProxyTransport(endpoint string, httpClient *http.Client) *ProxyTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ProxyTransport{endpoint: endpoint, httpClient: httpClient}
}

func (t *ProxyTransport) Name() string { return "proxy" }

// ProxyRequest is the body accepted by the proxy endpoint.
type ProxyRequest struct {
	DatabaseID string `json:"databaseId"`
}

// ProxyError is the body the proxy endpoint answers with on failure.
type ProxyError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (t *ProxyTransport) Query(ctx context.Context, _ string, databaseID string) (*notionapi.DatabaseQueryResponse, error) {
	body, err := json.Marshal(ProxyRequest{DatabaseID: databaseID})
	if err != nil {
		return nil, fmt.Errorf("encode proxy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build proxy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		cause := err
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = ctxErr
		}
		return nil, &TransportError{Via: t.Name(), Err: cause}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Via: t.Name(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, proxyStatusError(resp.StatusCode, raw)
	}

	var out notionapi.DatabaseQueryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: "malformed proxy response: " + err.Error()}
	}
	return &out, nil
}

// proxyStatusError unpacks {error, details}, where details may carry the
// original Notion error object.
func proxyStatusError(status int, raw []byte) *StatusError {
	se := &StatusError{StatusCode: status, Message: http.StatusText(status)}

	var pe ProxyError
	if err := json.Unmarshal(raw, &pe); err != nil {
		return se
	}
	if pe.Error != "" {
		se.Message = pe.Error
	}

	var upstream struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if pe.Details != "" && json.Unmarshal([]byte(pe.Details), &upstream) == nil {
		se.Code = upstream.Code
		if upstream.Message != "" {
			se.Message = upstream.Message
		}
	}
	return se
}
