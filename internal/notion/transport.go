package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jomei/notionapi"
)

const (
	DefaultAPIURL  = "https://api.notion.com"
	DefaultVersion = "2022-06-28"
)

// Transport runs one database query and returns the first page of results.
type Transport interface {
	Name() string
	Query(ctx context.Context, token, databaseID string) (*notionapi.DatabaseQueryResponse, error)
}

// Options configures the SDK-backed transports.
type Options struct {
	APIURL     string
	Version    string
	HTTPClient *http.Client
}

func (o Options) withDefaults() Options {
	if o.APIURL == "" {
		o.APIURL = DefaultAPIURL
	}
	if o.Version == "" {
		o.Version = DefaultVersion
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	return o
}

// SDKTransport queries Notion with the notionapi client. The relay variant
// reroutes every request through a CORS relay prefix.
type SDKTransport struct {
	name       string
	httpClient *http.Client
}

// NewDirectTransport talks to the Notion API at opts.APIURL.
func NewDirectTransport(opts Options) (*SDKTransport, error) {
	return newSDKTransport("direct", "", opts)
}

// NewRelayTransport sends each request to relayPrefix followed by the
// url-escaped upstream URL.
func NewRelayTransport(relayPrefix string, opts Options) (*SDKTransport, error) {
	if relayPrefix == "" {
		return nil, errors.New("relay prefix is required")
	}
	return newSDKTransport("relay", relayPrefix, opts)
}

func newSDKTransport(name, relayPrefix string, opts Options) (*SDKTransport, error) {
	opts = opts.withDefaults()
	base, err := url.Parse(strings.TrimRight(opts.APIURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid notion api url %q", opts.APIURL)
	}

	next := opts.HTTPClient.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	rt := &roundTripper{
		next:        next,
		version:     opts.Version,
		base:        base,
		relayPrefix: relayPrefix,
	}

	return &SDKTransport{
		name:       name,
		httpClient: &http.Client{Transport: rt, Timeout: opts.HTTPClient.Timeout},
	}, nil
}

func (t *SDKTransport) Name() string { return t.name }

func (t *SDKTransport) Query(ctx context.Context, token, databaseID string) (*notionapi.DatabaseQueryResponse, error) {
	ctx, ex := withExchange(ctx)

	// One attempt only: a 429 surfaces as a status error instead of a retry.
	client := notionapi.NewClient(notionapi.Token(token),
		notionapi.WithHTTPClient(t.httpClient),
		notionapi.WithRetry(1))
	resp, err := client.Database.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{})
	if err != nil {
		return nil, t.classify(ctx, ex, err)
	}
	return resp, nil
}

// classify turns an SDK error into a StatusError when Notion answered and a
// TransportError otherwise. A recorded status wins over a later wire error.
func (t *SDKTransport) classify(ctx context.Context, ex *exchange, err error) error {
	if ex.status == 0 {
		cause := ex.err
		if cause == nil {
			cause = err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = ctxErr
		}
		return &TransportError{Via: t.name, Err: cause}
	}

	se := &StatusError{StatusCode: ex.status, Message: err.Error()}
	var apiErr *notionapi.Error
	var rateErr *notionapi.RateLimitedError
	switch {
	case errors.As(err, &apiErr):
		se.Code = fmt.Sprint(apiErr.Code)
		se.Message = apiErr.Message
	case errors.As(err, &rateErr):
		se.Code = "rate_limited"
	}
	return se
}

// exchange records what happened on the wire for one query.
type exchange struct {
	status int
	err    error
}

type exchangeKey struct{}

func withExchange(ctx context.Context) (context.Context, *exchange) {
	ex := &exchange{}
	return context.WithValue(ctx, exchangeKey{}, ex), ex
}

type roundTripper struct {
	next        http.RoundTripper
	version     string
	base        *url.URL
	relayPrefix string
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Header.Set("Notion-Version", rt.version)
	out.Header.Set("Content-Type", "application/json")
	out.Header.Set("Accept", "application/json")

	target := rt.rebase(req.URL)
	if rt.relayPrefix != "" {
		relayed, err := url.Parse(rt.relayPrefix + url.QueryEscape(target.String()))
		if err != nil {
			return nil, fmt.Errorf("build relay url: %w", err)
		}
		target = relayed
	}
	out.URL = target
	out.Host = ""

	resp, err := rt.next.RoundTrip(out)

	if ex, ok := req.Context().Value(exchangeKey{}).(*exchange); ok {
		if err != nil {
			ex.err = err
		} else if ex.status == 0 {
			ex.status = resp.StatusCode
		}
	}
	return resp, err
}

// rebase moves a request aimed at the public API onto the configured base URL.
func (rt *roundTripper) rebase(u *url.URL) *url.URL {
	moved := *u
	moved.Scheme = rt.base.Scheme
	moved.Host = rt.base.Host
	if rt.base.Path != "" {
		moved.Path = rt.base.Path + u.Path
		moved.RawPath = ""
	}
	return &moved
}
