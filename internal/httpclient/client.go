package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// HttpClientWrapper wraps http.Client with the request shapes the events API
// uses
type HttpClientWrapper interface {
	// DoJSON sends in as a JSON body (nil sends none) and decodes a 2xx
	// answer into out (nil discards it). It returns the response ETag.
	DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) (etag string, err error)
	// DoGET fetches path verbatim, sending accept as the Accept header.
	DoGET(ctx context.Context, path, accept string) (body []byte, etag string, err error)
}

type httpClientWrapper struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
}

// resolveURL resolves a path and query against the base URL
func (c *httpClientWrapper) resolveURL(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", path, err)
	}
	u := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u, nil
}

// NewHttpClientWrapper creates a new client wrapper. A nil client uses
// http.DefaultClient.
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, logger *slog.Logger) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &httpClientWrapper{client: client, baseURL: baseURL, logger: logger}, nil
}
