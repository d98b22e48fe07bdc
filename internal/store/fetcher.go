package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultStructurePath is the well-known location of the structure document.
const DefaultStructurePath = "/docs-structure.json"

// Fetcher retrieves the raw structure document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

// TransportError is a failed fetch: a network error or a non-2xx response.
type TransportError struct {
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPFetcher fetches the structure document over HTTP.
type HTTPFetcher struct {
	url        string
	apiKey     string
	maxBytes   int64
	httpClient *http.Client
}

// NewHTTPFetcher builds a fetcher for baseURL + DefaultStructurePath.
// apiKey is sent as a bearer token when non-empty.
func NewHTTPFetcher(baseURL, apiKey string, timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		url:      strings.TrimSuffix(baseURL, "/") + DefaultStructurePath,
		apiKey:   apiKey,
		maxBytes: maxBytes,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// URL returns the address the fetcher reads from.
func (f *HTTPFetcher) URL() string { return f.url }

// Fetch GETs the structure document. Any failure is a *TransportError.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("fetch structure: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("fetch structure: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read structure: %w", err)}
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("structure exceeds max size (%d bytes)", f.maxBytes)}
	}
	return data, nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() {
	f.httpClient.CloseIdleConnections()
}
