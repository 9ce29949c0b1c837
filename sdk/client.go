// Package tutor provides the Go client for the tutor service.
//
// The client covers the interactive session surface (exam, study, artifact
// upload) plus account and material management, and transparently attaches
// and renews the bearer credential.
package tutor

import (
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxRetries     = 2
	defaultRetryBackoff   = 250 * time.Millisecond
)

// Client is the entry point for talking to the tutor service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tokens     TokenStore

	requestTimeout time.Duration
	maxRetries     uint64
	retryBackoff   time.Duration
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        baseURL,
		logger:         slog.Default(),
		tokens:         NewMemoryTokenStore(),
		requestTimeout: defaultRequestTimeout,
		maxRetries:     defaultMaxRetries,
		retryBackoff:   defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newDefaultHTTPClient()
	}
	return c
}

// Tokens returns the credential store in use.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// HTTPClient returns the underlying HTTP client, e.g. for artifact playback.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// newDefaultHTTPClient configures transport-level timeouts; the overall
// request lifetime is bounded per call by context deadlines.
func newDefaultHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &http.Client{Transport: transport}
}
