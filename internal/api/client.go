// Package api provides the shared outbound HTTP client.
//
// Photo link checks and Telegram uploads both go through one pooled client so
// keep-alive connections to the photo CDN and the Bot API are reused.
package api

import (
	"net/http"
	"sync"
	"time"
)

// DefaultTimeout bounds a complete request including reading the body.
const DefaultTimeout = 15 * time.Second

var (
	mu           sync.RWMutex
	sharedClient = NewHTTPClient(DefaultTimeout)
)

// GetHTTPClient returns the shared client. http.Client is safe for concurrent
// use, so callers need no extra locking.
func GetHTTPClient() *http.Client {
	mu.RLock()
	defer mu.RUnlock()
	return sharedClient
}

// Configure replaces the shared client with one using timeout. It is called
// once at startup from the loaded configuration.
func Configure(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	SetHTTPClient(NewHTTPClient(timeout))
}

// NewHTTPClient creates a client with connection pooling.
//
// Pool settings:
//   - MaxIdleConns: 100 idle connections across all hosts
//   - MaxIdleConnsPerHost: 10, so the photo checker's workers share a host pool
//   - IdleConnTimeout: 90 seconds
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}
}

// SetHTTPClient overrides the shared client (used by tests).
func SetHTTPClient(client *http.Client) {
	mu.Lock()
	defer mu.Unlock()
	sharedClient = client
}
