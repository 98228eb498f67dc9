package httputil

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds a single archive call; retry policy wraps around it.
const DefaultTimeout = 60 * time.Second

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}
