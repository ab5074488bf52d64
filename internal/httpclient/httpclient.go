// Package httpclient builds pooled, OTel-instrumented HTTP clients for
// outbound calls. Engine adapters and the embedding client take their
// *http.Client from their caller and do not build one here.
package httpclient

import (
	"net/http"
	"time"

	"deepresearch/internal/observability"
)

// Default returns a pooled, OTel-instrumented client with sane timeouts for
// outbound search and LLM traffic.
func Default() *http.Client {
	base := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return observability.Traced(base)
}

// WithTimeout returns a client identical to Default but with a different
// overall request timeout, useful for engines with slow APIs.
func WithTimeout(d time.Duration) *http.Client {
	c := Default()
	c.Timeout = d
	return c
}
