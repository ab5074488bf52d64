package observability

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Traced wraps base's transport with otelhttp so every outbound request an
// engine adapter makes (web search, academic APIs, GitHub, archival
// crawlers) produces a span under the trace InitOTel configured. Engine
// adapters build their http.Client through this rather than http.Client{}
// directly so request latency shows up per-engine in the trace backend.
func Traced(base *http.Client) *http.Client {
	client := cloneOrNew(base)
	client.Transport = otelhttp.NewTransport(transportOf(base))
	return client
}

// WithStaticHeaders returns a client that stamps headers onto every
// outbound request, skipping any header the caller already set on that
// specific request. Engine adapters use this to attach an API key or
// User-Agent once at construction time instead of re-setting it on every
// call site.
func WithStaticHeaders(base *http.Client, headers map[string]string) *http.Client {
	client := cloneOrNew(base)
	client.Transport = headerInjector{next: transportOf(base), headers: headers}
	return client
}

func cloneOrNew(base *http.Client) *http.Client {
	if base == nil {
		return &http.Client{}
	}
	clone := *base
	return &clone
}

func transportOf(base *http.Client) http.RoundTripper {
	if base != nil && base.Transport != nil {
		return base.Transport
	}
	return http.DefaultTransport
}

type headerInjector struct {
	next    http.RoundTripper
	headers map[string]string
}

func (h headerInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	var cloned *http.Request
	for k, v := range h.headers {
		if req.Header.Get(k) != "" {
			continue
		}
		if cloned == nil {
			cloned = req.Clone(req.Context())
		}
		cloned.Header.Set(k, v)
	}
	if cloned != nil {
		req = cloned
	}
	return h.next.RoundTrip(req)
}
