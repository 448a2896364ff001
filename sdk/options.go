package auralis

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/auralis-ai/auralis-go/pkg/metrics"
	"go.opentelemetry.io/otel/trace"
)

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the Auralis API key.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithBaseURL overrides the API base URL. Use this to point the client at
// a self-hosted deployment or a test server.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger for the client.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTracer sets the OpenTelemetry tracer for the client.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = t
	}
}

// WithMetrics sets the Prometheus metrics sink for the client. Without it
// the client records nothing.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithUserAgent appends extra product info to the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithKeepAlive enables periodic KeepAlive control frames on live
// sessions, so the server does not drop a connection that is momentarily
// out of audio.
func WithKeepAlive(interval time.Duration) ClientOption {
	return func(c *Client) {
		c.keepAlive = true
		if interval > 0 {
			c.keepAliveInterval = interval
		}
	}
}

// WithFinishTimeout bounds how long a live session's Finish waits for the
// server to drain and close after the terminal frame.
func WithFinishTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.finishTimeout = d
		}
	}
}
