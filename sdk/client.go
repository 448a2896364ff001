// Package auralis provides the Auralis speech-to-text SDK for Go.
//
// The Client exposes two services: Listen for transcription (prerecorded
// REST calls and live websocket streaming) and Manage for project
// administration (projects, keys, members, scopes, invitations, usage,
// balances).
package auralis

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/auralis-ai/auralis-go/pkg/metrics"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultBaseURL = "https://api.auralis.ai"

	defaultFinishTimeout     = 10 * time.Second
	defaultKeepAliveInterval = 5 * time.Second
)

// Client is the main entry point for the SDK.
type Client struct {
	Listen *ListenService
	Manage *ManageService

	// Internal
	apiKey            string
	baseURL           string
	userAgent         string
	httpClient        *http.Client
	logger            *slog.Logger
	tracer            trace.Tracer
	metrics           *metrics.Metrics
	keepAlive         bool
	keepAliveInterval time.Duration
	finishTimeout     time.Duration
}

// NewClient creates a new client. The API key is read from AURALIS_API_KEY
// when not set explicitly.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:           defaultBaseURL,
		httpClient:        newDefaultHTTPClient(),
		logger:            slog.Default(),
		keepAliveInterval: defaultKeepAliveInterval,
		finishTimeout:     defaultFinishTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("AURALIS_API_KEY")
	}

	c.Listen = &ListenService{client: c}
	c.Manage = &ManageService{client: c}
	return c
}
