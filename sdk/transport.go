package auralis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/auralis-ai/auralis-go/pkg/core"
	"github.com/google/go-querystring/query"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// apiVersion is sent as X-Auralis-Version on every request so server-side
// behavior stays pinned to what this SDK understands.
const apiVersion = "2025-06-01"

const defaultRequestTimeout = 60 * time.Second

const maxErrorBodyBytes = 1 << 20

// apiRequest describes one REST call. endpoint is a low-cardinality label
// used for spans and metrics ("listen.prerecorded", "manage.keys", ...),
// never the concrete path.
type apiRequest struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	endpoint    string
}

// withDefaultTimeout applies d as the context deadline unless the caller
// already set one.
func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// encodeQuery turns an options struct with `url` tags into query values.
func encodeQuery(opts any) (url.Values, error) {
	if opts == nil {
		return nil, nil
	}
	values, err := query.Values(opts)
	if err != nil {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("encode query options: %v", err))
	}
	return values, nil
}

func (c *Client) buildURL(path string, q url.Values) string {
	full := strings.TrimRight(c.baseURL, "/") + path
	if len(q) > 0 {
		full += "?" + q.Encode()
	}
	return full
}

// do executes one REST request and returns the raw response. Responses with
// status >= 400 are decoded into a canonical *core.Error and the body is
// closed; on success the caller owns the body.
func (c *Client) do(ctx context.Context, r apiRequest) (*http.Response, error) {
	fullURL := c.buildURL(r.path, r.query)

	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.Start(ctx, "auralis."+r.endpoint,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.request.method", r.method),
				attribute.String("url.path", r.path),
			))
		defer span.End()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, fullURL, r.body)
	if err != nil {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Auralis-Version", apiVersion)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgentString())
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordRequest(r.endpoint, r.method, "transport_error", duration)
		c.metrics.RecordError("transport")
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transport error")
		}
		return nil, &TransportError{Op: r.method + " " + r.path, URL: fullURL, Err: err}
	}

	c.metrics.RecordRequest(r.endpoint, r.method, strconv.Itoa(resp.StatusCode), duration)
	if span != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	}

	if resp.StatusCode >= 400 {
		apiErr := decodeAPIError(resp)
		c.metrics.RecordError(string(apiErr.Type))
		if span != nil {
			span.RecordError(apiErr)
			span.SetStatus(codes.Error, string(apiErr.Type))
		}
		c.logger.Debug("api request failed",
			"endpoint", r.endpoint,
			"status", resp.StatusCode,
			"error_type", apiErr.Type,
			"request_id", apiErr.RequestID)
		return nil, apiErr
	}
	return resp, nil
}

// doJSON executes a request and decodes the JSON response body into out.
func (c *Client) doJSON(ctx context.Context, r apiRequest, out any) error {
	ctx, cancel := withDefaultTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: "decode response for " + r.endpoint, Err: err}
	}
	return nil
}

// decodeAPIError turns a non-2xx response into a canonical *core.Error. It
// consumes and closes the body. Responses that are not the standard
// {"error": {...}} envelope still map to a typed error from the status code.
func decodeAPIError(resp *http.Response) *core.Error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var envelope struct {
		Error *core.Error `json:"error"`
	}
	apiErr := &core.Error{}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		apiErr = envelope.Error
	} else {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		apiErr.Message = msg
	}

	if apiErr.Type == "" {
		apiErr.Type = errorTypeForStatus(resp.StatusCode)
	}
	if apiErr.RequestID == "" {
		apiErr.RequestID = resp.Header.Get("X-Request-Id")
	}
	if apiErr.RetryAfter == nil {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.RetryAfter = &secs
		}
	}
	return apiErr
}

func errorTypeForStatus(status int) core.ErrorType {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return core.ErrInvalidRequest
	case http.StatusUnauthorized:
		return core.ErrAuthentication
	case http.StatusForbidden:
		return core.ErrPermission
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusTooManyRequests:
		return core.ErrRateLimit
	case http.StatusServiceUnavailable:
		return core.ErrOverloaded
	default:
		return core.ErrAPI
	}
}

func (c *Client) userAgentString() string {
	const base = "auralis-go/" + Version
	if c.userAgent != "" {
		return base + " " + c.userAgent
	}
	return base
}

// Version is the SDK release version reported in the User-Agent header.
const Version = "0.3.0"
