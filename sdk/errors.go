package auralis

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/auralis-ai/auralis-go/pkg/core"
	"github.com/auralis-ai/auralis-go/pkg/live"
)

// SDK-level error type that wraps core errors
type Error = core.Error

// Error types
const (
	ErrInvalidRequest = core.ErrInvalidRequest
	ErrAuthentication = core.ErrAuthentication
	ErrPermission     = core.ErrPermission
	ErrNotFound       = core.ErrNotFound
	ErrRateLimit      = core.ErrRateLimit
	ErrAPI            = core.ErrAPI
	ErrOverloaded     = core.ErrOverloaded
)

// Error constructors
var (
	NewInvalidRequestError = core.NewInvalidRequestError
	NewAuthenticationError = core.NewAuthenticationError
	NewRateLimitError      = core.NewRateLimitError
)

// ErrFinishTimeout is returned by LiveSession.Finish when the server does
// not close the stream within the finish timeout. The session is forcibly
// closed before Finish returns it.
var ErrFinishTimeout = errors.New("live session finish timed out waiting for server close")

// TransportError represents HTTP or websocket transport-level failures
// (DNS, timeouts, connection reset, TLS handshake, etc.) while talking to
// the Auralis API.
//
// Use errors.As(err, &TransportError{}) to distinguish transport failures
// from canonical API errors (*core.Error).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Op != "" && e.URL != "":
		return fmt.Sprintf("transport error during %s %s: %v", e.Op, redactURLUserInfo(e.URL), e.Err)
	case e.Op != "":
		return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StaleConnectionError is returned when an operation requires an open live
// session but the session is not (or no longer) open. No frame is written
// to the socket.
type StaleConnectionError struct {
	Op    string
	State live.State
}

func (e *StaleConnectionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("live session is %s, cannot %s", e.State, e.Op)
}

func redactURLUserInfo(raw string) string {
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	parsed.User = nil
	return parsed.String()
}
