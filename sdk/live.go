package auralis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/auralis-ai/auralis-go/pkg/live"
	"github.com/auralis-ai/auralis-go/pkg/live/protocol"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultLiveConnectTimeout = 15 * time.Second

// LiveSession is a live transcription stream. Create it with Listen.Live,
// register handlers with On, then Connect. Audio goes out with Send; the
// server's messages come back as events on the handlers.
//
// Handlers run synchronously on the session's read goroutine, in
// subscription order. Exactly one Close event is published per session,
// whichever side ends it.
type LiveSession struct {
	client *Client
	opts   *LiveTranscriptionOptions

	bus       *live.Bus
	lifecycle *live.Lifecycle

	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	startedAt time.Time
}

func newLiveSession(c *Client, opts *LiveTranscriptionOptions) *LiveSession {
	return &LiveSession{
		client:    c,
		opts:      opts,
		bus:       live.NewBus(c.logger),
		lifecycle: live.NewLifecycle(),
	}
}

// On registers fn for events of the given kind. Safe to call from within a
// handler; the new handler first sees the next event.
func (s *LiveSession) On(kind live.EventKind, fn live.Handler) live.Handle {
	return s.bus.Subscribe(kind, fn)
}

// Off removes a subscription. Safe to call from within a handler.
func (s *LiveSession) Off(h live.Handle) bool {
	return s.bus.Unsubscribe(h)
}

// State returns the current lifecycle state.
func (s *LiveSession) State() live.State {
	return s.lifecycle.State()
}

// Done returns a channel closed once the session has fully closed and the
// Close event has been published.
func (s *LiveSession) Done() <-chan struct{} {
	return s.lifecycle.Done()
}

// Err returns the transport error the session closed with, if any.
func (s *LiveSession) Err() error {
	info, ok := s.lifecycle.CloseInfo()
	if !ok {
		return nil
	}
	return info.Err
}

// Connect dials the live transcription endpoint. On handshake failure it
// returns a *TransportError and also publishes the Close event, so
// handler-driven callers observe the failure either way. A default 15s
// handshake timeout applies when ctx carries no deadline.
func (s *LiveSession) Connect(ctx context.Context) error {
	if s.lifecycle.State() != live.StateConnecting {
		return &StaleConnectionError{Op: "connect", State: s.lifecycle.State()}
	}

	wsURL, err := s.buildWSURL()
	if err != nil {
		s.failConnect(err)
		return err
	}

	ctx, cancel := withDefaultTimeout(ctx, defaultLiveConnectTimeout)
	defer cancel()

	var span trace.Span
	if s.client.tracer != nil {
		ctx, span = s.client.tracer.Start(ctx, "auralis.listen.live.connect",
			trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+s.client.apiKey)
	headers.Set("X-Auralis-Version", apiVersion)
	headers.Set("User-Agent", s.client.userAgentString())

	dialer := websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			err = fmt.Errorf("handshake rejected with status %d: %w", resp.StatusCode, err)
		}
		terr := &TransportError{Op: "connect live session", URL: wsURL, Err: err}
		if span != nil {
			span.RecordError(terr)
			span.SetStatus(codes.Error, "handshake failed")
		}
		s.failConnect(terr)
		return terr
	}

	s.conn = conn
	s.startedAt = time.Now()
	s.lifecycle.MarkOpen()
	s.client.metrics.RecordLiveSessionStart()
	s.client.logger.Debug("live session connected", "url", redactURLUserInfo(wsURL))

	s.publish(live.OpenEvent{})
	go s.readLoop()
	if s.client.keepAlive {
		go s.keepAliveLoop()
	}
	return nil
}

// Send transmits one chunk of raw audio. The session must be open;
// otherwise a *StaleConnectionError is returned and nothing touches the
// socket. Concurrent senders are serialized, so outbound frame order
// matches call order.
func (s *LiveSession) Send(chunk []byte) error {
	if !s.lifecycle.CanSend() {
		return &StaleConnectionError{Op: "send audio", State: s.lifecycle.State()}
	}
	frame, data := protocol.EncodeAudio(chunk)
	if err := s.writeFrame(frame, data); err != nil {
		return err
	}
	s.client.metrics.RecordLiveAudio(len(chunk))
	return nil
}

// KeepAlive sends a KeepAlive control frame so the server keeps an idle
// connection open. Enabled automatically by WithKeepAlive.
func (s *LiveSession) KeepAlive() error {
	return s.sendControl(protocol.ControlKeepAlive)
}

// Finalize asks the server to flush pending interim results without
// ending the stream.
func (s *LiveSession) Finalize() error {
	return s.sendControl(protocol.ControlFinalize)
}

// Finish performs a graceful shutdown: it sends the zero-length terminal
// frame (once, no matter how many goroutines call Finish) and blocks until
// the server has drained, all queued events have been delivered, and the
// Close event has been published. The wait is bounded by the context
// deadline, or by the client's finish timeout when ctx has none; on
// timeout the session is force-closed and ErrFinishTimeout returned.
func (s *LiveSession) Finish(ctx context.Context) error {
	if s.lifecycle.State() == live.StateConnecting {
		return &StaleConnectionError{Op: "finish", State: live.StateConnecting}
	}

	if s.lifecycle.BeginFinish() {
		frame, data := protocol.EncodeFinish()
		if err := s.writeFrame(frame, data); err != nil {
			s.shutdown(live.CloseInfo{
				Code:   websocket.CloseAbnormalClosure,
				Reason: "terminal frame write failed",
				Err:    err,
			})
			<-s.lifecycle.Done()
			return err
		}
		s.client.logger.Debug("live session finishing")
	}

	var timeoutC <-chan time.Time
	if _, ok := ctx.Deadline(); !ok && s.client.finishTimeout > 0 {
		timer := time.NewTimer(s.client.finishTimeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case <-s.lifecycle.Done():
		return nil
	case <-ctx.Done():
		s.shutdown(live.CloseInfo{
			Code:   websocket.CloseAbnormalClosure,
			Reason: "finish canceled",
			Err:    ctx.Err(),
		})
		<-s.lifecycle.Done()
		return ctx.Err()
	case <-timeoutC:
		s.shutdown(live.CloseInfo{
			Code:   websocket.CloseAbnormalClosure,
			Reason: "finish timed out",
			Err:    ErrFinishTimeout,
		})
		<-s.lifecycle.Done()
		return ErrFinishTimeout
	}
}

// Close force-closes the session. It is the backstop for error paths and
// is idempotent; Finish is the graceful way out. Close blocks until the
// Close event has been published.
func (s *LiveSession) Close() error {
	s.shutdown(live.CloseInfo{
		Code:   websocket.CloseNormalClosure,
		Reason: "client closed",
	})
	<-s.lifecycle.Done()
	return nil
}

func (s *LiveSession) buildWSURL() (string, error) {
	u, err := url.Parse(s.client.baseURL)
	if err != nil {
		return "", NewInvalidRequestError(fmt.Sprintf("parse base URL: %v", err))
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", NewInvalidRequestError(fmt.Sprintf("unsupported base URL scheme %q", u.Scheme))
	}
	u.Path = strings.TrimRight(u.Path, "/") + listenPath

	q, err := encodeQuery(s.opts)
	if err != nil {
		return "", err
	}
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (s *LiveSession) publish(event live.Event) {
	s.client.metrics.RecordLiveEvent(string(event.Kind()))
	s.bus.Publish(event)
}

// failConnect closes a session whose handshake never completed.
func (s *LiveSession) failConnect(err error) {
	if !s.lifecycle.MarkClosed(live.CloseInfo{
		Code:   websocket.CloseAbnormalClosure,
		Reason: "connect failed",
		Err:    err,
	}) {
		return
	}
	s.client.metrics.RecordError("live_connect")
	s.publish(live.CloseEvent{
		Code:   websocket.CloseAbnormalClosure,
		Reason: "connect failed",
		Err:    err,
	})
	s.lifecycle.Settle()
}

// shutdown drives the session to Closed. The first caller wins: it closes
// the socket, records metrics, publishes the single Close event, and only
// then releases Done(), so waiters never wake before listeners have seen
// the close.
func (s *LiveSession) shutdown(info live.CloseInfo) {
	if !s.lifecycle.MarkClosed(info) {
		return
	}
	s.closeOnce.Do(func() {
		if s.conn != nil {
			s.conn.Close()
		}
	})

	status := "closed"
	if info.Code != websocket.CloseNormalClosure {
		status = "error"
	}
	if !s.startedAt.IsZero() {
		s.client.metrics.RecordLiveSessionEnd(status, time.Since(s.startedAt))
	}
	s.client.logger.Debug("live session closed",
		"code", info.Code, "reason", info.Reason, "error", info.Err)

	s.publish(live.CloseEvent{Code: info.Code, Reason: info.Reason, Err: info.Err})
	s.lifecycle.Settle()
}

// readLoop is the single inbound goroutine: frames are decoded and their
// events published strictly in arrival order.
func (s *LiveSession) readLoop() {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.shutdown(closeInfoForReadError(err))
			return
		}
		s.handleFrame(protocol.FrameType(msgType), data)
	}
}

func closeInfoForReadError(err error) live.CloseInfo {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		info := live.CloseInfo{Code: closeErr.Code, Reason: closeErr.Text}
		if closeErr.Code != websocket.CloseNormalClosure {
			info.Err = err
		}
		return info
	}
	return live.CloseInfo{
		Code:   websocket.CloseAbnormalClosure,
		Reason: "connection lost",
		Err:    err,
	}
}

func (s *LiveSession) handleFrame(frame protocol.FrameType, data []byte) {
	msg, err := protocol.Decode(frame, data)
	if err != nil {
		s.client.logger.Warn("dropping undecodable frame", "error", err)
		s.publish(live.WarningEvent{
			Code:    live.WarnDecodeFailed,
			Message: "could not decode inbound frame",
			Err:     err,
			Raw:     data,
		})
		return
	}
	if msg == nil {
		return
	}

	switch m := msg.(type) {
	case protocol.Results:
		s.publish(live.TranscriptEvent{Result: m})
	case protocol.Metadata:
		s.publish(live.MetadataEvent{Metadata: m})
	case protocol.SpeechStarted:
		s.publish(live.SpeechStartedEvent{Info: m})
	case protocol.UtteranceEnd:
		s.publish(live.UtteranceEndEvent{Info: m})
	case protocol.ErrorMessage:
		s.client.metrics.RecordError("live_server")
		s.publish(live.ErrorEvent{Message: m})
	case protocol.WarningMessage:
		s.publish(live.WarningEvent{
			Code:    live.WarnServer,
			Message: m.Message,
			Raw:     data,
		})
	case protocol.Unhandled:
		s.publish(live.WarningEvent{
			Code:    live.WarnUnhandled,
			Message: fmt.Sprintf("unhandled message type %q", m.RawType),
			Raw:     m.Raw,
		})
	}
}

func (s *LiveSession) sendControl(op string) error {
	if !s.lifecycle.CanSend() {
		return &StaleConnectionError{Op: "send " + op, State: s.lifecycle.State()}
	}
	frame, data, err := protocol.EncodeControl(op)
	if err != nil {
		return NewInvalidRequestError(err.Error())
	}
	return s.writeFrame(frame, data)
}

func (s *LiveSession) writeFrame(frame protocol.FrameType, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(int(frame), data); err != nil {
		return &TransportError{Op: "write frame", Err: err}
	}
	return nil
}

func (s *LiveSession) keepAliveLoop() {
	ticker := time.NewTicker(s.client.keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.lifecycle.Done():
			return
		case <-ticker.C:
			if err := s.KeepAlive(); err != nil {
				return
			}
		}
	}
}
