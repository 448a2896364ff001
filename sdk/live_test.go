package auralis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/auralis-ai/auralis-go/pkg/live"
	"github.com/gorilla/websocket"
)

func newListenTestServer(t *testing.T, handler func(conn *websocket.Conn)) (string, func()) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/listen" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn)
	}))

	return server.URL, server.Close
}

// eventRecorder collects events in delivery order.
type eventRecorder struct {
	mu     sync.Mutex
	events []live.Event
}

func (r *eventRecorder) record(e live.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) kinds() []live.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]live.EventKind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind()
	}
	return kinds
}

func (r *eventRecorder) subscribeAll(s *LiveSession) {
	for _, kind := range []live.EventKind{
		live.KindOpen, live.KindClose, live.KindTranscript, live.KindMetadata,
		live.KindSpeechStarted, live.KindUtteranceEnd, live.KindError, live.KindWarning,
	} {
		s.On(kind, r.record)
	}
}

func sendServerClose(conn *websocket.Conn, code int, reason string) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(2*time.Second))
}

func TestLiveSession_TranscriptFlowAndGracefulFinish(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newListenTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()

		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType == websocket.BinaryMessage && len(data) > 0 {
				conn.WriteMessage(websocket.TextMessage, []byte(`{
					"type": "Results",
					"is_final": true,
					"speech_final": true,
					"channel": {"alternatives": [{"transcript": "hello world", "confidence": 0.97}]}
				}`))
				continue
			}
			if msgType == websocket.BinaryMessage && len(data) == 0 {
				conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata","request_id":"req_live","duration":2.5}`))
				sendServerClose(conn, websocket.CloseNormalClosure, "done")
				return
			}
		}
	})
	defer closeServer()

	client := NewClient(WithAPIKey("sk-test"), WithBaseURL(serverURL))
	session := client.Listen.Live(&LiveTranscriptionOptions{Model: "auralis-general", InterimResults: true})

	rec := &eventRecorder{}
	rec.subscribeAll(session)

	closeSeen := make(chan live.CloseEvent, 1)
	session.On(live.KindClose, func(e live.Event) {
		closeSeen <- e.(live.CloseEvent)
	})

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if session.State() != live.StateOpen {
		t.Fatalf("state after connect = %v, want open", session.State())
	}

	if err := session.Send([]byte{0x01, 0x02, 0x03, 0x04}); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Finish(ctx); err != nil {
		t.Fatalf("Finish error: %v", err)
	}

	// Finish must not return before the Close event has been delivered.
	select {
	case ev := <-closeSeen:
		if ev.Code != websocket.CloseNormalClosure {
			t.Errorf("close code = %d, want %d", ev.Code, websocket.CloseNormalClosure)
		}
		if ev.Err != nil {
			t.Errorf("normal close carried error: %v", ev.Err)
		}
	default:
		t.Fatalf("Finish returned before the Close event was published")
	}

	want := []live.EventKind{live.KindOpen, live.KindTranscript, live.KindMetadata, live.KindClose}
	got := rec.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	if session.State() != live.StateClosed {
		t.Errorf("state after finish = %v, want closed", session.State())
	}
}

func TestLiveSession_ConnectFailureReturnsErrorAndPublishesClose(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"authentication_error","message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(WithAPIKey("sk-bad"), WithBaseURL(server.URL))
	session := client.Listen.Live(nil)

	closeCh := make(chan live.CloseEvent, 1)
	session.On(live.KindClose, func(e live.Event) {
		closeCh <- e.(live.CloseEvent)
	})

	err := session.Connect(context.Background())
	if err == nil {
		t.Fatalf("expected connect error")
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %T %v, want *TransportError", err, err)
	}

	select {
	case ev := <-closeCh:
		if ev.Code != websocket.CloseAbnormalClosure {
			t.Errorf("close code = %d, want %d", ev.Code, websocket.CloseAbnormalClosure)
		}
		if ev.Err == nil {
			t.Errorf("close event should carry the handshake error")
		}
	default:
		t.Fatalf("Close event not published on connect failure")
	}

	if session.State() != live.StateClosed {
		t.Errorf("state = %v, want closed", session.State())
	}
}

func TestLiveSession_SendOutsideOpenIsStale(t *testing.T) {
	t.Parallel()

	client := NewClient(WithAPIKey("sk-test"), WithBaseURL("http://127.0.0.1:1"))
	session := client.Listen.Live(nil)

	err := session.Send([]byte{0x01})
	var stale *StaleConnectionError
	if !errors.As(err, &stale) {
		t.Fatalf("err = %T %v, want *StaleConnectionError", err, err)
	}
	if stale.State != live.StateConnecting {
		t.Errorf("stale state = %v, want connecting", stale.State)
	}
}

func TestLiveSession_SendAfterCloseIsStale(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newListenTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer closeServer()

	client := NewClient(WithAPIKey("sk-test"), WithBaseURL(serverURL))
	session := client.Listen.Live(nil)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	err := session.Send([]byte{0x01})
	var stale *StaleConnectionError
	if !errors.As(err, &stale) {
		t.Fatalf("err = %T %v, want *StaleConnectionError", err, err)
	}
	if stale.State != live.StateClosed {
		t.Errorf("stale state = %v, want closed", stale.State)
	}
}

func TestLiveSession_SendDuringFinishingIsStale(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newListenTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		// Never close, so the session stays in Finishing until the timeout.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer closeServer()

	client := NewClient(
		WithAPIKey("sk-test"),
		WithBaseURL(serverURL),
		WithFinishTimeout(500*time.Millisecond),
	)
	session := client.Listen.Live(nil)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	finishErr := make(chan error, 1)
	go func() { finishErr <- session.Finish(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for session.State() != live.StateFinishing {
		if time.Now().After(deadline) {
			t.Fatalf("session never reached finishing, state = %v", session.State())
		}
		time.Sleep(time.Millisecond)
	}

	err := session.Send([]byte{0x01})
	var stale *StaleConnectionError
	if !errors.As(err, &stale) {
		t.Fatalf("err = %T %v, want *StaleConnectionError", err, err)
	}
	if stale.State != live.StateFinishing {
		t.Errorf("stale state = %v, want finishing", stale.State)
	}

	if err := <-finishErr; !errors.Is(err, ErrFinishTimeout) {
		t.Fatalf("Finish error = %v, want ErrFinishTimeout", err)
	}
}

func TestLiveSession_MalformedFrameBecomesWarningAndStreamContinues(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newListenTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte("this is not json"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{
			"type": "Results",
			"is_final": true,
			"channel": {"alternatives": [{"transcript": "still alive"}]}
		}`))
		sendServerClose(conn, websocket.CloseNormalClosure, "")
		conn.ReadMessage() // wait for the client's close response
	})
	defer closeServer()

	client := NewClient(WithAPIKey("sk-test"), WithBaseURL(serverURL))
	session := client.Listen.Live(nil)

	rec := &eventRecorder{}
	rec.subscribeAll(session)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not close")
	}

	want := []live.EventKind{live.KindOpen, live.KindWarning, live.KindTranscript, live.KindClose}
	got := rec.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	rec.mu.Lock()
	warning := rec.events[1].(live.WarningEvent)
	rec.mu.Unlock()
	if warning.Code != live.WarnDecodeFailed {
		t.Errorf("warning code = %q, want %q", warning.Code, live.WarnDecodeFailed)
	}
}

func TestLiveSession_AbruptDisconnectClosesWith1006(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newListenTestServer(t, func(conn *websocket.Conn) {
		// Drop the TCP connection without a close frame.
		conn.Close()
	})
	defer closeServer()

	client := NewClient(WithAPIKey("sk-test"), WithBaseURL(serverURL))
	session := client.Listen.Live(nil)

	closeCh := make(chan live.CloseEvent, 1)
	session.On(live.KindClose, func(e live.Event) {
		closeCh <- e.(live.CloseEvent)
	})

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	select {
	case ev := <-closeCh:
		if ev.Code != websocket.CloseAbnormalClosure {
			t.Errorf("close code = %d, want %d", ev.Code, websocket.CloseAbnormalClosure)
		}
		if ev.Err == nil {
			t.Errorf("abnormal close should carry the transport error")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no Close event after abrupt disconnect")
	}
}

func TestLiveSession_FinishSendsSingleTerminalFrame(t *testing.T) {
	t.Parallel()

	terminalFrames := make(chan int, 1)
	serverURL, closeServer := newListenTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()

		count := 0
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if msgType == websocket.BinaryMessage && len(data) == 0 {
				count++
				// Give a racing second Finish a moment to (wrongly) send
				// another terminal frame before we close.
				conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
			}
		}
		terminalFrames <- count
		sendServerClose(conn, websocket.CloseNormalClosure, "")
	})
	defer closeServer()

	client := NewClient(WithAPIKey("sk-test"), WithBaseURL(serverURL))
	session := client.Listen.Live(nil)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.Finish(context.Background())
		}()
	}
	wg.Wait()

	select {
	case count := <-terminalFrames:
		if count != 1 {
			t.Fatalf("server saw %d terminal frames, want exactly 1", count)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server never reported")
	}
}

func TestLiveSession_FinishTimeoutForcesClose(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newListenTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		// Swallow everything and never close, simulating a stuck server.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer closeServer()

	client := NewClient(
		WithAPIKey("sk-test"),
		WithBaseURL(serverURL),
		WithFinishTimeout(100*time.Millisecond),
	)
	session := client.Listen.Live(nil)

	closeCh := make(chan live.CloseEvent, 1)
	session.On(live.KindClose, func(e live.Event) {
		closeCh <- e.(live.CloseEvent)
	})

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	err := session.Finish(context.Background())
	if !errors.Is(err, ErrFinishTimeout) {
		t.Fatalf("Finish error = %v, want ErrFinishTimeout", err)
	}
	if session.State() != live.StateClosed {
		t.Errorf("state = %v, want closed", session.State())
	}

	select {
	case ev := <-closeCh:
		if !errors.Is(ev.Err, ErrFinishTimeout) {
			t.Errorf("close event err = %v, want ErrFinishTimeout", ev.Err)
		}
	default:
		t.Fatalf("Close event not published before Finish returned")
	}
}

func TestLiveSession_CloseIsIdempotentAndSingleCloseEvent(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newListenTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer closeServer()

	client := NewClient(WithAPIKey("sk-test"), WithBaseURL(serverURL))
	session := client.Listen.Live(nil)

	var mu sync.Mutex
	closeEvents := 0
	session.On(live.KindClose, func(live.Event) {
		mu.Lock()
		closeEvents++
		mu.Unlock()
	})

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	for range 3 {
		if err := session.Close(); err != nil {
			t.Fatalf("Close error: %v", err)
		}
	}
	// The read goroutine races the explicit Close; give it time to lose.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if closeEvents != 1 {
		t.Fatalf("close events = %d, want exactly 1", closeEvents)
	}
}

func TestLiveSession_KeepAliveFramesSent(t *testing.T) {
	t.Parallel()

	keepalives := make(chan struct{}, 8)
	serverURL, closeServer := newListenTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType == websocket.TextMessage && strings.Contains(string(data), "KeepAlive") {
				select {
				case keepalives <- struct{}{}:
				default:
				}
			}
		}
	})
	defer closeServer()

	client := NewClient(
		WithAPIKey("sk-test"),
		WithBaseURL(serverURL),
		WithKeepAlive(20*time.Millisecond),
	)
	session := client.Listen.Live(nil)
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer session.Close()

	select {
	case <-keepalives:
	case <-time.After(2 * time.Second):
		t.Fatalf("no KeepAlive frame observed")
	}
}

func TestLiveSession_ServerErrorMessageKeepsStreamOpen(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newListenTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Error","description":"audio too quiet","variant":"DATA-0002"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{
			"type": "Results",
			"channel": {"alternatives": [{"transcript": "after error"}]}
		}`))
		sendServerClose(conn, websocket.CloseNormalClosure, "")
		conn.ReadMessage()
	})
	defer closeServer()

	client := NewClient(WithAPIKey("sk-test"), WithBaseURL(serverURL))
	session := client.Listen.Live(nil)

	rec := &eventRecorder{}
	rec.subscribeAll(session)

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not close")
	}

	want := []live.EventKind{live.KindOpen, live.KindError, live.KindTranscript, live.KindClose}
	got := rec.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestLiveSession_UnknownMessageTypeIsWarning(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newListenTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"BrandNewThing","x":1}`))
		sendServerClose(conn, websocket.CloseNormalClosure, "")
		conn.ReadMessage()
	})
	defer closeServer()

	client := NewClient(WithAPIKey("sk-test"), WithBaseURL(serverURL))
	session := client.Listen.Live(nil)

	warnCh := make(chan live.WarningEvent, 1)
	session.On(live.KindWarning, func(e live.Event) {
		warnCh <- e.(live.WarningEvent)
	})

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not close")
	}

	select {
	case w := <-warnCh:
		if w.Code != live.WarnUnhandled {
			t.Errorf("warning code = %q, want %q", w.Code, live.WarnUnhandled)
		}
		if !strings.Contains(w.Message, "BrandNewThing") {
			t.Errorf("warning message = %q, should name the unknown type", w.Message)
		}
	default:
		t.Fatalf("no warning for unknown message type")
	}
}

func TestLiveSession_WSURLCarriesOptions(t *testing.T) {
	t.Parallel()

	gotQuery := make(chan string, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery <- r.URL.RawQuery
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sendServerClose(conn, websocket.CloseNormalClosure, "")
		conn.Close()
	}))
	defer server.Close()

	client := NewClient(WithAPIKey("sk-test"), WithBaseURL(server.URL))
	session := client.Listen.Live(&LiveTranscriptionOptions{
		Model:          "auralis-general",
		SampleRate:     16000,
		InterimResults: true,
	})
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer session.Close()

	query := <-gotQuery
	for _, want := range []string{"model=auralis-general", "sample_rate=16000", "interim_results=true"} {
		if !strings.Contains(query, want) {
			t.Errorf("query = %q, missing %q", query, want)
		}
	}
}
