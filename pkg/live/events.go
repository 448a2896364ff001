// Package live provides the building blocks of a live transcription
// session: the typed event bus callers subscribe to and the connection
// lifecycle state machine. The websocket plumbing itself lives in the sdk
// package; the wire format in pkg/live/protocol.
package live

import (
	"encoding/json"

	"github.com/auralis-ai/auralis-go/pkg/live/protocol"
)

// EventKind identifies a notification callers may subscribe to. The set is
// closed; payload shapes are statically tied to the kind.
type EventKind string

const (
	KindOpen          EventKind = "Open"
	KindClose         EventKind = "Close"
	KindTranscript    EventKind = "Transcript"
	KindMetadata      EventKind = "Metadata"
	KindSpeechStarted EventKind = "SpeechStarted"
	KindUtteranceEnd  EventKind = "UtteranceEnd"
	KindError         EventKind = "Error"
	KindWarning       EventKind = "Warning"
)

// Event is a notification delivered to subscribed listeners. Events are
// immutable once constructed; listeners must treat them as read-only.
type Event interface {
	Kind() EventKind
}

// OpenEvent fires once when the websocket handshake completes.
type OpenEvent struct{}

func (OpenEvent) Kind() EventKind { return KindOpen }

// CloseEvent fires exactly once per session, whichever side initiated the
// close. Code is the websocket close code observed (1000 for a normal
// close, 1006 when the transport died without a close frame). Err carries
// the underlying transport error when there was one.
type CloseEvent struct {
	Code   int
	Reason string
	Err    error
}

func (CloseEvent) Kind() EventKind { return KindClose }

// TranscriptEvent carries one interim or final transcript result.
type TranscriptEvent struct {
	Result protocol.Results
}

func (TranscriptEvent) Kind() EventKind { return KindTranscript }

// MetadataEvent carries the stream-level metadata summary.
type MetadataEvent struct {
	Metadata protocol.Metadata
}

func (MetadataEvent) Kind() EventKind { return KindMetadata }

// SpeechStartedEvent signals detected voice activity.
type SpeechStartedEvent struct {
	Info protocol.SpeechStarted
}

func (SpeechStartedEvent) Kind() EventKind { return KindSpeechStarted }

// UtteranceEndEvent signals the end of an utterance.
type UtteranceEndEvent struct {
	Info protocol.UtteranceEnd
}

func (UtteranceEndEvent) Kind() EventKind { return KindUtteranceEnd }

// ErrorEvent carries a server-reported error message.
type ErrorEvent struct {
	Message protocol.ErrorMessage
}

func (ErrorEvent) Kind() EventKind { return KindError }

// Warning codes used by the session and bus.
const (
	WarnServer        = "server_warning"
	WarnDecodeFailed  = "decode_failed"
	WarnListenerPanic = "listener_panic"
	WarnUnhandled     = "unhandled_frame"
)

// WarningEvent reports a non-fatal problem: a malformed inbound frame, an
// unknown message type, a server warning, or a listener that panicked.
// The connection stays open.
type WarningEvent struct {
	Code    string
	Message string
	Err     error
	Raw     json.RawMessage
}

func (WarningEvent) Kind() EventKind { return KindWarning }
