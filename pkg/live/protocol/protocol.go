// Package protocol defines the live transcription wire protocol: the JSON
// messages the server pushes over the websocket and the frame encoding the
// client sends back (binary audio, the zero-length terminal frame, and JSON
// control frames).
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FrameType identifies the transport-level frame kind. Values match the
// RFC 6455 opcodes used by gorilla/websocket (TextMessage, BinaryMessage).
type FrameType int

const (
	FrameText   FrameType = 1
	FrameBinary FrameType = 2
)

// Server message type discriminators.
const (
	MessageTypeResults       = "Results"
	MessageTypeMetadata      = "Metadata"
	MessageTypeSpeechStarted = "SpeechStarted"
	MessageTypeUtteranceEnd  = "UtteranceEnd"
	MessageTypeError         = "Error"
	MessageTypeWarning       = "Warning"
)

// Client control frame types.
const (
	ControlKeepAlive = "KeepAlive"
	ControlFinalize  = "Finalize"
)

// DecodeError reports an inbound frame that could not be parsed. The
// connection stays usable; the session surfaces it as a warning.
type DecodeError struct {
	Code    string
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message is a decoded server frame.
type Message interface {
	MessageType() string
}

// Word is a single transcribed word with timing.
type Word struct {
	Word           string  `json:"word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	PunctuatedWord string  `json:"punctuated_word,omitempty"`
}

// Alternative is one transcription hypothesis for a channel.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`
}

// ChannelResult carries the alternatives decoded for one audio channel.
type ChannelResult struct {
	Alternatives []Alternative `json:"alternatives"`
}

// ModelInfo describes the model that produced a result.
type ModelInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Arch    string `json:"arch,omitempty"`
}

// ResultsMetadata is the per-result metadata block attached to Results frames.
type ResultsMetadata struct {
	RequestID string `json:"request_id,omitempty"`
	ModelUUID string `json:"model_uuid,omitempty"`
}

// Results is an interim or final transcript for a stretch of audio.
type Results struct {
	Type         string           `json:"type"`
	ChannelIndex []int            `json:"channel_index,omitempty"`
	Duration     float64          `json:"duration,omitempty"`
	Start        float64          `json:"start,omitempty"`
	IsFinal      bool             `json:"is_final,omitempty"`
	SpeechFinal  bool             `json:"speech_final,omitempty"`
	Channel      ChannelResult    `json:"channel"`
	Metadata     *ResultsMetadata `json:"metadata,omitempty"`
}

func (Results) MessageType() string { return MessageTypeResults }

// Transcript returns the top alternative's transcript, trimmed.
func (r Results) Transcript() string {
	if len(r.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Channel.Alternatives[0].Transcript)
}

// Metadata is the stream-level summary the server sends when it finalizes.
type Metadata struct {
	Type           string               `json:"type"`
	TransactionKey string               `json:"transaction_key,omitempty"`
	RequestID      string               `json:"request_id,omitempty"`
	SHA256         string               `json:"sha256,omitempty"`
	Created        string               `json:"created,omitempty"`
	Duration       float64              `json:"duration,omitempty"`
	Channels       int                  `json:"channels,omitempty"`
	Models         []string             `json:"models,omitempty"`
	ModelInfo      map[string]ModelInfo `json:"model_info,omitempty"`
}

func (Metadata) MessageType() string { return MessageTypeMetadata }

// SpeechStarted signals voice activity detected in the inbound audio.
type SpeechStarted struct {
	Type      string  `json:"type"`
	Channel   []int   `json:"channel,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

func (SpeechStarted) MessageType() string { return MessageTypeSpeechStarted }

// UtteranceEnd signals the end of a spoken utterance.
type UtteranceEnd struct {
	Type        string  `json:"type"`
	Channel     []int   `json:"channel,omitempty"`
	LastWordEnd float64 `json:"last_word_end,omitempty"`
}

func (UtteranceEnd) MessageType() string { return MessageTypeUtteranceEnd }

// ErrorMessage is a server-reported error. The server decides whether it
// also closes the stream; the message itself does not change client state.
type ErrorMessage struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Message     string `json:"message,omitempty"`
	Variant     string `json:"variant,omitempty"`
}

func (ErrorMessage) MessageType() string { return MessageTypeError }

// WarningMessage is a non-fatal server diagnostic.
type WarningMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (WarningMessage) MessageType() string { return MessageTypeWarning }

// Unhandled carries a frame whose type discriminator is unknown to this
// client version. Raw holds the whole frame.
type Unhandled struct {
	RawType string
	Raw     json.RawMessage
}

func (u Unhandled) MessageType() string { return u.RawType }

// Decode parses one inbound frame into a tagged message.
//
// A zero-length frame is a keepalive: Decode returns (nil, nil) and the
// caller skips it. A binary inbound frame is not part of the protocol and
// decodes to Unhandled. A text frame that is not valid JSON, or that lacks
// a type discriminator, yields a *DecodeError; the connection is still
// usable afterwards.
func Decode(frame FrameType, data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if frame != FrameText {
		return Unhandled{RawType: "binary", Raw: append(json.RawMessage(nil), data...)}, nil
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &DecodeError{Code: "bad_json", Message: "inbound frame is not valid JSON", Err: err}
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, &DecodeError{Code: "missing_type", Message: "inbound frame has no type discriminator"}
	}

	switch typ {
	case MessageTypeResults:
		var msg Results
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, &DecodeError{Code: "bad_results", Message: "decode Results frame", Err: err}
		}
		return msg, nil
	case MessageTypeMetadata:
		var msg Metadata
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, &DecodeError{Code: "bad_metadata", Message: "decode Metadata frame", Err: err}
		}
		return msg, nil
	case MessageTypeSpeechStarted:
		var msg SpeechStarted
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, &DecodeError{Code: "bad_speech_started", Message: "decode SpeechStarted frame", Err: err}
		}
		return msg, nil
	case MessageTypeUtteranceEnd:
		var msg UtteranceEnd
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, &DecodeError{Code: "bad_utterance_end", Message: "decode UtteranceEnd frame", Err: err}
		}
		return msg, nil
	case MessageTypeError:
		var msg ErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, &DecodeError{Code: "bad_error", Message: "decode Error frame", Err: err}
		}
		return msg, nil
	case MessageTypeWarning:
		var msg WarningMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, &DecodeError{Code: "bad_warning", Message: "decode Warning frame", Err: err}
		}
		return msg, nil
	default:
		return Unhandled{RawType: typ, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}

// EncodeAudio wraps raw audio bytes as a binary frame, unchanged.
func EncodeAudio(chunk []byte) (FrameType, []byte) {
	return FrameBinary, chunk
}

// EncodeFinish produces the zero-length binary frame that tells the server
// no more audio will be sent and finalization should begin.
func EncodeFinish() (FrameType, []byte) {
	return FrameBinary, []byte{}
}

// EncodeControl produces a JSON control frame such as KeepAlive or Finalize.
func EncodeControl(op string) (FrameType, []byte, error) {
	op = strings.TrimSpace(op)
	switch op {
	case ControlKeepAlive, ControlFinalize:
	default:
		return 0, nil, fmt.Errorf("unknown control frame type %q", op)
	}
	data, err := json.Marshal(struct {
		Type string `json:"type"`
	}{Type: op})
	if err != nil {
		return 0, nil, err
	}
	return FrameText, data, nil
}
