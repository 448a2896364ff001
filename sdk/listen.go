package auralis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

const listenPath = "/v1/listen"

// ListenService provides speech-to-text transcription: prerecorded audio
// over REST and live audio over a websocket session.
type ListenService struct {
	client *Client
}

// FromURL transcribes audio hosted at a remote URL.
func (s *ListenService) FromURL(ctx context.Context, source string, opts *PrerecordedOptions) (*PrerecordedResponse, error) {
	if source == "" {
		return nil, NewInvalidRequestError("source URL is required")
	}
	body, err := json.Marshal(URLSource{URL: source})
	if err != nil {
		return nil, NewInvalidRequestError(fmt.Sprintf("encode source: %v", err))
	}
	q, err := encodeQuery(opts)
	if err != nil {
		return nil, err
	}

	var out PrerecordedResponse
	err = s.client.doJSON(ctx, apiRequest{
		method:      http.MethodPost,
		path:        listenPath,
		query:       q,
		body:        bytes.NewReader(body),
		contentType: "application/json",
		endpoint:    "listen.prerecorded",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FromReader transcribes raw audio read from r. mimeType describes the
// audio container, e.g. "audio/wav".
func (s *ListenService) FromReader(ctx context.Context, r io.Reader, mimeType string, opts *PrerecordedOptions) (*PrerecordedResponse, error) {
	if r == nil {
		return nil, NewInvalidRequestError("audio reader is required")
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	q, err := encodeQuery(opts)
	if err != nil {
		return nil, err
	}

	var out PrerecordedResponse
	err = s.client.doJSON(ctx, apiRequest{
		method:      http.MethodPost,
		path:        listenPath,
		query:       q,
		body:        r,
		contentType: mimeType,
		endpoint:    "listen.prerecorded",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FromFile transcribes a local audio file. The MIME type is inferred from
// the file extension.
func (s *ListenService) FromFile(ctx context.Context, path string, opts *PrerecordedOptions) (*PrerecordedResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewInvalidRequestError(fmt.Sprintf("open audio file: %v", err))
	}
	defer f.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	return s.FromReader(ctx, f, mimeType, opts)
}

// Live creates a live transcription session. No network I/O happens here;
// register handlers with On, then call Connect to dial.
func (s *ListenService) Live(opts *LiveTranscriptionOptions) *LiveSession {
	return newLiveSession(s.client, opts)
}
