package auralis

import (
	"github.com/auralis-ai/auralis-go/pkg/live/protocol"
)

// LiveTranscriptionOptions configures a live streaming session. Fields map
// one-to-one onto /v1/listen query parameters via their url tags.
type LiveTranscriptionOptions struct {
	Model          string   `url:"model,omitempty"`
	Version        string   `url:"version,omitempty"`
	Language       string   `url:"language,omitempty"`
	Tier           string   `url:"tier,omitempty"`
	Encoding       string   `url:"encoding,omitempty"`
	SampleRate     int      `url:"sample_rate,omitempty"`
	Channels       int      `url:"channels,omitempty"`
	Multichannel   bool     `url:"multichannel,omitempty"`
	Punctuate      bool     `url:"punctuate,omitempty"`
	SmartFormat    bool     `url:"smart_format,omitempty"`
	Diarize        bool     `url:"diarize,omitempty"`
	InterimResults bool     `url:"interim_results,omitempty"`
	VADEvents      bool     `url:"vad_events,omitempty"`
	UtteranceEndMs int      `url:"utterance_end_ms,omitempty"`
	Endpointing    string   `url:"endpointing,omitempty"`
	Keywords       []string `url:"keywords,omitempty"`
	Tags           []string `url:"tag,omitempty"`
}

// PrerecordedOptions configures a prerecorded transcription request.
type PrerecordedOptions struct {
	Model           string   `url:"model,omitempty"`
	Version         string   `url:"version,omitempty"`
	Language        string   `url:"language,omitempty"`
	Tier            string   `url:"tier,omitempty"`
	DetectLanguage  bool     `url:"detect_language,omitempty"`
	Multichannel    bool     `url:"multichannel,omitempty"`
	Punctuate       bool     `url:"punctuate,omitempty"`
	SmartFormat     bool     `url:"smart_format,omitempty"`
	Diarize         bool     `url:"diarize,omitempty"`
	Paragraphs      bool     `url:"paragraphs,omitempty"`
	Utterances      bool     `url:"utterances,omitempty"`
	ProfanityFilter bool     `url:"profanity_filter,omitempty"`
	Redact          []string `url:"redact,omitempty"`
	Search          []string `url:"search,omitempty"`
	Keywords        []string `url:"keywords,omitempty"`
	Callback        string   `url:"callback,omitempty"`
	Tags            []string `url:"tag,omitempty"`
}

// URLSource points the transcription service at remotely hosted audio.
type URLSource struct {
	URL string `json:"url"`
}

// PrerecordedResponse is the result of a prerecorded transcription. The
// per-channel result shape is shared with the live Results message.
type PrerecordedResponse struct {
	Metadata protocol.Metadata  `json:"metadata"`
	Results  PrerecordedResults `json:"results"`
}

// PrerecordedResults carries per-channel transcripts and, when requested,
// utterance segmentation.
type PrerecordedResults struct {
	Channels   []protocol.ChannelResult `json:"channels"`
	Utterances []Utterance              `json:"utterances,omitempty"`
}

// Utterance is one contiguous stretch of speech from a single speaker.
type Utterance struct {
	Start      float64         `json:"start"`
	End        float64         `json:"end"`
	Confidence float64         `json:"confidence"`
	Channel    int             `json:"channel"`
	Transcript string          `json:"transcript"`
	Words      []protocol.Word `json:"words,omitempty"`
	Speaker    *int            `json:"speaker,omitempty"`
	ID         string          `json:"id,omitempty"`
}

// Transcript returns the top alternative's transcript for the first
// channel, or "" when the response carries none.
func (r *PrerecordedResponse) Transcript() string {
	if r == nil || len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return ""
	}
	return r.Results.Channels[0].Alternatives[0].Transcript
}
