// Command auralis-live streams raw PCM audio from a file or stdin to the
// Auralis live transcription API and prints transcripts as they arrive.
//
// Usage:
//
//	auralis-live -input audio.raw
//	ffmpeg -i talk.wav -f s16le -ar 16000 -ac 1 - | auralis-live -input -
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/auralis-ai/auralis-go/internal/dotenv"
	"github.com/auralis-ai/auralis-go/pkg/live"
	"github.com/auralis-ai/auralis-go/pkg/metrics"
	auralis "github.com/auralis-ai/auralis-go/sdk"
)

type options struct {
	configPath string
	input      string
	baseURL    string
	apiKey     string
	model      string
	language   string
	encoding   string
	sampleRate int
	channels   int
	interim    bool
	realtime   bool
	debug      bool
}

func main() {
	os.Exit(runMain())
}

func runMain() int {
	loadEnvFileBestEffort()

	var opt options
	flag.StringVar(&opt.configPath, "config", "", "Config file (YAML or JSON; also reads AURALIS_CONFIG)")
	flag.StringVar(&opt.input, "input", "", "Raw PCM input file, or - for stdin; required")
	flag.StringVar(&opt.baseURL, "base-url", "", "API base URL (default: production)")
	flag.StringVar(&opt.apiKey, "api-key", "", "API key (also reads AURALIS_API_KEY)")
	flag.StringVar(&opt.model, "model", "", "Transcription model")
	flag.StringVar(&opt.language, "lang", "", "Audio language")
	flag.StringVar(&opt.encoding, "encoding", "", "Audio encoding (default: linear16)")
	flag.IntVar(&opt.sampleRate, "sample-rate", 0, "Audio sample rate in Hz (default: 16000)")
	flag.IntVar(&opt.channels, "channels", 0, "Audio channel count (default: 1)")
	flag.BoolVar(&opt.interim, "interim", true, "Print interim results")
	flag.BoolVar(&opt.realtime, "realtime", true, "Pace chunks at the audio rate instead of sending as fast as possible")
	flag.BoolVar(&opt.debug, "debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := LoadConfig(opt.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "auralis-live: %v\n", err)
		return 1
	}
	applyFlags(cfg, &opt)

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if opt.input == "" {
		fmt.Fprintln(os.Stderr, "auralis-live: -input is required")
		flag.Usage()
		return 2
	}

	in, closeIn, err := openInput(opt.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "auralis-live: %v\n", err)
		return 1
	}
	defer closeIn()

	m := metrics.NewMetrics("")
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, m, logger)
	}

	clientOpts := []auralis.ClientOption{
		auralis.WithLogger(logger),
		auralis.WithMetrics(m),
	}
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, auralis.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, auralis.WithBaseURL(cfg.BaseURL))
	}
	if cfg.KeepAlive {
		clientOpts = append(clientOpts, auralis.WithKeepAlive(time.Duration(cfg.KeepAliveIntervalMS)*time.Millisecond))
	}
	if cfg.FinishTimeoutMS > 0 {
		clientOpts = append(clientOpts, auralis.WithFinishTimeout(time.Duration(cfg.FinishTimeoutMS)*time.Millisecond))
	}
	client := auralis.NewClient(clientOpts...)

	session := client.Listen.Live(&auralis.LiveTranscriptionOptions{
		Model:          cfg.Model,
		Language:       cfg.Language,
		Encoding:       cfg.Encoding,
		SampleRate:     cfg.SampleRate,
		Channels:       cfg.Channels,
		InterimResults: cfg.InterimResults,
		Punctuate:      cfg.Punctuate,
		SmartFormat:    cfg.SmartFormat,
	})

	session.On(live.KindTranscript, func(e live.Event) {
		t := e.(live.TranscriptEvent)
		text := t.Result.Transcript()
		if text == "" {
			return
		}
		if t.Result.IsFinal {
			fmt.Printf("%s\n", text)
		} else if opt.interim {
			fmt.Printf("\t... %s\n", text)
		}
	})
	session.On(live.KindMetadata, func(e live.Event) {
		md := e.(live.MetadataEvent)
		logger.Info("stream metadata", "request_id", md.Metadata.RequestID, "duration", md.Metadata.Duration)
	})
	session.On(live.KindError, func(e live.Event) {
		ev := e.(live.ErrorEvent)
		logger.Error("server error", "description", ev.Message.Description, "variant", ev.Message.Variant)
	})
	session.On(live.KindWarning, func(e live.Event) {
		w := e.(live.WarningEvent)
		logger.Warn("session warning", "code", w.Code, "message", w.Message, "error", w.Err)
	})
	session.On(live.KindClose, func(e live.Event) {
		c := e.(live.CloseEvent)
		logger.Debug("session closed", "code", c.Code, "reason", c.Reason)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "auralis-live: connect: %v\n", err)
		return 1
	}
	defer session.Close()

	if err := streamAudio(ctx, session, in, cfg, opt.realtime); err != nil {
		fmt.Fprintf(os.Stderr, "auralis-live: stream: %v\n", err)
		return 1
	}

	finishCtx := context.Background()
	if err := session.Finish(finishCtx); err != nil {
		if errors.Is(err, auralis.ErrFinishTimeout) {
			logger.Warn("server did not close in time, forced shutdown")
			return 0
		}
		fmt.Fprintf(os.Stderr, "auralis-live: finish: %v\n", err)
		return 1
	}
	return 0
}

// streamAudio reads fixed-size chunks and sends them to the session,
// pacing at the audio rate when realtime is set. A canceled ctx (Ctrl-C)
// ends the stream cleanly.
func streamAudio(ctx context.Context, session *auralis.LiveSession, in io.Reader, cfg *Config, realtime bool) error {
	chunk := make([]byte, cfg.ChunkBytes)
	var ticker *time.Ticker
	if realtime && cfg.ChunkIntervalMS > 0 {
		ticker = time.NewTicker(time.Duration(cfg.ChunkIntervalMS) * time.Millisecond)
		defer ticker.Stop()
	}

	for {
		n, err := io.ReadFull(in, chunk)
		if n > 0 {
			if sendErr := session.Send(chunk[:n]); sendErr != nil {
				return sendErr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-session.Done():
				return nil
			case <-ticker.C:
			}
		} else {
			select {
			case <-ctx.Done():
				return nil
			case <-session.Done():
				return nil
			default:
			}
		}
	}
}

func applyFlags(cfg *Config, opt *options) {
	if opt.baseURL != "" {
		cfg.BaseURL = opt.baseURL
	}
	if opt.apiKey != "" {
		cfg.APIKey = opt.apiKey
	}
	if opt.model != "" {
		cfg.Model = opt.model
	}
	if opt.language != "" {
		cfg.Language = opt.language
	}
	if opt.encoding != "" {
		cfg.Encoding = opt.encoding
	}
	if opt.sampleRate > 0 {
		cfg.SampleRate = opt.sampleRate
	}
	if opt.channels > 0 {
		cfg.Channels = opt.channels
	}
	if opt.debug {
		cfg.Debug = true
	}
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, f.Close, nil
}

func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

func loadEnvFileBestEffort() {
	for _, candidate := range []string{".env", ".env.local"} {
		if err := dotenv.LoadFile(candidate); err != nil {
			fmt.Fprintf(os.Stderr, "auralis-live: %v\n", err)
		}
	}
}
