// Command wsclient streams a WAV file to a running translation server the
// way a microphone would and saves every translated utterance it receives.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/internal/audio"
)

type options struct {
	server   string
	file     string
	target   string
	token    string
	outDir   string
	chunk    time.Duration
	realtime bool
	drain    time.Duration
	play     bool
}

func main() {
	godotenv.Load()

	opts := options{}
	flag.StringVar(&opts.server, "server", "ws://localhost:8000/ws/translate", "translation websocket endpoint")
	flag.StringVar(&opts.file, "file", "", "16 kHz mono WAV file to stream")
	flag.StringVar(&opts.target, "tgt", "", "target language, server default when empty")
	flag.StringVar(&opts.token, "token", os.Getenv("JURUBAHASA_TOKEN"), "bearer token when the server requires auth")
	flag.StringVar(&opts.outDir, "out", "translations", "directory for received WAV files")
	flag.DurationVar(&opts.chunk, "chunk", 100*time.Millisecond, "audio duration per websocket frame")
	flag.BoolVar(&opts.realtime, "realtime", true, "pace frames at the speed of speech")
	flag.DurationVar(&opts.drain, "drain", 30*time.Second, "how long to wait for outstanding translations")
	flag.BoolVar(&opts.play, "play", os.Getenv("NO_AUTOPLAY") != "true", "play translations as they arrive")
	flag.Parse()

	// Create logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if opts.file == "" {
		logger.Fatal("-file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Streaming failed", zap.Error(err))
	}
}

func run(ctx context.Context, opts options, logger *zap.Logger) error {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.file, err)
	}
	samples, sampleRate, err := audio.DecodeWAV(data)
	if err != nil {
		return err
	}
	if sampleRate != entities.SampleRate {
		return fmt.Errorf("expected %d Hz audio, got %d Hz; resample with: ffmpeg -i %s -ar %d -ac 1 out.wav",
			entities.SampleRate, sampleRate, opts.file, entities.SampleRate)
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	endpoint, err := url.Parse(opts.server)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	if opts.target != "" {
		query := endpoint.Query()
		query.Set("tgt_lang", opts.target)
		endpoint.RawQuery = query.Encode()
	}

	header := http.Header{}
	if opts.token != "" {
		header.Set("Authorization", "Bearer "+opts.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer conn.Close()

	logger.Info("Connected",
		zap.String("server", endpoint.String()),
		zap.Duration("audio", entities.SamplesToDuration(len(samples))))

	var detected, received, failed atomic.Int64
	sent := make(chan struct{})
	playback := make(chan string, 16)

	g, gctx := errgroup.WithContext(ctx)
	stopClose := context.AfterFunc(gctx, func() { conn.Close() })
	defer stopClose()

	g.Go(func() error {
		defer close(playback)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-sent:
					return nil
				default:
					return fmt.Errorf("connection closed while streaming: %w", err)
				}
			}

			switch messageType {
			case websocket.TextMessage:
				handleEvent(message, &detected, &failed, logger)
			case websocket.BinaryMessage:
				n := received.Add(1)
				filename := filepath.Join(opts.outDir, fmt.Sprintf("utterance_%03d.wav", n))
				if err := os.WriteFile(filename, message, 0o644); err != nil {
					return fmt.Errorf("failed to save translation: %w", err)
				}
				fmt.Printf("✅ Translation %d saved to %s (%d bytes)\n", n, filename, len(message))
				if opts.play {
					playback <- filename
				}
			}
		}
	})

	g.Go(func() error {
		for filename := range playback {
			if err := playAudioFile(filename, logger); err != nil {
				logger.Warn("Failed to play audio automatically", zap.Error(err))
				printPlaybackInstructions(filename)
			}
		}
		return nil
	})

	g.Go(func() error {
		err := stream(gctx, conn, samples, opts, logger)
		if err == nil {
			waitForTranslations(gctx, &detected, &received, &failed, opts.drain, logger)
		}
		close(sent)
		if err != nil {
			conn.Close()
			return err
		}

		closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(time.Second))
		return conn.Close()
	})

	err = g.Wait()
	fmt.Printf("🎵 %d utterances detected, %d translations received, %d failed\n", detected.Load(), received.Load(), failed.Load())
	return err
}

// stream sends samples as float32 frames followed by enough silence for
// the server to close the final utterance.
func stream(ctx context.Context, conn *websocket.Conn, samples []float32, opts options, logger *zap.Logger) error {
	chunkSamples := int(opts.chunk.Seconds() * entities.SampleRate)
	if chunkSamples <= 0 {
		chunkSamples = entities.WindowSize
	}
	tail := make([]float32, entities.SampleRate)
	samples = append(samples, tail...)

	ticker := time.NewTicker(opts.chunk)
	defer ticker.Stop()

	frames := 0
	for offset := 0; offset < len(samples); offset += chunkSamples {
		end := min(offset+chunkSamples, len(samples))
		if err := conn.WriteMessage(websocket.BinaryMessage, audio.EncodeFloat32LE(samples[offset:end])); err != nil {
			return fmt.Errorf("failed to send audio: %w", err)
		}
		frames++

		if opts.realtime {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	logger.Info("Finished streaming audio", zap.Int("frames", frames))
	return nil
}

func waitForTranslations(ctx context.Context, detected, received, failed *atomic.Int64, drain time.Duration, logger *zap.Logger) {
	deadline := time.NewTimer(drain)
	defer deadline.Stop()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for received.Load()+failed.Load() < detected.Load() {
		select {
		case <-ticker.C:
		case <-deadline.C:
			logger.Warn("Gave up waiting for translations",
				zap.Int64("detected", detected.Load()),
				zap.Int64("received", received.Load()))
			return
		case <-ctx.Done():
			return
		}
	}
}

func handleEvent(message []byte, detected, failed *atomic.Int64, logger *zap.Logger) {
	var event map[string]any
	if err := json.Unmarshal(message, &event); err != nil {
		logger.Warn("Received malformed event", zap.ByteString("message", message))
		return
	}

	switch event["type"] {
	case "session_started":
		logger.Info("Session started",
			zap.Any("sessionID", event["session_id"]),
			zap.Any("targetLanguage", event["tgt_lang"]))
	case "utterance_detected":
		detected.Add(1)
		logger.Info("Utterance detected",
			zap.Any("seq", event["seq"]),
			zap.Any("durationMs", event["duration_ms"]))
	case "utterance_translated":
		logger.Info("Utterance translated",
			zap.Any("seq", event["seq"]),
			zap.Any("latencyMs", event["latency_ms"]))
	case "error":
		if event["error_code"] == "translation_failed" {
			failed.Add(1)
		}
		logger.Warn("Server error",
			zap.Any("code", event["error_code"]),
			zap.Any("seq", event["seq"]),
			zap.Any("message", event["message"]))
	default:
		logger.Debug("Event", zap.ByteString("message", message))
	}
}

// audioPlayer represents an audio player command and its arguments
type audioPlayer struct {
	command string
	args    []string
}

// getAudioPlayers returns a list of WAV capable players to try
func getAudioPlayers() []audioPlayer {
	return []audioPlayer{
		// SoX play command (most common)
		{"play", []string{"-q"}},
		// FFplay (part of FFmpeg)
		{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
		// ALSA aplay (Linux)
		{"aplay", []string{"-q"}},
		// macOS
		{"afplay", []string{}},
	}
}

// playAudioFile plays a WAV file with the first available system player
func playAudioFile(filename string, logger *zap.Logger) error {
	for _, player := range getAudioPlayers() {
		if !isCommandAvailable(player.command) {
			continue
		}

		args := append(player.args, filename)
		logger.Debug("Attempting to play audio",
			zap.String("player", player.command),
			zap.Strings("args", args))

		err := exec.Command(player.command, args...).Run()
		if err == nil {
			return nil
		}
		logger.Debug("Player failed",
			zap.String("player", player.command),
			zap.Error(err))
	}

	return fmt.Errorf("no suitable audio player found")
}

// isCommandAvailable checks if a command is available in the system PATH
func isCommandAvailable(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}

func printPlaybackInstructions(filename string) {
	fmt.Printf("⚠️  Could not auto-play audio. You can manually play it with:\n")
	fmt.Printf("  play %s\n", filename)
	fmt.Printf("  ffplay -nodisp -autoexit %s\n", filename)
	if runtime.GOOS == "linux" {
		fmt.Printf("  aplay %s\n", filename)
	}
}
