package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/jurubahasa/adapters"
	"github.com/satriahrh/jurubahasa/adapters/translator"
	"github.com/satriahrh/jurubahasa/adapters/vad/mock"
	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/domain/repositories"
	"github.com/satriahrh/jurubahasa/internal/audio"
	"github.com/satriahrh/jurubahasa/internal/pipeline"
	"github.com/satriahrh/jurubahasa/usecase"
)

type testServer struct {
	hub      *Hub
	model    *mock.Model
	sessions *adapters.MemorySessionRepository
	server   *httptest.Server
	cancel   context.CancelFunc
	stopped  chan struct{}
}

type failingTranslator struct{}

func (failingTranslator) TranslateUtterance(ctx context.Context, sessionID string, utt *entities.Utterance, targetLanguage string) ([]byte, error) {
	return nil, errors.New("engine unavailable")
}

func setupTestServer(t *testing.T, script []repositories.BoundaryEvent, origins ...string) *testServer {
	t.Helper()
	return setupTestServerWith(t, script, nil, origins...)
}

// setupTestServerWith uses the echo engine when tr is nil
func setupTestServerWith(t *testing.T, script []repositories.BoundaryEvent, tr pipeline.Translator, origins ...string) *testServer {
	t.Helper()
	logger := zap.NewNop()

	model := &mock.Model{NewClassifier: func() *mock.Classifier {
		return &mock.Classifier{Script: script}
	}}
	sessions := adapters.NewMemorySessionRepository(time.Hour)
	if tr == nil {
		tr = usecase.NewTranslationService(translator.NewEcho(translator.EchoConfig{}, logger), sessions, logger)
	}

	hub := NewHub(HubConfig{
		Model:                 model,
		Translator:            tr,
		Sessions:              sessions,
		SilenceMs:             500,
		SourceLanguage:        "deu",
		DefaultTargetLanguage: "eng",
		Engine:                "echo",
		AllowedOrigins:        origins,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	e := echo.New()
	e.GET("/ws/translate", func(c echo.Context) error {
		return hub.HandleTranslate(c, "tester")
	})
	server := httptest.NewServer(e)

	ts := &testServer{hub: hub, model: model, sessions: sessions, server: server, cancel: cancel, stopped: stopped}
	t.Cleanup(func() {
		cancel()
		<-stopped
		server.Close()
	})
	return ts
}

func (ts *testServer) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws/translate" + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket connection failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	return messageType, data
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	messageType, data := readFrame(t, conn)
	if messageType != websocket.TextMessage {
		t.Fatalf("Expected text frame, got type %d", messageType)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

func sendJSON(t *testing.T, conn *websocket.Conn, message string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
		t.Fatalf("Failed to send message: %v", err)
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("Timed out waiting for %s", what)
}

func constantWindows(n int, value float32) []float32 {
	samples := make([]float32, n*entities.WindowSize)
	for i := range samples {
		samples[i] = value
	}
	return samples
}

func TestHub_SessionStarted(t *testing.T) {
	ts := setupTestServer(t, nil)
	conn := ts.dial(t, "?tgt_lang=FRA")

	msg := readJSON(t, conn)
	if msg["type"] != string(MessageTypeSessionStarted) {
		t.Fatalf("Expected session_started, got %v", msg["type"])
	}
	if msg["tgt_lang"] != "fra" {
		t.Errorf("Expected tgt_lang fra, got %v", msg["tgt_lang"])
	}
	if msg["silence_ms"] != float64(500) {
		t.Errorf("Expected silence_ms 500, got %v", msg["silence_ms"])
	}

	sessionID, _ := msg["session_id"].(string)
	session, err := ts.sessions.GetByID(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Expected session record, got %v", err)
	}
	if session.TargetLanguage != "fra" || session.SourceLanguage != "deu" || session.ClientID != "tester" {
		t.Errorf("Unexpected session record %+v", session)
	}

	eventually(t, "client registration", func() bool { return ts.hub.ActiveClients() == 1 })
}

func TestHub_DefaultTargetLanguage(t *testing.T) {
	ts := setupTestServer(t, nil)
	conn := ts.dial(t, "")

	msg := readJSON(t, conn)
	if msg["tgt_lang"] != "eng" {
		t.Errorf("Expected default tgt_lang eng, got %v", msg["tgt_lang"])
	}
}

func TestHub_TranslatesUtterance(t *testing.T) {
	ts := setupTestServer(t, mock.Events(
		repositories.BoundaryStart,
		repositories.BoundaryNone,
		repositories.BoundaryEnd,
	))
	conn := ts.dial(t, "?tgt_lang=eng")
	started := readJSON(t, conn)
	sessionID, _ := started["session_id"].(string)

	// Split across frames to exercise the byte accumulator.
	payload := audio.EncodeFloat32LE(constantWindows(3, 0.1))
	for _, part := range [][]byte{payload[:1000], payload[1000:]} {
		if err := conn.WriteMessage(websocket.BinaryMessage, part); err != nil {
			t.Fatalf("Failed to send audio: %v", err)
		}
	}

	// utterance_detected and the audio may arrive in either order; the
	// utterance_translated report always follows the audio.
	var detected, report map[string]interface{}
	var translated []byte
	for detected == nil || report == nil {
		messageType, data := readFrame(t, conn)
		if messageType == websocket.BinaryMessage {
			translated = data
			continue
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		switch msg["type"] {
		case string(MessageTypeUtteranceDetected):
			detected = msg
		case string(MessageTypeUtteranceTranslated):
			if translated == nil {
				t.Fatal("Expected utterance_translated after the audio frame")
			}
			report = msg
		default:
			t.Fatalf("Unexpected message %v", msg)
		}
	}

	if report["seq"] != float64(1) || report["bytes"] != float64(len(translated)) {
		t.Errorf("Expected utterance_translated for seq 1 with %d bytes, got %v", len(translated), report)
	}

	if detected["type"] != string(MessageTypeUtteranceDetected) || detected["seq"] != float64(1) {
		t.Errorf("Unexpected utterance message %v", detected)
	}
	if detected["duration_ms"] != float64(96) {
		t.Errorf("Expected duration_ms 96, got %v", detected["duration_ms"])
	}

	samples, rate, err := audio.DecodeWAV(translated)
	if err != nil {
		t.Fatalf("Expected a WAV payload: %v", err)
	}
	if rate != entities.SampleRate || len(samples) != 3*entities.WindowSize {
		t.Errorf("Expected %d samples at %d Hz, got %d at %d", 3*entities.WindowSize, entities.SampleRate, len(samples), rate)
	}

	session, _ := ts.sessions.GetByID(context.Background(), sessionID)
	if session.Stats.Translated != 1 {
		t.Errorf("Expected 1 translated utterance in the session record, got %d", session.Stats.Translated)
	}
}

func TestHub_ControlMessages(t *testing.T) {
	ts := setupTestServer(t, nil)
	conn := ts.dial(t, "")
	readJSON(t, conn)

	sendJSON(t, conn, `{"type":"set_silence_duration","silence_ms":800}`)
	msg := readJSON(t, conn)
	if msg["type"] != string(MessageTypeConfigUpdated) || msg["silence_ms"] != float64(800) {
		t.Errorf("Expected config_updated with 800, got %v", msg)
	}

	sendJSON(t, conn, `{"type":"set_silence_duration","silence_ms":99}`)
	msg = readJSON(t, conn)
	if msg["type"] != string(MessageTypeError) || msg["error_code"] != ErrorCodeInvalidSilenceDuration {
		t.Errorf("Expected invalid_silence_duration error, got %v", msg)
	}

	sendJSON(t, conn, `{"type":"reset"}`)
	msg = readJSON(t, conn)
	if msg["type"] != string(MessageTypeResetDone) {
		t.Errorf("Expected reset_done, got %v", msg)
	}

	sendJSON(t, conn, `{"type":"ping"}`)
	msg = readJSON(t, conn)
	if msg["type"] != string(MessageTypePong) {
		t.Errorf("Expected pong, got %v", msg)
	}

	sendJSON(t, conn, `{invalid json}`)
	msg = readJSON(t, conn)
	if msg["error_code"] != ErrorCodeInvalidMessage {
		t.Errorf("Expected invalid_message error, got %v", msg)
	}

	sendJSON(t, conn, `{"type":"listening_start"}`)
	msg = readJSON(t, conn)
	if msg["error_code"] != ErrorCodeUnsupportedMessage {
		t.Errorf("Expected unsupported_message error, got %v", msg)
	}

	classifier := ts.model.Classifiers()[0]
	want := []int{8000, 12800}
	got := classifier.Silences()
	if len(got) != len(want) {
		t.Fatalf("Expected silence samples %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected silence samples %v, got %v", want, got)
		}
	}
	// One reset on connect and one requested by the client.
	if classifier.Resets() != 2 {
		t.Errorf("Expected 2 classifier resets, got %d", classifier.Resets())
	}
}

func TestHub_ResetsSegmenterOnConnect(t *testing.T) {
	ts := setupTestServer(t, nil)
	conn := ts.dial(t, "?tgt_lang=fra")
	readJSON(t, conn)

	classifiers := ts.model.Classifiers()
	if len(classifiers) != 1 {
		t.Fatalf("Expected 1 classifier, got %d", len(classifiers))
	}
	if classifiers[0].Resets() != 1 {
		t.Errorf("Expected classifier state reset once on connect, got %d", classifiers[0].Resets())
	}
}

func TestHub_TranslationFailureReported(t *testing.T) {
	ts := setupTestServerWith(t, mock.Events(
		repositories.BoundaryStart,
		repositories.BoundaryEnd,
		repositories.BoundaryStart,
		repositories.BoundaryEnd,
	), failingTranslator{})
	conn := ts.dial(t, "")
	readJSON(t, conn)

	for i := 0; i < 2; i++ {
		if err := conn.WriteMessage(websocket.BinaryMessage, audio.EncodeFloat32LE(constantWindows(2, 0.1))); err != nil {
			t.Fatalf("Failed to send audio: %v", err)
		}
	}

	var failed []float64
	for len(failed) < 2 {
		msg := readJSON(t, conn)
		switch msg["type"] {
		case string(MessageTypeUtteranceDetected):
		case string(MessageTypeError):
			if msg["error_code"] != ErrorCodeTranslationFailed {
				t.Fatalf("Expected translation_failed, got %v", msg)
			}
			seq, _ := msg["seq"].(float64)
			failed = append(failed, seq)
		default:
			t.Fatalf("Unexpected message %v", msg)
		}
	}

	if failed[0] != 1 || failed[1] != 2 {
		t.Errorf("Expected failures for utterances 1 and 2 in order, got %v", failed)
	}

	// The connection survives failed translations.
	sendJSON(t, conn, `{"type":"ping"}`)
	if msg := readJSON(t, conn); msg["type"] != string(MessageTypePong) {
		t.Errorf("Expected pong, got %v", msg)
	}
}

func TestHub_DisconnectClosesSession(t *testing.T) {
	ts := setupTestServer(t, nil)
	conn := ts.dial(t, "")
	started := readJSON(t, conn)
	sessionID, _ := started["session_id"].(string)

	eventually(t, "client registration", func() bool { return ts.hub.ActiveClients() == 1 })
	conn.Close()
	eventually(t, "client removal", func() bool { return ts.hub.ActiveClients() == 0 })

	eventually(t, "session close", func() bool {
		session, err := ts.sessions.GetByID(context.Background(), sessionID)
		return err == nil && session.Status == entities.SessionStatusClosed
	})
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ts := setupTestServer(t, nil)
	conn := ts.dial(t, "")
	readJSON(t, conn)
	eventually(t, "client registration", func() bool { return ts.hub.ActiveClients() == 1 })

	ts.cancel()
	select {
	case <-ts.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Hub did not stop")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected connection to be closed on shutdown")
	}

	wsURL := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws/translate"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("Expected new connections to be rejected after shutdown")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 after shutdown, got %v", resp)
	}
}

func TestHub_CheckOrigin(t *testing.T) {
	ts := setupTestServer(t, nil, "http://allowed.example")
	wsURL := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws/translate"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Error("Expected connection from a foreign origin to be rejected")
	}

	header = http.Header{"Origin": []string{"http://allowed.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Expected allowed origin to connect: %v", err)
	}
	conn.Close()
}

func TestSessionCleanupService(t *testing.T) {
	sessions := adapters.NewMemorySessionRepository(time.Millisecond)
	session := entities.NewTranslationSession("c", "", "eng", "echo")
	if err := sessions.Create(context.Background(), session); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	cleanup := NewSessionCleanupService(sessions, time.Hour, 10*time.Millisecond, zap.NewNop())
	cleanup.Start()
	eventually(t, "session expiry", func() bool {
		s, _ := sessions.GetByID(context.Background(), session.ID)
		return s.Status == entities.SessionStatusExpired
	})
	cleanup.Stop()
	cleanup.Stop()

	if count := cleanup.RunCleanup(); count != 0 {
		t.Errorf("Expected nothing left to expire, got %d", count)
	}
}
