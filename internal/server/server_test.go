package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/theguy000/QuillScribe/internal/audio"
	"github.com/theguy000/QuillScribe/internal/config"
	"github.com/theguy000/QuillScribe/internal/events"
	"github.com/theguy000/QuillScribe/internal/logging"
	"github.com/theguy000/QuillScribe/internal/models"
	"github.com/theguy000/QuillScribe/internal/pipeline"
	"github.com/theguy000/QuillScribe/internal/settings"
	"github.com/theguy000/QuillScribe/internal/storage"
	"github.com/theguy000/QuillScribe/internal/transcribe"
)

func TestMain(m *testing.M) {
	if err := logging.Initialize(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubEngine struct {
	text string
}

func (e *stubEngine) Transcribe(ctx context.Context, audioData []float32, sampleRate int) (string, error) {
	return e.text, nil
}
func (e *stubEngine) Engine() string { return "stub" }
func (e *stubEngine) Model() string  { return "stub-model" }
func (e *stubEngine) Close() error   { return nil }

type noopDispatch struct{}

func (noopDispatch) Dispatch(text string) (string, error) {
	return "Copied: " + text, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8090},
		Audio: config.AudioConfig{
			SampleRate:     16000,
			Channels:       1,
			ChunkSize:      1024,
			NoiseThreshold: 0.01,
			SilenceTimeout: 100 * time.Millisecond,
			LevelSmoothing: 0.7,
		},
		Output: config.OutputConfig{Mode: config.OutputCopy},
	}
}

func newTestServer(t *testing.T) (*Server, *storage.TranscriptionStore) {
	t.Helper()

	cfg := testConfig(t)

	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := storage.NewTranscriptionStore(db)

	settingsStore, err := settings.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("settings.NewStore() error = %v", err)
	}

	modelManager, err := models.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("models.NewManager() error = %v", err)
	}

	manager := pipeline.NewManager(cfg, transcribe.NewWorker(&stubEngine{text: "test transcript"}), noopDispatch{}, store, nil, nil)
	t.Cleanup(func() { manager.Close() })

	return New(cfg, manager, store, settingsStore, modelManager), store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "ok" {
		t.Errorf("status field = %v, want ok", health["status"])
	}
}

func TestSessionLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/session/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}

	// Second start conflicts
	rec = doJSON(t, h, http.MethodPost, "/api/session/start", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("double start status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/session/status", nil)
	var status pipeline.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.State != pipeline.StateRecording {
		t.Errorf("state = %q, want recording", status.State)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/session/stop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d", rec.Code)
	}

	// Stop without session conflicts
	rec = doJSON(t, h, http.MethodPost, "/api/session/stop", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("double stop status = %d, want 409", rec.Code)
	}

	// Toggle starts again
	rec = doJSON(t, h, http.MethodPost, "/api/session/toggle", nil)
	var toggleResp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &toggleResp); err != nil {
		t.Fatal(err)
	}
	if toggleResp["state"] != pipeline.StateRecording {
		t.Errorf("toggle state = %q, want recording", toggleResp["state"])
	}
}

func TestSessionEndpoints_MethodChecks(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	if rec := doJSON(t, h, http.MethodGet, "/api/session/start", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET start status = %d, want 405", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/session/status", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status status = %d, want 405", rec.Code)
	}
}

func TestIngestWAV(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()

	// One loud second so the level detector sees speech
	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = 0.5
	}
	wav, err := audio.EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/ingest/wav", bytes.NewReader(wav))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	// The transcript lands asynchronously
	deadline := time.After(3 * time.Second)
	for {
		count, err := store.Count(storage.ListOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if count > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("transcript never stored")
		case <-time.After(20 * time.Millisecond):
		}
	}

	list, err := store.List(storage.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if list[0].Text != "test transcript" {
		t.Errorf("stored text = %q", list[0].Text)
	}
}

func TestIngestWAV_Multipart(t *testing.T) {
	s, store := newTestServer(t)

	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = 0.5
	}
	wav, err := audio.EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatal(err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "utterance.wav")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(wav); err != nil {
		t.Fatal(err)
	}
	if err := form.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/ingest/wav", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	deadline := time.After(3 * time.Second)
	for {
		count, err := store.Count(storage.ListOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if count > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("transcript never stored")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestIngestWAV_RejectsGarbage(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/ingest/wav", strings.NewReader("not a wav"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTranscriptsAPI(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()

	event := seedTranscript(t, store, "s1", "hello api")

	rec := doJSON(t, h, http.MethodGet, "/api/transcripts?page=1&page_size=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list ListTranscriptsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || len(list.Transcripts) != 1 {
		t.Fatalf("list = %+v, want 1 transcript", list)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/transcripts/"+event.UUID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/transcripts/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/transcripts/"+event.UUID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/transcripts", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 0 {
		t.Errorf("total after delete = %d, want 0", list.Total)
	}
}

func TestTranscriptsAPI_Create(t *testing.T) {
	s, store := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/transcripts", map[string]interface{}{
		"session_id": "imported-1",
		"text":       "imported transcript",
		"engine":     "api",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	var created events.TranscriptionEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.UUID == "" {
		t.Error("created transcript should be assigned a UUID")
	}

	stored, err := store.GetByUUID(created.UUID)
	if err != nil {
		t.Fatalf("GetByUUID() error = %v", err)
	}
	if stored.Text != "imported transcript" {
		t.Errorf("stored text = %q", stored.Text)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/transcripts", map[string]interface{}{
		"text": "no session",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create without session status = %d, want 400", rec.Code)
	}
}

func TestSettingsAPI(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var all map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatal(err)
	}
	if _, ok := all["audio"]; !ok {
		t.Error("settings missing audio category")
	}

	rec = doJSON(t, h, http.MethodPatch, "/api/settings", updateSettingRequest{
		Path:  "output/silent_mode",
		Value: true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPatch, "/api/settings", updateSettingRequest{Value: true})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("patch without path status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/settings/reset", resetSettingsRequest{Category: "output"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatal(err)
	}
	output, _ := all["output"].(map[string]interface{})
	if output["silent_mode"] != false {
		t.Errorf("silent_mode after reset = %v, want false", output["silent_mode"])
	}
}

func TestModelsAPI(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/api/models", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if _, ok := resp["models"]; !ok {
		t.Error("response missing models")
	}

	rec = doJSON(t, h, http.MethodPost, "/api/models/nonexistent/download", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("download unknown status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/models/tiny", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/models/tiny/cancel", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cancel without download status = %d, want 404", rec.Code)
	}
}

func TestAudioSocket(t *testing.T) {
	s, store := newTestServer(t)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/audio"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	// Start recording over the socket
	if err := conn.WriteJSON(wsControl{Action: "start"}); err != nil {
		t.Fatal(err)
	}
	var status pipeline.Status
	if err := conn.ReadJSON(&status); err != nil {
		t.Fatal(err)
	}
	if status.State != pipeline.StateRecording {
		t.Fatalf("state after start = %q", status.State)
	}

	// Send one loud second of PCM16 audio in binary frames
	loud := make([]byte, 2048)
	for i := 0; i < len(loud); i += 2 {
		loud[i] = 0x00
		loud[i+1] = 0x40 // 0.5
	}
	for i := 0; i < 16; i++ {
		if err := conn.WriteMessage(websocket.BinaryMessage, loud); err != nil {
			t.Fatal(err)
		}
	}

	if err := conn.WriteJSON(wsControl{Action: "stop"}); err != nil {
		t.Fatal(err)
	}

	// The stop flush produces a transcript
	deadline := time.After(3 * time.Second)
	for {
		count, err := store.Count(storage.ListOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if count > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("transcript never stored from socket audio")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestMaintenance(t *testing.T) {
	s, store := newTestServer(t)

	// Insert and delete a transcript so the vacuum has something to reclaim
	event := seedTranscript(t, store, "maint-session", "short lived")
	rec := doJSON(t, s.Handler(), http.MethodDelete, "/api/transcripts/"+event.UUID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/maintenance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("maintenance status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %q, want ok", resp["status"])
	}

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/maintenance", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET maintenance status = %d, want 405", rec.Code)
	}
}

func seedTranscript(t *testing.T, store *storage.TranscriptionStore, sessionID, text string) *events.TranscriptionEvent {
	t.Helper()

	event := events.NewTranscriptionEvent(sessionID)
	event.SetAudioMetadata([]float32{0.1, 0.2}, 16000, 0.2, "silence")
	event.SetResult(text, "stub", "stub-model")
	if err := store.Insert(event); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	return event
}
