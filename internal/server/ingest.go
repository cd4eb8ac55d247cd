/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/theguy000/QuillScribe/internal/audio"
	"github.com/theguy000/QuillScribe/internal/logging"
)

// maxWAVUpload bounds /ingest/wav uploads (10 minutes of 16 kHz PCM16)
const maxWAVUpload = 10 * 60 * 16000 * 2

var upgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 8192,
	// The server binds to localhost; remote origins are not expected
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsControl is a JSON text frame on the audio socket
type wsControl struct {
	Action string `json:"action"` // "start", "stop", "toggle", "status"
}

// wsClient serializes writes to one websocket connection, since gorilla
// allows only a single concurrent writer
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// handleIngestWAV handles POST /ingest/wav. The uploaded file runs through
// the full pipeline as one session: decode, level detection, transcription,
// delivery.
func (s *Server) handleIngestWAV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := readWAVBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	samples, sampleRate, err := audio.DecodeWAV(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid WAV data: "+err.Error())
		return
	}

	if sampleRate != s.cfg.Audio.SampleRate {
		logging.LogWarn("Ingested WAV sample rate differs from configured rate",
			zap.Int("got", sampleRate),
			zap.Int("configured", s.cfg.Audio.SampleRate))
	}

	sessionID, err := s.manager.Start()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	chunkSize := s.cfg.Audio.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	for start := 0; start < len(samples); start += chunkSize {
		end := start + chunkSize
		if end > len(samples) {
			end = len(samples)
		}
		s.manager.Feed(samples[start:end])
	}

	if err := s.manager.Stop(); err != nil {
		logging.LogWarn("Session already finished during ingest", zap.Error(err))
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"session_id": sessionID,
		"samples":    len(samples),
		"duration_s": float64(len(samples)) / float64(sampleRate),
	})
}

// readWAVBody accepts either a raw WAV body or a multipart form with a
// "file" field
func readWAVBody(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxWAVUpload); err != nil {
			return nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("multipart form is missing the file field: %w", err)
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxWAVUpload))
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxWAVUpload))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return data, nil
}

// handleAudioSocket handles /ws/audio. Binary frames carry PCM16LE mono
// audio at the configured sample rate; text frames carry JSON control
// commands. Status snapshots are pushed after every control command and
// periodically while recording.
func (s *Server) handleAudioSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.LogError(err, "WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	logging.Sugar.Infow("🎙️ Audio socket connected", "remote", conn.RemoteAddr().String())

	client := &wsClient{conn: conn}

	// Push status while the socket is open so clients can render levels
	done := make(chan struct{})
	defer close(done)
	go s.pushStatus(client, done)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.LogWarn("Audio socket closed unexpectedly", zap.Error(err))
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.manager.Feed(audio.BytesToSamples(data))

		case websocket.TextMessage:
			var cmd wsControl
			if err := json.Unmarshal(data, &cmd); err != nil {
				s.writeSocketError(client, "invalid control frame: "+err.Error())
				continue
			}
			s.handleSocketControl(client, cmd)
		}
	}
}

func (s *Server) handleSocketControl(client *wsClient, cmd wsControl) {
	var err error

	switch cmd.Action {
	case "start":
		_, err = s.manager.Start()
	case "stop":
		err = s.manager.Stop()
	case "toggle":
		_, err = s.manager.Toggle()
	case "status":
		// Status is written below regardless
	default:
		s.writeSocketError(client, "unknown action: "+cmd.Action)
		return
	}

	if err != nil {
		s.writeSocketError(client, err.Error())
		return
	}

	if err := client.writeJSON(s.manager.Status()); err != nil {
		logging.LogWarn("Failed to write socket status", zap.Error(err))
	}
}

func (s *Server) writeSocketError(client *wsClient, message string) {
	if err := client.writeJSON(map[string]string{"error": message}); err != nil {
		logging.LogWarn("Failed to write socket error", zap.Error(err))
	}
}

// pushStatus streams status snapshots while recording so clients can show
// live input levels
func (s *Server) pushStatus(client *wsClient, done <-chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if !s.manager.Recording() {
				continue
			}
			if err := client.writeJSON(s.manager.Status()); err != nil {
				return
			}
		}
	}
}
