/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

// Package messaging publishes transcription results and session status over
// NATS and accepts remote control commands.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/theguy000/QuillScribe/internal/config"
	"github.com/theguy000/QuillScribe/internal/events"
	"github.com/theguy000/QuillScribe/internal/logging"
)

// NATS subjects for the different event types
const (
	SubjectTranscripts = "quillscribe.transcripts"
	SubjectStatus      = "quillscribe.status"
	SubjectControl     = "quillscribe.control"
)

// StatusEvent reports recording session state changes
type StatusEvent struct {
	SessionID string  `json:"session_id,omitempty"`
	State     string  `json:"state"` // "idle", "recording", "transcribing", "error"
	Level     float64 `json:"level,omitempty"`
	Message   string  `json:"message,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// ControlCommand is a remote command for the recording pipeline
type ControlCommand struct {
	Action    string `json:"action"` // "start", "stop", "toggle"
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NATSService handles NATS messaging for QuillScribe
type NATSService struct {
	conn          *nats.Conn
	url           string
	reconnectWait time.Duration
	maxReconnects int
}

// NewNATSService creates a new NATS service instance
func NewNATSService(cfg config.NATSConfig) *NATSService {
	url := cfg.URL
	if url == "" {
		url = "nats://localhost:4222"
	}
	wait := cfg.ReconnectWait
	if wait <= 0 {
		wait = 2 * time.Second
	}
	max := cfg.MaxReconnect
	if max == 0 {
		max = -1 // Retry indefinitely
	}
	return &NATSService{url: url, reconnectWait: wait, maxReconnects: max}
}

// Connect establishes connection to the NATS server
func (ns *NATSService) Connect() error {
	logging.Sugar.Infow("🔌 Connecting to NATS", "url", ns.url)

	opts := []nats.Option{
		nats.Name("quillscribe"),
		nats.ReconnectWait(ns.reconnectWait),
		nats.MaxReconnects(ns.maxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.Sugar.Warnw("⚠️ NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Sugar.Infow("🔄 NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.Sugar.Infow("🔌 NATS connection closed")
		}),
	}

	conn, err := nats.Connect(ns.url, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	logging.Sugar.Infow("✅ Connected to NATS server", "url", conn.ConnectedUrl())
	return nil
}

// PublishTranscript publishes a completed transcription event
func (ns *NATSService) PublishTranscript(event *events.TranscriptionEvent) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transcription event: %w", err)
	}

	if err := ns.conn.Publish(SubjectTranscripts, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectTranscripts, err)
	}

	logging.Sugar.Infow("📤 Published transcript",
		"uuid", event.UUID, "session_id", event.SessionID)
	return nil
}

// PublishStatus publishes a session status change
func (ns *NATSService) PublishStatus(event *StatusEvent) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}

	if err := ns.conn.Publish(SubjectStatus, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectStatus, err)
	}

	return nil
}

// SubscribeToControl subscribes to remote control commands
func (ns *NATSService) SubscribeToControl(handler func(*ControlCommand)) (*nats.Subscription, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	return ns.conn.Subscribe(SubjectControl, func(msg *nats.Msg) {
		var cmd ControlCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			logging.Sugar.Errorw("❌ Error unmarshaling control command", "error", err)
			return
		}

		logging.Sugar.Infow("📥 Received control command", "action", cmd.Action)
		handler(&cmd)
	})
}

// IsConnected reports whether the NATS connection is active
func (ns *NATSService) IsConnected() bool {
	return ns.conn != nil && ns.conn.IsConnected()
}

// Stats returns NATS connection statistics
func (ns *NATSService) Stats() nats.Statistics {
	if ns.conn == nil {
		return nats.Statistics{}
	}
	return ns.conn.Stats()
}

// Close closes the NATS connection
func (ns *NATSService) Close() {
	if ns.conn != nil {
		ns.conn.Close()
		ns.conn = nil
	}
}
