/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package events

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// TranscriptionEvent represents one complete utterance moving through the
// pipeline, from captured audio to delivered text, with full traceability.
type TranscriptionEvent struct {
	// Core identification
	UUID      string    `json:"uuid" db:"uuid"`
	SessionID string    `json:"session_id" db:"session_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Audio metadata
	AudioHash     string  `json:"audio_hash" db:"audio_hash"`
	AudioDuration float64 `json:"audio_duration" db:"audio_duration"`
	SampleRate    int     `json:"sample_rate" db:"sample_rate"`
	PeakLevel     float64 `json:"peak_level" db:"peak_level"`
	EndReason     string  `json:"end_reason" db:"end_reason"`

	// Transcription results
	Text   string `json:"text" db:"text"`
	Engine string `json:"engine" db:"engine"`
	Model  string `json:"model" db:"model"`

	// Delivery
	OutputMode     string `json:"output_mode" db:"output_mode"`
	ProcessingTime int64  `json:"processing_time_ms" db:"processing_time_ms"`
	Success        bool   `json:"success" db:"success"`
	ErrorMessage   string `json:"error_message,omitempty" db:"error_message"`
}

// NewTranscriptionEvent creates an event with a generated UUID and current
// timestamp
func NewTranscriptionEvent(sessionID string) *TranscriptionEvent {
	return &TranscriptionEvent{
		UUID:      uuid.NewString(),
		SessionID: sessionID,
		Timestamp: time.Now(),
		Success:   true,
	}
}

// SetAudioMetadata records audio-related metadata for the event
func (e *TranscriptionEvent) SetAudioMetadata(samples []float32, sampleRate int, peakLevel float64, endReason string) {
	e.AudioHash = HashAudio(samples)
	if sampleRate > 0 {
		e.AudioDuration = float64(len(samples)) / float64(sampleRate)
	}
	e.SampleRate = sampleRate
	e.PeakLevel = peakLevel
	e.EndReason = endReason
}

// SetResult records the transcription text and which engine produced it
func (e *TranscriptionEvent) SetResult(text, engine, model string) {
	e.Text = text
	e.Engine = engine
	e.Model = model
	e.ProcessingTime = time.Since(e.Timestamp).Milliseconds()
}

// SetOutput records how the text was delivered
func (e *TranscriptionEvent) SetOutput(mode string) {
	e.OutputMode = mode
}

// SetError marks the event as failed
func (e *TranscriptionEvent) SetError(err error) {
	e.Success = false
	e.ErrorMessage = err.Error()
	e.ProcessingTime = time.Since(e.Timestamp).Milliseconds()
}

// HashAudio generates a SHA-256 hash of audio samples for duplicate
// detection
func HashAudio(samples []float32) string {
	hasher := sha256.New()

	var buf [4]byte
	for _, sample := range samples {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(sample))
		hasher.Write(buf[:])
	}

	return hex.EncodeToString(hasher.Sum(nil))
}

// IsValid performs basic validation on the event
func (e *TranscriptionEvent) IsValid() error {
	if e.UUID == "" {
		return fmt.Errorf("UUID is required")
	}

	if e.SessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	if e.AudioDuration < 0 {
		return fmt.Errorf("audio duration must not be negative")
	}

	return nil
}

// String returns a human-readable representation of the event
func (e *TranscriptionEvent) String() string {
	return fmt.Sprintf("TranscriptionEvent{UUID: %s, Session: %s, Engine: %s, Text: %q, Success: %t}",
		e.UUID, e.SessionID, e.Engine, e.Text, e.Success)
}
