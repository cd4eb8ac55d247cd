package events

import (
	"errors"
	"testing"
	"time"
)

func TestNewTranscriptionEvent(t *testing.T) {
	event := NewTranscriptionEvent("session-1")

	if event.UUID == "" {
		t.Error("UUID should be generated")
	}
	if event.SessionID != "session-1" {
		t.Errorf("SessionID = %q, want %q", event.SessionID, "session-1")
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if !event.Success {
		t.Error("new event should default to success")
	}
}

func TestSetAudioMetadata(t *testing.T) {
	event := NewTranscriptionEvent("session-1")
	samples := make([]float32, 16000)

	event.SetAudioMetadata(samples, 16000, 0.42, "silence")

	if event.AudioHash == "" {
		t.Error("AudioHash should be computed")
	}
	if event.AudioDuration != 1.0 {
		t.Errorf("AudioDuration = %f, want 1.0", event.AudioDuration)
	}
	if event.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", event.SampleRate)
	}
	if event.PeakLevel != 0.42 {
		t.Errorf("PeakLevel = %f, want 0.42", event.PeakLevel)
	}
	if event.EndReason != "silence" {
		t.Errorf("EndReason = %q, want %q", event.EndReason, "silence")
	}
}

func TestHashAudio_Deterministic(t *testing.T) {
	a := []float32{0.1, 0.2, 0.3}
	b := []float32{0.1, 0.2, 0.3}
	c := []float32{0.1, 0.2, 0.4}

	if HashAudio(a) != HashAudio(b) {
		t.Error("identical audio should hash identically")
	}
	if HashAudio(a) == HashAudio(c) {
		t.Error("different audio should hash differently")
	}
	if len(HashAudio(a)) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(HashAudio(a)))
	}
}

func TestSetResult(t *testing.T) {
	event := NewTranscriptionEvent("session-1")
	event.Timestamp = time.Now().Add(-100 * time.Millisecond)

	event.SetResult("hello world", "api", "whisper-1")

	if event.Text != "hello world" {
		t.Errorf("Text = %q, want %q", event.Text, "hello world")
	}
	if event.Engine != "api" {
		t.Errorf("Engine = %q, want %q", event.Engine, "api")
	}
	if event.Model != "whisper-1" {
		t.Errorf("Model = %q, want %q", event.Model, "whisper-1")
	}
	if event.ProcessingTime < 100 {
		t.Errorf("ProcessingTime = %d, want >= 100", event.ProcessingTime)
	}
}

func TestSetError(t *testing.T) {
	event := NewTranscriptionEvent("session-1")

	event.SetError(errors.New("engine unavailable"))

	if event.Success {
		t.Error("Success should be false after SetError")
	}
	if event.ErrorMessage != "engine unavailable" {
		t.Errorf("ErrorMessage = %q, want %q", event.ErrorMessage, "engine unavailable")
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*TranscriptionEvent)
		wantErr bool
	}{
		{"valid event", func(e *TranscriptionEvent) {}, false},
		{"missing UUID", func(e *TranscriptionEvent) { e.UUID = "" }, true},
		{"missing session", func(e *TranscriptionEvent) { e.SessionID = "" }, true},
		{"zero timestamp", func(e *TranscriptionEvent) { e.Timestamp = time.Time{} }, true},
		{"negative duration", func(e *TranscriptionEvent) { e.AudioDuration = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewTranscriptionEvent("session-1")
			tt.modify(event)

			err := event.IsValid()
			if (err != nil) != tt.wantErr {
				t.Errorf("IsValid() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
