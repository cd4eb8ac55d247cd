/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

// Package pipeline ties audio capture, transcription, delivery, and
// persistence into recording sessions.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/theguy000/QuillScribe/internal/audio"
	"github.com/theguy000/QuillScribe/internal/config"
	"github.com/theguy000/QuillScribe/internal/logging"
)

// Utterance is a finalized stretch of speech ready for transcription
type Utterance struct {
	SessionID  string
	Samples    []float32
	SampleRate int
	PeakLevel  float64
	EndReason  string
}

// Session accumulates audio for one recording and detects utterance
// boundaries
type Session struct {
	ID        string
	StartedAt time.Time

	cfg config.AudioConfig

	mu       sync.Mutex
	meter    *audio.LevelMeter
	buffer   *audio.RecordingBuffer
	detector *audio.UtteranceDetector
	peak     float64
	spoke    bool
}

// NewSession creates a recording session with a fresh ID
func NewSession(cfg config.AudioConfig) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		cfg:       cfg,
		meter:     audio.NewLevelMeter(cfg.LevelSmoothing),
		buffer:    audio.NewRecordingBuffer(cfg.SampleRate, cfg.Channels),
		detector: audio.NewUtteranceDetector(audio.DetectorConfig{
			NoiseThreshold: cfg.NoiseThreshold,
			SilenceTimeout: cfg.SilenceTimeout,
			MaxUtterance:   cfg.MaxUtterance,
		}),
	}
}

// Feed processes one audio chunk. When the chunk completes an utterance,
// Feed returns it; otherwise it returns nil.
func (s *Session) Feed(chunk []float32) *Utterance {
	if len(chunk) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rms := s.meter.Feed(chunk)
	s.buffer.Append(chunk)

	if level := audio.NormalizeLevel(rms); level > s.peak {
		s.peak = level
	}

	frames := len(chunk) / s.cfg.Channels
	dt := time.Duration(frames) * time.Second / time.Duration(s.cfg.SampleRate)

	// The detector sees the smoothed level, not the raw chunk RMS, so a
	// single noisy chunk cannot flip the speaking state
	smoothed := s.meter.Level()

	switch s.detector.Observe(smoothed, dt) {
	case audio.EventSpeechStart:
		s.spoke = true
		logging.LogCapture(s.ID, "speech_start", zap.Float64("level", smoothed))

	case audio.EventUtteranceEnd:
		return s.finalizeLocked(s.detector.LastEndReason().String())
	}

	return nil
}

// Flush finalizes whatever audio is buffered, for manual stop. Returns nil
// when no speech was observed.
func (s *Session) Flush() *Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.spoke || s.buffer.Len() == 0 {
		return nil
	}
	return s.finalizeLocked("manual_stop")
}

// finalizeLocked snapshots the buffer into an utterance and resets per
// utterance state. Caller holds s.mu.
func (s *Session) finalizeLocked(reason string) *Utterance {
	utt := &Utterance{
		SessionID:  s.ID,
		Samples:    s.buffer.Snapshot(),
		SampleRate: s.cfg.SampleRate,
		PeakLevel:  s.peak,
		EndReason:  reason,
	}

	s.buffer.Reset()
	s.meter.Reset()
	s.detector.Reset()
	s.peak = 0
	s.spoke = false

	logging.LogCapture(s.ID, "utterance_end",
		zap.Int("samples", len(utt.Samples)),
		zap.String("reason", reason))

	if len(utt.Samples) == 0 {
		return nil
	}
	return utt
}

// Level returns the current normalized input level in [0, 1]
func (s *Session) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meter.NormalizedLevel()
}

// Speaking reports whether speech is currently in progress
func (s *Session) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector.Speaking()
}

// Duration returns how long the session has been running
func (s *Session) Duration() time.Duration {
	return time.Since(s.StartedAt)
}
