/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theguy000/QuillScribe/internal/config"
	"github.com/theguy000/QuillScribe/internal/events"
	"github.com/theguy000/QuillScribe/internal/logging"
	"github.com/theguy000/QuillScribe/internal/messaging"
	"github.com/theguy000/QuillScribe/internal/output"
	"github.com/theguy000/QuillScribe/internal/transcribe"
)

// Session states reported in status
const (
	StateIdle         = "idle"
	StateRecording    = "recording"
	StateTranscribing = "transcribing"
)

// TranscriptSink persists finished transcription events
type TranscriptSink interface {
	Insert(event *events.TranscriptionEvent) error
}

// Publisher announces transcripts and status changes
type Publisher interface {
	PublishTranscript(event *events.TranscriptionEvent) error
	PublishStatus(event *messaging.StatusEvent) error
}

// Cache mirrors transcripts into a shared store
type Cache interface {
	StoreTranscript(ctx context.Context, event *events.TranscriptionEvent) error
}

// Dispatcher delivers transcript text to the desktop
type Dispatcher interface {
	Dispatch(text string) (string, error)
}

// Status is a snapshot of the pipeline state
type Status struct {
	State      string  `json:"state"`
	SessionID  string  `json:"session_id,omitempty"`
	Level      float64 `json:"level"`
	Speaking   bool    `json:"speaking"`
	DurationMS int64   `json:"duration_ms,omitempty"`
	LastText   string  `json:"last_text,omitempty"`
	LastStatus string  `json:"last_status,omitempty"`
	LastError  string  `json:"last_error,omitempty"`
}

// Manager owns the single active recording session and routes finished
// utterances through transcription, delivery, persistence, and messaging
type Manager struct {
	cfg        *config.Config
	worker     *transcribe.Worker
	dispatcher Dispatcher
	store      TranscriptSink
	publisher  Publisher // may be nil
	cache      Cache     // may be nil

	mu         sync.Mutex
	active     *Session
	inFlight   int
	lastText   string
	lastStatus string
	lastError  string

	wg sync.WaitGroup
}

// NewManager wires the pipeline together and starts consuming transcription
// results. publisher and cache may be nil.
func NewManager(cfg *config.Config, worker *transcribe.Worker, dispatcher Dispatcher, store TranscriptSink, publisher Publisher, cache Cache) *Manager {
	m := &Manager{
		cfg:        cfg,
		worker:     worker,
		dispatcher: dispatcher,
		store:      store,
		publisher:  publisher,
		cache:      cache,
	}

	m.wg.Add(1)
	go m.consumeResults()

	return m
}

// Start begins a new recording session. Only one session may be active.
func (m *Manager) Start() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return "", fmt.Errorf("recording session already active: %s", m.active.ID)
	}

	m.active = NewSession(m.cfg.Audio)
	logging.LogCapture(m.active.ID, "session_start")
	m.publishStatus(StateRecording, m.active.ID, "Recording started")
	return m.active.ID, nil
}

// Stop ends the active session, flushing any buffered speech into a final
// transcription job
func (m *Manager) Stop() error {
	m.mu.Lock()
	session := m.active
	m.active = nil
	m.mu.Unlock()

	if session == nil {
		return fmt.Errorf("no active recording session")
	}

	logging.LogCapture(session.ID, "session_stop",
		zap.Int64("duration_ms", session.Duration().Milliseconds()))

	if utt := session.Flush(); utt != nil {
		m.submit(utt)
	} else {
		m.publishStatus(StateIdle, session.ID, "Recording stopped")
	}
	return nil
}

// Toggle starts a session when idle and stops it when recording. Returns
// the resulting state.
func (m *Manager) Toggle() (string, error) {
	m.mu.Lock()
	active := m.active != nil
	m.mu.Unlock()

	if active {
		if err := m.Stop(); err != nil {
			return "", err
		}
		return StateIdle, nil
	}

	if _, err := m.Start(); err != nil {
		return "", err
	}
	return StateRecording, nil
}

// Feed routes an audio chunk into the active session. Chunks arriving while
// idle are dropped.
func (m *Manager) Feed(chunk []float32) {
	m.mu.Lock()
	session := m.active
	m.mu.Unlock()

	if session == nil {
		return
	}

	if utt := session.Feed(chunk); utt != nil {
		m.submit(utt)
	}
}

// submit hands an utterance to the transcription worker
func (m *Manager) submit(utt *Utterance) {
	m.mu.Lock()
	m.inFlight++
	m.mu.Unlock()

	m.publishStatus(StateTranscribing, utt.SessionID, "Transcribing")

	m.worker.Submit(transcribe.Job{
		SessionID:  utt.SessionID,
		Samples:    utt.Samples,
		SampleRate: utt.SampleRate,
		PeakLevel:  utt.PeakLevel,
		EndReason:  utt.EndReason,
	})
}

// consumeResults handles finished transcription jobs until the worker's
// result channel closes
func (m *Manager) consumeResults() {
	defer m.wg.Done()

	for result := range m.worker.Results() {
		m.handleResult(result)
	}
}

func (m *Manager) handleResult(result transcribe.Result) {
	// Superseded jobs still count against inFlight; settle the accounting
	// and skip storage and dispatch, the replacing job carries the text
	if result.Cancelled {
		logging.LogTranscription(result.Engine, "superseded",
			zap.String("session_id", result.Job.SessionID))

		m.mu.Lock()
		if m.inFlight > 0 {
			m.inFlight--
		}
		idle := m.active == nil && m.inFlight == 0
		m.mu.Unlock()

		if idle {
			m.publishStatus(StateIdle, result.Job.SessionID, "")
		}
		return
	}

	event := events.NewTranscriptionEvent(result.Job.SessionID)
	event.SetAudioMetadata(result.Job.Samples, result.Job.SampleRate, result.Job.PeakLevel, result.Job.EndReason)

	if result.Err != nil {
		event.SetError(result.Err)
		event.Engine = result.Engine
		event.Model = result.Model
		logging.LogError(result.Err, "Transcription failed",
			zap.String("session_id", result.Job.SessionID))
	} else {
		event.SetResult(result.Text, result.Engine, result.Model)
	}
	event.ProcessingTime = result.ProcessingTime

	var statusMsg string
	if result.Err == nil && result.Text != "" {
		status, err := m.dispatcher.Dispatch(result.Text)
		if err != nil {
			event.SetError(err)
			logging.LogError(err, "Output dispatch failed",
				zap.String("session_id", result.Job.SessionID))
		} else {
			event.SetOutput(m.cfg.Output.Mode)
			statusMsg = status
		}
	} else if result.Err == nil {
		statusMsg = "No speech detected"
	}

	if err := m.store.Insert(event); err != nil {
		logging.LogError(err, "Failed to store transcription event",
			zap.String("uuid", event.UUID))
	}

	if m.publisher != nil && event.Success {
		if err := m.publisher.PublishTranscript(event); err != nil {
			logging.LogError(err, "Failed to publish transcript",
				zap.String("uuid", event.UUID))
		}
	}

	if m.cache != nil && event.Success {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.cache.StoreTranscript(ctx, event); err != nil {
			logging.LogError(err, "Failed to cache transcript",
				zap.String("uuid", event.UUID))
		}
		cancel()
	}

	m.mu.Lock()
	if m.inFlight > 0 {
		m.inFlight--
	}
	m.lastText = event.Text
	m.lastStatus = statusMsg
	if event.Success {
		m.lastError = ""
	} else {
		m.lastError = event.ErrorMessage
	}
	idle := m.active == nil && m.inFlight == 0
	m.mu.Unlock()

	if idle {
		m.publishStatus(StateIdle, result.Job.SessionID, statusMsg)
	}
}

// publishStatus sends a status event when a publisher is configured
func (m *Manager) publishStatus(state, sessionID, message string) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishStatus(&messaging.StatusEvent{
		SessionID: sessionID,
		State:     state,
		Message:   message,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		logging.LogWarn("Failed to publish status", zap.Error(err))
	}
}

// Status returns a snapshot of the pipeline state
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := Status{
		State:      StateIdle,
		LastText:   output.Truncate(m.lastText, 50),
		LastStatus: m.lastStatus,
		LastError:  m.lastError,
	}

	if m.inFlight > 0 {
		status.State = StateTranscribing
	}
	if m.active != nil {
		status.State = StateRecording
		status.SessionID = m.active.ID
		status.Level = m.active.Level()
		status.Speaking = m.active.Speaking()
		status.DurationMS = m.active.Duration().Milliseconds()
	}

	return status
}

// Recording reports whether a session is active
func (m *Manager) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Close stops any active session and drains the worker
func (m *Manager) Close() error {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()

	err := m.worker.Close()
	m.wg.Wait()
	return err
}
