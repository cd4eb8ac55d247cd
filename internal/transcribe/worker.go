/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package transcribe

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theguy000/QuillScribe/internal/logging"
)

// Job is one utterance handed to the worker
type Job struct {
	SessionID  string
	Samples    []float32
	SampleRate int
	PeakLevel  float64
	EndReason  string
}

// Result is the outcome of a transcription job. Cancelled results carry no
// text; they exist so callers can balance their per-job accounting.
type Result struct {
	Job            Job
	Text           string
	Engine         string
	Model          string
	ProcessingTime int64 // milliseconds
	Cancelled      bool
	Err            error
}

// Worker runs transcription jobs off the audio path. At most one job is in
// flight; submitting a new job cancels the previous one so the freshest
// utterance always wins.
type Worker struct {
	transcriber Transcriber
	results     chan Result

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewWorker creates a worker around the given transcriber
func NewWorker(transcriber Transcriber) *Worker {
	return &Worker{
		transcriber: transcriber,
		results:     make(chan Result, 8),
	}
}

// Results returns the channel transcription outcomes are delivered on
func (w *Worker) Results() <-chan Result {
	return w.results
}

// Submit starts a transcription job, cancelling any job still in flight
func (w *Worker) Submit(job Job) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}

	if w.cancel != nil {
		w.cancel()
		logging.LogTranscription(w.transcriber.Engine(), "cancel_previous",
			zap.String("session_id", job.SessionID))
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		defer cancel()

		startTime := time.Now()
		text, err := w.transcriber.Transcribe(ctx, job.Samples, job.SampleRate)

		result := Result{
			Job:            job,
			Engine:         w.transcriber.Engine(),
			Model:          w.transcriber.Model(),
			ProcessingTime: time.Since(startTime).Milliseconds(),
		}

		// A cancelled job carries no text so a stale transcript never
		// overtakes a fresh one, but it still reports back: every submitted
		// job produces exactly one result
		if ctx.Err() != nil {
			result.Cancelled = true
			result.Err = ctx.Err()
		} else {
			result.Text = text
			result.Err = err
		}

		w.results <- result
	}()
}

// Close cancels any in-flight job and waits for the worker to drain
func (w *Worker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	w.wg.Wait()
	close(w.results)
	return w.transcriber.Close()
}
