package transcribe

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/theguy000/QuillScribe/internal/logging"
)

func TestMain(m *testing.M) {
	if err := logging.Initialize(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeTranscriber returns a fixed result, optionally blocking until its
// context is cancelled
type fakeTranscriber struct {
	text  string
	err   error
	block chan struct{}
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioData []float32, sampleRate int) (string, error) {
	if f.block != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-f.block:
		}
	}
	return f.text, f.err
}

func (f *fakeTranscriber) Engine() string { return "fake" }
func (f *fakeTranscriber) Model() string  { return "fake-model" }
func (f *fakeTranscriber) Close() error   { return nil }

func TestWorker_DeliversResult(t *testing.T) {
	w := NewWorker(&fakeTranscriber{text: "hello world"})
	defer w.Close()

	w.Submit(Job{
		SessionID:  "s1",
		Samples:    []float32{0.1, 0.2},
		SampleRate: 16000,
	})

	select {
	case result := <-w.Results():
		if result.Err != nil {
			t.Fatalf("result error = %v", result.Err)
		}
		if result.Text != "hello world" {
			t.Errorf("Text = %q, want %q", result.Text, "hello world")
		}
		if result.Engine != "fake" {
			t.Errorf("Engine = %q, want %q", result.Engine, "fake")
		}
		if result.Job.SessionID != "s1" {
			t.Errorf("SessionID = %q, want %q", result.Job.SessionID, "s1")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}
}

func TestWorker_DeliversError(t *testing.T) {
	w := NewWorker(&fakeTranscriber{err: errors.New("engine down")})
	defer w.Close()

	w.Submit(Job{SessionID: "s1", Samples: []float32{0.1}, SampleRate: 16000})

	select {
	case result := <-w.Results():
		if result.Err == nil {
			t.Fatal("expected error result")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}
}

func TestWorker_CancelsPreviousJob(t *testing.T) {
	blocked := &fakeTranscriber{text: "stale", block: make(chan struct{})}
	w := NewWorker(blocked)
	defer w.Close()

	// First job blocks until cancelled
	w.Submit(Job{SessionID: "old", Samples: []float32{0.1}, SampleRate: 16000})

	// Second job cancels the first; the fake unblocks on ctx.Done
	w.Submit(Job{SessionID: "new", Samples: []float32{0.2}, SampleRate: 16000})
	close(blocked.block)

	// Both jobs report back, in either order: the old one flagged as
	// cancelled with no text, the new one with its transcript
	results := make(map[string]Result)
	for i := 0; i < 2; i++ {
		select {
		case result := <-w.Results():
			results[result.Job.SessionID] = result
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for result %d", i+1)
		}
	}

	old, ok := results["old"]
	if !ok {
		t.Fatal("cancelled job never reported back")
	}
	if !old.Cancelled {
		t.Error("old result not flagged as cancelled")
	}
	if old.Text != "" {
		t.Errorf("cancelled result carries text %q", old.Text)
	}

	fresh, ok := results["new"]
	if !ok {
		t.Fatal("fresh job never reported back")
	}
	if fresh.Cancelled {
		t.Error("fresh result flagged as cancelled")
	}
	if fresh.Text != "stale" {
		t.Errorf("fresh Text = %q, want %q", fresh.Text, "stale")
	}
}

func TestWorker_SubmitAfterCloseIsNoop(t *testing.T) {
	w := NewWorker(&fakeTranscriber{text: "x"})
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Must not panic or deliver anything
	w.Submit(Job{SessionID: "late", Samples: []float32{0.1}, SampleRate: 16000})

	if _, ok := <-w.Results(); ok {
		t.Error("Results() should be closed after Close()")
	}
}
