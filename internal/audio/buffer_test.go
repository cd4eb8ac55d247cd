package audio

import (
	"testing"
	"time"
)

func TestRecordingBuffer_AppendAndSnapshot(t *testing.T) {
	b := NewRecordingBuffer(16000, 1)

	b.Append([]float32{0.1, 0.2})
	b.Append([]float32{0.3})

	got := b.Snapshot()
	want := []float32{0.1, 0.2, 0.3}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestRecordingBuffer_AppendCopiesChunk(t *testing.T) {
	b := NewRecordingBuffer(16000, 1)

	chunk := []float32{0.5, 0.5}
	b.Append(chunk)
	chunk[0] = -1 // caller reuses its slice

	got := b.Snapshot()
	if got[0] != 0.5 {
		t.Errorf("Snapshot()[0] = %f, want 0.5 (buffer must own its data)", got[0])
	}
}

func TestRecordingBuffer_StereoDownmix(t *testing.T) {
	b := NewRecordingBuffer(16000, 2)

	// Interleaved L/R pairs
	b.Append([]float32{1.0, 0.0, 0.5, 0.5})

	got := b.Snapshot()
	want := []float32{0.5, 0.5}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestRecordingBuffer_Duration(t *testing.T) {
	b := NewRecordingBuffer(16000, 1)
	b.Append(make([]float32, 16000))

	if got := b.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want %v", got, time.Second)
	}
}

func TestRecordingBuffer_Reset(t *testing.T) {
	b := NewRecordingBuffer(16000, 1)
	b.Append([]float32{0.1, 0.2})
	b.Reset()

	if got := b.Len(); got != 0 {
		t.Errorf("Len() after Reset = %d, want 0", got)
	}
	if got := b.Snapshot(); len(got) != 0 {
		t.Errorf("Snapshot() after Reset has %d samples, want 0", len(got))
	}
}

func TestRecordingBuffer_EmptySnapshot(t *testing.T) {
	b := NewRecordingBuffer(16000, 1)
	if got := b.Snapshot(); len(got) != 0 {
		t.Errorf("Snapshot() on empty buffer has %d samples, want 0", len(got))
	}
}
