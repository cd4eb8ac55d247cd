package audio

import (
	"testing"
	"time"
)

const chunkDur = 64 * time.Millisecond // 1024 samples at 16 kHz

func TestUtteranceDetector_SpeechStart(t *testing.T) {
	d := NewUtteranceDetector(DetectorConfig{
		NoiseThreshold: 0.01,
		SilenceTimeout: 2 * time.Second,
	})

	if ev := d.Observe(0.001, chunkDur); ev != EventNone {
		t.Errorf("Observe(quiet) = %v, want EventNone", ev)
	}
	if d.Speaking() {
		t.Error("Speaking() = true before speech")
	}

	if ev := d.Observe(0.05, chunkDur); ev != EventSpeechStart {
		t.Errorf("Observe(loud) = %v, want EventSpeechStart", ev)
	}
	if !d.Speaking() {
		t.Error("Speaking() = false after speech start")
	}
}

func TestUtteranceDetector_EndsOnSilence(t *testing.T) {
	d := NewUtteranceDetector(DetectorConfig{
		NoiseThreshold: 0.01,
		SilenceTimeout: 200 * time.Millisecond,
	})

	d.Observe(0.05, chunkDur)

	// Silence accumulates; boundary fires once the timeout is reached
	var got Event
	for i := 0; i < 10; i++ {
		got = d.Observe(0.001, chunkDur)
		if got == EventUtteranceEnd {
			break
		}
	}

	if got != EventUtteranceEnd {
		t.Fatalf("never saw EventUtteranceEnd")
	}
	if d.Speaking() {
		t.Error("Speaking() = true after utterance end")
	}
	if d.LastEndReason() != ReasonSilence {
		t.Errorf("LastEndReason() = %v, want ReasonSilence", d.LastEndReason())
	}
}

func TestUtteranceDetector_SpeechResetsSilence(t *testing.T) {
	d := NewUtteranceDetector(DetectorConfig{
		NoiseThreshold: 0.01,
		SilenceTimeout: 150 * time.Millisecond,
	})

	d.Observe(0.05, chunkDur)

	// Two quiet chunks (128ms) do not reach the timeout, then speech resumes
	d.Observe(0.001, chunkDur)
	d.Observe(0.001, chunkDur)
	if ev := d.Observe(0.05, chunkDur); ev != EventNone {
		t.Errorf("Observe(resumed speech) = %v, want EventNone", ev)
	}
	if !d.Speaking() {
		t.Error("Speaking() = false after resumed speech")
	}

	// The silence clock restarted, so two more quiet chunks are needed
	d.Observe(0.001, chunkDur)
	if ev := d.Observe(0.001, chunkDur); ev != EventUtteranceEnd {
		t.Errorf("Observe() = %v, want EventUtteranceEnd after fresh silence window", ev)
	}
}

func TestUtteranceDetector_MaxDuration(t *testing.T) {
	d := NewUtteranceDetector(DetectorConfig{
		NoiseThreshold: 0.01,
		SilenceTimeout: 10 * time.Second,
		MaxUtterance:   300 * time.Millisecond,
	})

	d.Observe(0.05, chunkDur)

	var got Event
	for i := 0; i < 20; i++ {
		got = d.Observe(0.05, chunkDur)
		if got == EventUtteranceEnd {
			break
		}
	}

	if got != EventUtteranceEnd {
		t.Fatal("never saw EventUtteranceEnd under max duration cap")
	}
	if d.LastEndReason() != ReasonMaxDuration {
		t.Errorf("LastEndReason() = %v, want ReasonMaxDuration", d.LastEndReason())
	}
}

func TestUtteranceDetector_Reset(t *testing.T) {
	d := NewUtteranceDetector(DetectorConfig{
		NoiseThreshold: 0.01,
		SilenceTimeout: time.Second,
	})

	d.Observe(0.05, chunkDur)
	d.Reset()

	if d.Speaking() {
		t.Error("Speaking() = true after Reset")
	}
	// A new utterance can start after reset
	if ev := d.Observe(0.05, chunkDur); ev != EventSpeechStart {
		t.Errorf("Observe() after Reset = %v, want EventSpeechStart", ev)
	}
}

func TestUtteranceDetector_DefaultsApplied(t *testing.T) {
	d := NewUtteranceDetector(DetectorConfig{})

	if d.cfg.NoiseThreshold != 0.01 {
		t.Errorf("NoiseThreshold default = %f, want 0.01", d.cfg.NoiseThreshold)
	}
	if d.cfg.SilenceTimeout != 2*time.Second {
		t.Errorf("SilenceTimeout default = %v, want 2s", d.cfg.SilenceTimeout)
	}
}
