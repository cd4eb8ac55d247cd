/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package audio

import "time"

// DetectorConfig holds utterance boundary detection parameters
type DetectorConfig struct {
	NoiseThreshold float64       // RMS level separating speech from background
	SilenceTimeout time.Duration // trailing silence that ends an utterance
	MaxUtterance   time.Duration // hard cap on utterance length, 0 = unlimited
}

// Event is emitted by the detector when an utterance boundary is crossed
type Event int

const (
	EventNone Event = iota
	EventSpeechStart
	EventUtteranceEnd
)

// EndReason explains why an utterance ended
type EndReason int

const (
	ReasonNone EndReason = iota
	ReasonSilence
	ReasonMaxDuration
)

func (r EndReason) String() string {
	switch r {
	case ReasonSilence:
		return "silence"
	case ReasonMaxDuration:
		return "max_duration"
	default:
		return "none"
	}
}

// UtteranceDetector is a small state machine over smoothed audio levels.
// It starts an utterance when the level crosses the noise threshold and
// ends it after the configured trailing silence or when the utterance hits
// the maximum duration. Observe never blocks, so the capture feeder can
// call it inline per chunk.
type UtteranceDetector struct {
	cfg DetectorConfig

	speaking    bool
	speechTime  time.Duration
	silenceTime time.Duration
	lastReason  EndReason
}

// NewUtteranceDetector creates a detector with the given configuration
func NewUtteranceDetector(cfg DetectorConfig) *UtteranceDetector {
	if cfg.NoiseThreshold <= 0 {
		cfg.NoiseThreshold = 0.01
	}
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = 2 * time.Second
	}
	return &UtteranceDetector{cfg: cfg}
}

// Observe feeds one chunk's smoothed level and duration into the state
// machine and returns the boundary event it produced, if any.
func (d *UtteranceDetector) Observe(level float64, dt time.Duration) Event {
	if !d.speaking {
		if level >= d.cfg.NoiseThreshold {
			d.speaking = true
			d.speechTime = dt
			d.silenceTime = 0
			d.lastReason = ReasonNone
			return EventSpeechStart
		}
		return EventNone
	}

	d.speechTime += dt

	if level < d.cfg.NoiseThreshold {
		d.silenceTime += dt
		if d.silenceTime >= d.cfg.SilenceTimeout {
			d.finish(ReasonSilence)
			return EventUtteranceEnd
		}
	} else {
		d.silenceTime = 0
	}

	if d.cfg.MaxUtterance > 0 && d.speechTime >= d.cfg.MaxUtterance {
		d.finish(ReasonMaxDuration)
		return EventUtteranceEnd
	}

	return EventNone
}

func (d *UtteranceDetector) finish(reason EndReason) {
	d.speaking = false
	d.speechTime = 0
	d.silenceTime = 0
	d.lastReason = reason
}

// Speaking reports whether the detector is inside an utterance
func (d *UtteranceDetector) Speaking() bool {
	return d.speaking
}

// LastEndReason returns why the most recent utterance ended
func (d *UtteranceDetector) LastEndReason() EndReason {
	return d.lastReason
}

// Reset returns the detector to idle without emitting an event
func (d *UtteranceDetector) Reset() {
	d.speaking = false
	d.speechTime = 0
	d.silenceTime = 0
	d.lastReason = ReasonNone
}
