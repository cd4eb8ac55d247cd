/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

// Package audio implements the capture side of the pipeline: level metering,
// utterance buffering, speech boundary detection and the WAV codec.
package audio

import (
	"math"
	"sync"
)

// LevelMeter tracks a smoothed RMS level across incoming audio chunks.
// Typical speech sits around 0.01-0.1 RMS, so the normalized level is
// boosted for display purposes.
type LevelMeter struct {
	mu        sync.RWMutex
	smoothing float64
	current   float64
}

// NewLevelMeter creates a meter with the given smoothing factor in [0, 1).
// Higher values smooth more aggressively.
func NewLevelMeter(smoothing float64) *LevelMeter {
	if smoothing < 0 || smoothing >= 1 {
		smoothing = 0.7
	}
	return &LevelMeter{smoothing: smoothing}
}

// RMS computes the root-mean-square level of a chunk of samples
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Feed updates the smoothed level with a new chunk and returns the raw RMS
func (m *LevelMeter) Feed(samples []float32) float64 {
	rms := RMS(samples)

	m.mu.Lock()
	m.current = m.smoothing*m.current + (1-m.smoothing)*rms
	m.mu.Unlock()

	return rms
}

// Level returns the current smoothed RMS level
func (m *LevelMeter) Level() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// NormalizedLevel returns the smoothed level scaled for display, capped at 1
func (m *LevelMeter) NormalizedLevel() float64 {
	return NormalizeLevel(m.Level())
}

// Reset clears the smoothed level
func (m *LevelMeter) Reset() {
	m.mu.Lock()
	m.current = 0
	m.mu.Unlock()
}

// NormalizeLevel scales a raw RMS level into [0, 1] for display
func NormalizeLevel(rms float64) float64 {
	return math.Min(1.0, rms*20)
}
