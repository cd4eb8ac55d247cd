/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package audio

import (
	"sync"
	"time"
)

// RecordingBuffer accumulates audio chunks for one utterance. Chunks are
// kept as-is until Snapshot concatenates them, so the feeder only pays for
// an append per chunk.
type RecordingBuffer struct {
	mu         sync.Mutex
	chunks     [][]float32
	samples    int
	sampleRate int
	channels   int
}

// NewRecordingBuffer creates a buffer for the given stream format
func NewRecordingBuffer(sampleRate, channels int) *RecordingBuffer {
	if channels < 1 {
		channels = 1
	}
	return &RecordingBuffer{
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Append copies a chunk into the buffer
func (b *RecordingBuffer) Append(chunk []float32) {
	if len(chunk) == 0 {
		return
	}

	// Copy: callers reuse their chunk slices
	own := make([]float32, len(chunk))
	copy(own, chunk)

	b.mu.Lock()
	b.chunks = append(b.chunks, own)
	b.samples += len(own)
	b.mu.Unlock()
}

// Len returns the number of buffered samples (per-channel samples for
// interleaved stereo input)
func (b *RecordingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.samples / b.channels
}

// Duration returns the buffered audio duration
func (b *RecordingBuffer) Duration() time.Duration {
	if b.sampleRate <= 0 {
		return 0
	}
	frames := b.Len()
	return time.Duration(float64(frames) / float64(b.sampleRate) * float64(time.Second))
}

// Snapshot concatenates all buffered chunks into a single mono sample slice.
// Interleaved stereo input is downmixed by averaging the channels.
func (b *RecordingBuffer) Snapshot() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	joined := make([]float32, 0, b.samples)
	for _, chunk := range b.chunks {
		joined = append(joined, chunk...)
	}

	if b.channels <= 1 {
		return joined
	}

	mono := make([]float32, 0, len(joined)/b.channels)
	for i := 0; i+b.channels <= len(joined); i += b.channels {
		var sum float32
		for c := 0; c < b.channels; c++ {
			sum += joined[i+c]
		}
		mono = append(mono, sum/float32(b.channels))
	}
	return mono
}

// Reset drops all buffered audio, keeping the stream format
func (b *RecordingBuffer) Reset() {
	b.mu.Lock()
	b.chunks = nil
	b.samples = 0
	b.mu.Unlock()
}

// SampleRate returns the stream sample rate
func (b *RecordingBuffer) SampleRate() int {
	return b.sampleRate
}
