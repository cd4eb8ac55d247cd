//go:build !whisper

package transcribe

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/theguy000/QuillScribe/internal/config"
)

// LocalTranscriber stub implementation when whisper is disabled
type LocalTranscriber struct {
	modelPath string
}

// NewLocalTranscriber creates a stub transcriber when whisper is disabled
func NewLocalTranscriber(modelPath string) (*LocalTranscriber, error) {
	return &LocalTranscriber{
		modelPath: modelPath,
	}, nil
}

// Transcribe stub implementation returns an error
func (lt *LocalTranscriber) Transcribe(ctx context.Context, audioData []float32, sampleRate int) (string, error) {
	return "", fmt.Errorf("local transcription disabled (build with -tags whisper to enable)")
}

// Engine returns the engine identifier
func (lt *LocalTranscriber) Engine() string { return config.EngineLocal }

// Model returns the model name derived from the configured file
func (lt *LocalTranscriber) Model() string {
	return NormalizeModelName(filepath.Base(lt.modelPath))
}

// Close stub implementation
func (lt *LocalTranscriber) Close() error {
	// Nothing to clean up in stub
	return nil
}
