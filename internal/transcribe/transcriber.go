/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

// Package transcribe provides speech-to-text engines behind a common
// interface. Three engines are available: the OpenAI Whisper API, a local
// whisper.cpp model, and any OpenAI-compatible transcription server.
package transcribe

import (
	"context"
	"fmt"

	"github.com/theguy000/QuillScribe/internal/config"
)

// TranscriptionResult contains the result of speech-to-text processing
type TranscriptionResult struct {
	Text           string
	Engine         string
	Model          string
	ProcessingTime int64 // milliseconds
}

// Transcriber defines the interface for speech-to-text transcription services
type Transcriber interface {
	// Transcribe converts audio samples to text
	Transcribe(ctx context.Context, audioData []float32, sampleRate int) (string, error)

	// Engine returns the engine identifier ("api", "local", "server")
	Engine() string

	// Model returns the model name in use
	Model() string

	// Close cleans up resources
	Close() error
}

// New creates a transcriber for the configured engine
func New(cfg config.TranscribeConfig) (Transcriber, error) {
	switch cfg.Engine {
	case config.EngineAPI:
		return NewAPITranscriber(cfg.APIKey, cfg.Language)
	case config.EngineLocal:
		return NewLocalTranscriber(ModelPath(cfg.ModelDir, cfg.Model))
	case config.EngineServer:
		return NewServerTranscriber(cfg.ServerURL, cfg.Model, cfg.Language)
	default:
		return nil, fmt.Errorf("unknown transcription engine: %q", cfg.Engine)
	}
}
