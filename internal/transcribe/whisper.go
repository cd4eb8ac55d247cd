/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

//go:build whisper

package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/theguy000/QuillScribe/internal/config"
	"github.com/theguy000/QuillScribe/internal/logging"
)

// LocalTranscriber handles speech-to-text using a local whisper.cpp model
type LocalTranscriber struct {
	model     whisper.Model
	modelPath string
}

// NewLocalTranscriber loads a whisper model from disk
func NewLocalTranscriber(modelPath string) (*LocalTranscriber, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("whisper model not found at %s", modelPath)
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model: %w", err)
	}

	logging.Sugar.Infow("✅ Whisper model loaded", "path", modelPath)
	return &LocalTranscriber{
		model:     model,
		modelPath: modelPath,
	}, nil
}

// Transcribe converts audio samples to text
func (lt *LocalTranscriber) Transcribe(ctx context.Context, audioData []float32, sampleRate int) (string, error) {
	if lt.model == nil {
		return "", fmt.Errorf("whisper model not initialized")
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	wctx, err := lt.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("failed to create whisper context: %w", err)
	}

	if err := wctx.Process(audioData, nil, nil, nil); err != nil {
		return "", fmt.Errorf("failed to process audio: %w", err)
	}

	var transcript strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		transcript.WriteString(segment.Text)
	}

	result := strings.TrimSpace(transcript.String())
	logging.Sugar.Infow("🧠 Whisper transcription", "text", result)
	return result, nil
}

// Engine returns the engine identifier
func (lt *LocalTranscriber) Engine() string { return config.EngineLocal }

// Model returns the model name derived from the loaded file
func (lt *LocalTranscriber) Model() string {
	return NormalizeModelName(filepath.Base(lt.modelPath))
}

// Close cleans up the whisper model
func (lt *LocalTranscriber) Close() error {
	if lt.model != nil {
		lt.model.Close()
		logging.Sugar.Infow("🧠 Whisper model closed")
	}
	return nil
}
