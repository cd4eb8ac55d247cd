/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/theguy000/QuillScribe/internal/audio"
	"github.com/theguy000/QuillScribe/internal/config"
	"github.com/theguy000/QuillScribe/internal/logging"
)

// APITranscriber sends audio to the OpenAI Whisper API
type APITranscriber struct {
	client   *openai.Client
	language string
}

// NewAPITranscriber creates a transcriber backed by the OpenAI API
func NewAPITranscriber(apiKey, language string) (*APITranscriber, error) {
	if !config.ValidAPIKey(apiKey) {
		return nil, fmt.Errorf("invalid OpenAI API key")
	}

	return &APITranscriber{
		client:   openai.NewClient(apiKey),
		language: language,
	}, nil
}

// Transcribe converts audio samples to text via the Whisper API
func (t *APITranscriber) Transcribe(ctx context.Context, audioData []float32, sampleRate int) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("empty audio data")
	}

	wavData, err := audio.EncodeWAV(audioData, sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to encode audio: %w", err)
	}

	startTime := time.Now()

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(wavData),
		Language: t.language,
	})
	if err != nil {
		return "", fmt.Errorf("whisper API request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	logging.LogTranscription(config.EngineAPI, "transcribe",
		zap.Int64("processing_time_ms", time.Since(startTime).Milliseconds()),
		zap.Int("text_length", len(text)),
	)

	return text, nil
}

// Engine returns the engine identifier
func (t *APITranscriber) Engine() string { return config.EngineAPI }

// Model returns the model name in use
func (t *APITranscriber) Model() string { return openai.Whisper1 }

// Close cleans up resources
func (t *APITranscriber) Close() error {
	// HTTP client needs no explicit cleanup
	return nil
}
