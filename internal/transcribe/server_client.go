/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/theguy000/QuillScribe/internal/audio"
	"github.com/theguy000/QuillScribe/internal/config"
	"github.com/theguy000/QuillScribe/internal/logging"
)

// ServerTranscriber implements the Transcriber interface using REST API calls
// to any OpenAI-compatible speech-to-text service
type ServerTranscriber struct {
	baseURL    string
	model      string
	language   string
	httpClient *http.Client
}

// OpenAI-compatible response struct
type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewServerTranscriber creates a client for an OpenAI-compatible STT service
func NewServerTranscriber(baseURL, model, language string) (*ServerTranscriber, error) {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if model == "" {
		model = "base"
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	s := &ServerTranscriber{
		baseURL:    baseURL,
		model:      model,
		language:   language,
		httpClient: client,
	}

	// Test connection with health check
	if err := s.healthCheck(); err != nil {
		return nil, fmt.Errorf("STT service health check failed: %w", err)
	}

	logging.Sugar.Infow("Connected to STT REST service", "base_url", baseURL)

	return s, nil
}

// healthCheck verifies the service is running
func (s *ServerTranscriber) healthCheck() error {
	resp, err := s.httpClient.Get(s.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("failed to connect to STT service at %s: %w", s.baseURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("STT service health check failed with status: %d", resp.StatusCode)
	}

	return nil
}

// Transcribe implements the Transcriber interface
func (s *ServerTranscriber) Transcribe(ctx context.Context, audioData []float32, sampleRate int) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("empty audio data")
	}

	if sampleRate <= 0 {
		return "", fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	startTime := time.Now()

	wavData, err := audio.EncodeWAV(audioData, sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to encode audio: %w", err)
	}

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	audioWriter, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := audioWriter.Write(wavData); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}

	_ = writer.WriteField("model", s.model)
	_ = writer.WriteField("language", s.language)
	_ = writer.WriteField("temperature", "0.0")
	_ = writer.WriteField("response_format", "json")

	contentType := writer.FormDataContentType()
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/audio/transcriptions", &requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription HTTP request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcription failed with status %d: %s", resp.StatusCode, string(body))
	}

	var transcriptionResp transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&transcriptionResp); err != nil {
		return "", fmt.Errorf("failed to parse transcription response: %w", err)
	}

	text := strings.TrimSpace(transcriptionResp.Text)
	logging.LogTranscription(config.EngineServer, "transcribe",
		zap.Int64("processing_time_ms", time.Since(startTime).Milliseconds()),
		zap.Int("text_length", len(text)),
	)

	return text, nil
}

// Engine returns the engine identifier
func (s *ServerTranscriber) Engine() string { return config.EngineServer }

// Model returns the model name in use
func (s *ServerTranscriber) Model() string { return s.model }

// Close cleans up resources
func (s *ServerTranscriber) Close() error {
	logging.Sugar.Infow("Closing STT client", "base_url", s.baseURL)
	return nil
}
