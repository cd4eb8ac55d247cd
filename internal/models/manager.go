/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

// Package models downloads and manages local whisper model files.
package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theguy000/QuillScribe/internal/logging"
	"github.com/theguy000/QuillScribe/internal/security"
	"github.com/theguy000/QuillScribe/internal/transcribe"
)

const defaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// A download below this fraction of its expected size is treated as
// incomplete and removed on startup
const completenessThreshold = 0.9

const downloadChunkSize = 8192

// Progress reports download state to a callback
type Progress struct {
	Model      string
	Downloaded int64
	Total      int64
	Percent    int
}

// ModelStatus describes one catalog model on disk
type ModelStatus struct {
	transcribe.ModelInfo
	Downloaded  bool  `json:"downloaded"`
	Downloading bool  `json:"downloading"`
	OnDiskBytes int64 `json:"on_disk_bytes"`
}

// Manager downloads whisper model files from HuggingFace and tracks what is
// on disk
type Manager struct {
	dir        string
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	downloads map[string]context.CancelFunc
}

// NewManager creates a manager rooted at dir, removing any download that was
// interrupted before it finished
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}

	m := &Manager{
		dir:        dir,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Minute},
		downloads:  make(map[string]context.CancelFunc),
	}

	m.cleanupIncomplete()
	return m, nil
}

// Dir returns the model directory
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns the on-disk location for a model
func (m *Manager) Path(model string) string {
	return transcribe.ModelPath(m.dir, model)
}

// IsDownloaded reports whether a model file exists and is non-empty
func (m *Manager) IsDownloaded(model string) bool {
	info, err := os.Stat(m.Path(model))
	return err == nil && info.Size() > 0
}

// Status returns the download state of every catalog model
func (m *Manager) Status() []ModelStatus {
	m.mu.Lock()
	active := make(map[string]bool, len(m.downloads))
	for name := range m.downloads {
		active[name] = true
	}
	m.mu.Unlock()

	var statuses []ModelStatus
	for _, info := range transcribe.ListModels() {
		status := ModelStatus{ModelInfo: info, Downloading: active[info.Name]}
		if fi, err := os.Stat(m.Path(info.Name)); err == nil {
			status.Downloaded = fi.Size() > 0
			status.OnDiskBytes = fi.Size()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// TotalSize returns the combined size of downloaded model files
func (m *Manager) TotalSize() int64 {
	var total int64
	for _, info := range transcribe.ListModels() {
		if fi, err := os.Stat(m.Path(info.Name)); err == nil {
			total += fi.Size()
		}
	}
	return total
}

// Download fetches a model file, reporting progress through onProgress. The
// file is written to a .partial path and renamed only on success, so an
// interrupted download never masquerades as a complete model.
func (m *Manager) Download(ctx context.Context, model string, onProgress func(Progress)) error {
	name := transcribe.NormalizeModelName(model)
	if !transcribe.KnownModel(name) {
		return fmt.Errorf("unknown model: %q", model)
	}

	if m.IsDownloaded(name) {
		return fmt.Errorf("model %q already downloaded", name)
	}

	m.mu.Lock()
	if _, active := m.downloads[name]; active {
		m.mu.Unlock()
		return fmt.Errorf("model %q is already downloading", name)
	}
	ctx, cancel := context.WithCancel(ctx)
	m.downloads[name] = cancel
	m.mu.Unlock()

	defer func() {
		cancel()
		m.mu.Lock()
		delete(m.downloads, name)
		m.mu.Unlock()
	}()

	url := m.baseURL + "/" + transcribe.ModelFileName(name)
	logging.Sugar.Infow("⬇️ Starting model download", "model", name, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model download request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close download body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model download failed with status %d", resp.StatusCode)
	}

	partialPath := m.Path(name) + ".partial"
	out, err := os.Create(partialPath)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}

	total := resp.ContentLength
	var downloaded int64
	var chunks int

	buf := make([]byte, downloadChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				out.Close()
				os.Remove(partialPath)
				return fmt.Errorf("failed to write model file: %w", writeErr)
			}
			downloaded += int64(n)
			chunks++

			if onProgress != nil && total > 0 && chunks%10 == 0 {
				onProgress(Progress{
					Model:      name,
					Downloaded: downloaded,
					Total:      total,
					Percent:    int(downloaded * 100 / total),
				})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			os.Remove(partialPath)
			if ctx.Err() != nil {
				logging.Sugar.Infow("Model download cancelled", "model", name)
				return ctx.Err()
			}
			return fmt.Errorf("model download interrupted: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(partialPath)
		return fmt.Errorf("failed to finalize model file: %w", err)
	}

	if err := os.Rename(partialPath, m.Path(name)); err != nil {
		os.Remove(partialPath)
		return fmt.Errorf("failed to move model into place: %w", err)
	}

	if onProgress != nil {
		onProgress(Progress{Model: name, Downloaded: downloaded, Total: downloaded, Percent: 100})
	}

	logging.Sugar.Infow("✅ Model download complete", "model", name, "bytes", downloaded)
	return nil
}

// Cancel aborts an in-flight download for the model, if any
func (m *Manager) Cancel(model string) bool {
	name := transcribe.NormalizeModelName(model)

	m.mu.Lock()
	defer m.mu.Unlock()

	cancel, ok := m.downloads[name]
	if ok {
		cancel()
	}
	return ok
}

// Delete removes a downloaded model file
func (m *Manager) Delete(model string) error {
	name := transcribe.NormalizeModelName(model)
	if err := security.ValidateModelName(name); err != nil {
		return fmt.Errorf("refusing to delete %q: %w", security.SanitizeLogInput(model), err)
	}
	path := m.Path(name)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("model %q is not downloaded", name)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete model %q: %w", name, err)
	}

	logging.Sugar.Infow("🗑️ Model deleted", "model", name)
	return nil
}

// cleanupIncomplete removes partial files and model files that are
// significantly smaller than their expected size
func (m *Manager) cleanupIncomplete() {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())

		if strings.HasSuffix(entry.Name(), ".partial") {
			if err := os.Remove(path); err == nil {
				logging.LogWarn("Removed interrupted download", zap.String("file", entry.Name()))
			}
			continue
		}

		info, ok := transcribe.GetModelInfo(entry.Name())
		if !ok {
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			continue
		}

		if float64(fi.Size()) < float64(info.SizeBytes)*completenessThreshold {
			if err := os.Remove(path); err == nil {
				logging.LogWarn("Removed incomplete model file",
					zap.String("model", info.Name),
					zap.Int64("size", fi.Size()),
					zap.Int64("expected", info.SizeBytes))
			}
		}
	}
}
