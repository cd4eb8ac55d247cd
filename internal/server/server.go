/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

// Package server exposes the HTTP control surface: session control, audio
// ingestion, transcript history, settings, and model management.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/theguy000/QuillScribe/internal/config"
	"github.com/theguy000/QuillScribe/internal/logging"
	"github.com/theguy000/QuillScribe/internal/models"
	"github.com/theguy000/QuillScribe/internal/pipeline"
	"github.com/theguy000/QuillScribe/internal/settings"
	"github.com/theguy000/QuillScribe/internal/storage"
)

// Server is the QuillScribe HTTP server
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	server *http.Server

	manager  *pipeline.Manager
	store    *storage.TranscriptionStore
	settings *settings.Store
	models   *models.Manager

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server wired to the pipeline and its stores
func New(cfg *config.Config, manager *pipeline.Manager, store *storage.TranscriptionStore, settingsStore *settings.Store, modelManager *models.Manager) *Server {
	mux := http.NewServeMux()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:      cfg,
		mux:      mux,
		manager:  manager,
		store:    store,
		settings: settingsStore,
		models:   modelManager,
		ctx:      ctx,
		cancel:   cancel,
	}

	s.server = &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      s.mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.routes()
	return s
}

// routes sets up HTTP routing
func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	// Session control
	s.mux.HandleFunc("/api/session", s.handleSessionStatus)
	s.mux.HandleFunc("/api/session/start", s.handleSessionStart)
	s.mux.HandleFunc("/api/session/stop", s.handleSessionStop)
	s.mux.HandleFunc("/api/session/toggle", s.handleSessionToggle)
	s.mux.HandleFunc("/api/session/status", s.handleSessionStatus)

	// Audio ingestion
	s.mux.HandleFunc("/ingest/wav", s.handleIngestWAV)
	s.mux.HandleFunc("/ws/audio", s.handleAudioSocket)

	// Transcript history
	s.mux.HandleFunc("/api/transcripts", s.handleTranscripts)
	s.mux.HandleFunc("/api/transcripts/", s.handleTranscriptByID)
	s.mux.HandleFunc("/api/maintenance", s.handleMaintenance)

	// Settings
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/settings/reset", s.handleSettingsReset)

	// Model management
	s.mux.HandleFunc("/api/models", s.handleModels)
	s.mux.HandleFunc("/api/models/", s.handleModelByName)

	logging.Sugar.Infow("🌐 HTTP routes configured",
		"session_endpoint", "/api/session",
		"ingest_endpoint", "/ingest/wav",
		"websocket_endpoint", "/ws/audio")
}

// Start runs the HTTP server until Stop is called
func (s *Server) Start() error {
	logging.Sugar.Infow("🚀 QuillScribe server starting",
		"addr", s.server.Addr,
		"engine", s.cfg.Transcribe.Engine)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	logging.Sugar.Infow("🛑 Shutting down QuillScribe server")

	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logging.Sugar.Infow("✅ QuillScribe server shut down")
	return nil
}

// Handler returns the root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// handleHealth provides system health information
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"engine":    s.cfg.Transcribe.Engine,
		"session":   s.manager.Status(),
	}

	writeJSON(w, http.StatusOK, health)
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Sugar.Errorw("Failed to write JSON response", "error", err)
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// readJSON decodes a JSON request body
func readJSON(r *http.Request, data interface{}) error {
	return json.NewDecoder(r.Body).Decode(data)
}
