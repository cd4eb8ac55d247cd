/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package server

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/theguy000/QuillScribe/internal/logging"
	"github.com/theguy000/QuillScribe/internal/models"
	"github.com/theguy000/QuillScribe/internal/transcribe"
)

// handleModels handles GET /api/models
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	category := r.URL.Query().Get("category")
	statuses := s.models.Status()

	if category != "" && category != "All" {
		wanted := make(map[string]bool)
		for _, info := range transcribe.ModelsByCategory(category) {
			wanted[info.Name] = true
		}
		filtered := statuses[:0]
		for _, status := range statuses {
			if wanted[status.Name] {
				filtered = append(filtered, status)
			}
		}
		statuses = filtered
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":           statuses,
		"categories":       transcribe.ModelCategories(),
		"total_size_bytes": s.models.TotalSize(),
		"model_dir":        s.models.Dir(),
	})
}

// handleModelByName handles model operations:
//
//	POST   /api/models/{name}/download
//	POST   /api/models/{name}/cancel
//	DELETE /api/models/{name}
func (s *Server) handleModelByName(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/models/")
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "model name is required")
		return
	}

	name := transcribe.NormalizeModelName(parts[0])
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case r.Method == http.MethodPost && action == "download":
		s.startModelDownload(w, name)

	case r.Method == http.MethodPost && action == "cancel":
		if !s.models.Cancel(name) {
			writeError(w, http.StatusNotFound, "no active download for model "+name)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"cancelled": name})

	case r.Method == http.MethodDelete && action == "":
		if err := s.models.Delete(name); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"deleted": name})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// startModelDownload kicks off a background download and returns immediately
func (s *Server) startModelDownload(w http.ResponseWriter, name string) {
	if !transcribe.KnownModel(name) {
		writeError(w, http.StatusNotFound, "unknown model: "+name)
		return
	}
	if s.models.IsDownloaded(name) {
		writeError(w, http.StatusConflict, "model already downloaded: "+name)
		return
	}

	go func() {
		err := s.models.Download(s.ctx, name, func(p models.Progress) {
			logging.Sugar.Debugw("Model download progress",
				"model", p.Model, "percent", p.Percent)
		})
		if err != nil {
			logging.LogError(err, "Model download failed", zap.String("model", name))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"downloading": name})
}
