/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package server

import (
	"net/http"

	"github.com/theguy000/QuillScribe/internal/logging"
)

type updateSettingRequest struct {
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

type resetSettingsRequest struct {
	Category string `json:"category"`
}

// handleSettings handles GET /api/settings and PATCH /api/settings
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.settings.All())

	case http.MethodPatch, http.MethodPut:
		var req updateSettingRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Path == "" {
			writeError(w, http.StatusBadRequest, "setting path is required")
			return
		}

		s.settings.Set(req.Path, req.Value)
		if err := s.settings.Save(); err != nil {
			logging.LogError(err, "Failed to save settings")
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}

		value, _ := s.settings.Get(req.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"path":  req.Path,
			"value": value,
		})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSettingsReset handles POST /api/settings/reset. An empty category
// resets everything.
func (s *Server) handleSettingsReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req resetSettingsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.settings.Reset(req.Category); err != nil {
		logging.LogError(err, "Failed to reset settings")
		writeError(w, http.StatusInternalServerError, "failed to reset settings")
		return
	}

	writeJSON(w, http.StatusOK, s.settings.All())
}
