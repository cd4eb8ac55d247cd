/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/theguy000/QuillScribe/internal/events"
	"github.com/theguy000/QuillScribe/internal/logging"
	"github.com/theguy000/QuillScribe/internal/storage"
)

// ListTranscriptsResponse is the paginated transcript listing
type ListTranscriptsResponse struct {
	Transcripts []*events.TranscriptionEvent `json:"transcripts"`
	Total       int64                        `json:"total"`
	Page        int                          `json:"page"`
	PageSize    int                          `json:"page_size"`
	TotalPages  int                          `json:"total_pages"`
}

// handleTranscripts handles GET and POST /api/transcripts
func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		s.createTranscript(w, r)
		return
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()

	page := parseIntParam(query.Get("page"), 1)
	pageSize := parseIntParam(query.Get("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}

	options := storage.ListOptions{
		SessionID: query.Get("session_id"),
		Engine:    query.Get("engine"),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
		SortBy:    query.Get("sort_by"),
		SortOrder: strings.ToUpper(query.Get("sort_order")),
	}

	if successStr := query.Get("success"); successStr != "" {
		if success, err := strconv.ParseBool(successStr); err == nil {
			options.Success = &success
		}
	}

	if startTimeStr := query.Get("start_time"); startTimeStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			options.StartTime = &startTime
		}
	}
	if endTimeStr := query.Get("end_time"); endTimeStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			options.EndTime = &endTime
		}
	}

	total, err := s.store.Count(options)
	if err != nil {
		logging.LogError(err, "Failed to count transcripts")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	list, err := s.store.List(options)
	if err != nil {
		logging.LogError(err, "Failed to list transcripts")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if list == nil {
		list = []*events.TranscriptionEvent{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	writeJSON(w, http.StatusOK, ListTranscriptsResponse{
		Transcripts: list,
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
	})
}

// createTranscript stores an event produced outside the capture pipeline,
// such as a transcript imported from another machine
func (s *Server) createTranscript(w http.ResponseWriter, r *http.Request) {
	var event events.TranscriptionEvent
	if err := readJSON(r, &event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if event.UUID == "" {
		seeded := events.NewTranscriptionEvent(event.SessionID)
		event.UUID = seeded.UUID
		if event.Timestamp.IsZero() {
			event.Timestamp = seeded.Timestamp
		}
	}

	if err := event.IsValid(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.Insert(&event); err != nil {
		logging.LogError(err, "Failed to store imported transcript")
		writeError(w, http.StatusInternalServerError, "failed to store transcript")
		return
	}

	writeJSON(w, http.StatusCreated, &event)
}

// handleTranscriptByID handles GET and DELETE /api/transcripts/{uuid}
func (s *Server) handleTranscriptByID(w http.ResponseWriter, r *http.Request) {
	uuid := strings.TrimPrefix(r.URL.Path, "/api/transcripts/")
	if uuid == "" || strings.Contains(uuid, "/") {
		writeError(w, http.StatusBadRequest, "transcript ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		event, err := s.store.GetByUUID(uuid)
		if err != nil {
			writeError(w, http.StatusNotFound, "transcript not found")
			return
		}
		writeJSON(w, http.StatusOK, event)

	case http.MethodDelete:
		if err := s.store.Delete(uuid); err != nil {
			writeError(w, http.StatusNotFound, "transcript not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"deleted": uuid})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleMaintenance handles POST /api/maintenance, compacting the history
// database after bulk deletes
func (s *Server) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.store.Maintain(); err != nil {
		logging.LogError(err, "Database maintenance failed")
		writeError(w, http.StatusInternalServerError, "maintenance failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseIntParam parses an integer query parameter with a fallback
func parseIntParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
