/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package storage

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/theguy000/QuillScribe/internal/events"
	"github.com/theguy000/QuillScribe/internal/logging"
)

// TranscriptionStore handles database operations for transcription events
type TranscriptionStore struct {
	db *Database
}

// NewTranscriptionStore creates a store over the given database
func NewTranscriptionStore(db *Database) *TranscriptionStore {
	return &TranscriptionStore{db: db}
}

// Insert stores a new transcription event
func (s *TranscriptionStore) Insert(event *events.TranscriptionEvent) error {
	if err := event.IsValid(); err != nil {
		return fmt.Errorf("invalid transcription event: %w", err)
	}

	query := `
		INSERT INTO transcription_events (
			uuid, session_id, timestamp,
			audio_hash, audio_duration, sample_rate, peak_level, end_reason,
			text, engine, model,
			output_mode, processing_time_ms, success, error_message
		) VALUES (
			?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?, ?
		)`

	_, err := s.db.DB().Exec(query,
		event.UUID, event.SessionID, event.Timestamp,
		event.AudioHash, event.AudioDuration, event.SampleRate, event.PeakLevel, event.EndReason,
		event.Text, event.Engine, event.Model,
		event.OutputMode, event.ProcessingTime, event.Success, event.ErrorMessage,
	)

	if err != nil {
		return fmt.Errorf("failed to insert transcription event: %w", err)
	}

	logging.LogDatabaseOperation("insert", "transcription_events",
		zap.String("uuid", event.UUID),
		zap.String("session_id", event.SessionID))
	return nil
}

// GetByUUID retrieves a transcription event by its UUID
func (s *TranscriptionStore) GetByUUID(uuid string) (*events.TranscriptionEvent, error) {
	query := selectColumns + " FROM transcription_events WHERE uuid = ?"

	row := s.db.DB().QueryRow(query, uuid)
	return s.scanEvent(row)
}

// List retrieves transcription events with pagination and filtering
func (s *TranscriptionStore) List(options ListOptions) ([]*events.TranscriptionEvent, error) {
	query, args := s.buildListQuery(options)

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcription events: %w", err)
	}
	defer rows.Close()

	var list []*events.TranscriptionEvent
	for rows.Next() {
		event, err := s.scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcription event: %w", err)
		}
		list = append(list, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transcription events: %w", err)
	}

	return list, nil
}

// Count returns the total number of events matching the filter
func (s *TranscriptionStore) Count(options ListOptions) (int64, error) {
	options.Limit = 0
	options.Offset = 0
	query, args := s.buildListQuery(options)

	countQuery := "SELECT COUNT(*) FROM (" + query + ") as filtered"

	var count int64
	if err := s.db.DB().QueryRow(countQuery, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transcription events: %w", err)
	}

	return count, nil
}

// GetRecentBySession retrieves recent events for a session
func (s *TranscriptionStore) GetRecentBySession(sessionID string, limit int) ([]*events.TranscriptionEvent, error) {
	return s.List(ListOptions{
		SessionID: sessionID,
		Limit:     limit,
	})
}

// GetByAudioHash finds events with the same audio hash (potential duplicates)
func (s *TranscriptionStore) GetByAudioHash(audioHash string) ([]*events.TranscriptionEvent, error) {
	query := selectColumns + ` FROM transcription_events
		WHERE audio_hash = ?
		ORDER BY timestamp DESC`

	rows, err := s.db.DB().Query(query, audioHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query by audio hash: %w", err)
	}
	defer rows.Close()

	var list []*events.TranscriptionEvent
	for rows.Next() {
		event, err := s.scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcription event: %w", err)
		}
		list = append(list, event)
	}

	return list, nil
}

// Delete removes a transcription event by UUID
func (s *TranscriptionStore) Delete(uuid string) error {
	result, err := s.db.DB().Exec("DELETE FROM transcription_events WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("failed to delete transcription event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("transcription event not found: %s", uuid)
	}

	logging.LogDatabaseOperation("delete", "transcription_events", zap.String("uuid", uuid))
	return nil
}

// Maintain checkpoints the WAL and vacuums the database file, reclaiming
// space after bulk deletes
func (s *TranscriptionStore) Maintain() error {
	if err := s.db.Checkpoint(); err != nil {
		return err
	}
	if err := s.db.Vacuum(); err != nil {
		return err
	}

	logging.LogDatabaseOperation("maintain", "transcription_events")
	return nil
}

// ListOptions defines filtering and pagination options
type ListOptions struct {
	// Filtering
	SessionID string
	Engine    string
	Success   *bool // nil = all, true = success only, false = errors only
	StartTime *time.Time
	EndTime   *time.Time

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "timestamp", "audio_duration", "processing_time_ms"
	SortOrder string // "ASC", "DESC"
}

const selectColumns = `
	SELECT uuid, session_id, timestamp,
		   audio_hash, audio_duration, sample_rate, peak_level, end_reason,
		   text, engine, model,
		   output_mode, processing_time_ms, success, error_message`

// allowedSortColumns guards ORDER BY against injection
var allowedSortColumns = map[string]bool{
	"timestamp":          true,
	"audio_duration":     true,
	"processing_time_ms": true,
}

// buildListQuery constructs the SQL query based on ListOptions
func (s *TranscriptionStore) buildListQuery(options ListOptions) (string, []interface{}) {
	query := selectColumns + " FROM transcription_events WHERE 1=1"

	var args []interface{}

	if options.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, options.SessionID)
	}

	if options.Engine != "" {
		query += " AND engine = ?"
		args = append(args, options.Engine)
	}

	if options.Success != nil {
		query += " AND success = ?"
		args = append(args, *options.Success)
	}

	if options.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, options.StartTime)
	}

	if options.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, options.EndTime)
	}

	sortBy := options.SortBy
	if !allowedSortColumns[sortBy] {
		sortBy = "timestamp"
	}

	sortOrder := "DESC"
	if options.SortOrder == "ASC" {
		sortOrder = "ASC"
	}

	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)

		if options.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, options.Offset)
		}
	}

	return query, args
}

// scanEvent scans a database row into a TranscriptionEvent
func (s *TranscriptionStore) scanEvent(scanner interface{}) (*events.TranscriptionEvent, error) {
	var event events.TranscriptionEvent

	var row interface {
		Scan(dest ...interface{}) error
	}

	switch v := scanner.(type) {
	case *sql.Row:
		row = v
	case *sql.Rows:
		row = v
	default:
		return nil, fmt.Errorf("unsupported scanner type")
	}

	err := row.Scan(
		&event.UUID, &event.SessionID, &event.Timestamp,
		&event.AudioHash, &event.AudioDuration, &event.SampleRate, &event.PeakLevel, &event.EndReason,
		&event.Text, &event.Engine, &event.Model,
		&event.OutputMode, &event.ProcessingTime, &event.Success, &event.ErrorMessage,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("transcription event not found")
		}
		return nil, err
	}

	return &event, nil
}
