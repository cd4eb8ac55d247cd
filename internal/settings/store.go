/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

// Package settings persists the user's preference profile as JSON under the
// user config directory, independent of the daemon's environment config.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store manages the persisted settings profile
type Store struct {
	mu       sync.RWMutex
	dir      string
	path     string
	settings map[string]interface{}
}

// defaults returns the default settings tree. Only keys missing from the
// loaded profile are filled in, so user edits survive upgrades.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"audio": map[string]interface{}{
			"device_id":       nil, // nil = system default
			"sample_rate":     float64(16000),
			"channels":        float64(1),
			"sounds_enabled":  true,
			"auto_select_mic": false,
		},
		"whisper": map[string]interface{}{
			"mode":        "api",
			"api_key":     "",
			"local_model": "base",
		},
		"output": map[string]interface{}{
			"mode":             "both",
			"silent_mode":      false,
			"auto_clear":       false,
			"auto_clear_delay": float64(5),
		},
		"shortcuts": map[string]interface{}{
			"record_toggle": "Win+F",
		},
		"advanced": map[string]interface{}{
			"buffer_size":     float64(1024),
			"noise_threshold": 0.01,
			"silence_timeout": 2.0,
		},
	}
}

// NewStore creates a settings store rooted at dir. If dir is empty the
// default user config directory is used. Existing settings are loaded and
// defaults merged for missing keys.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".config", "quillscribe")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	s := &Store{
		dir:      dir,
		path:     filepath.Join(dir, "settings.json"),
		settings: map[string]interface{}{},
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	s.applyDefaults()

	return s, nil
}

// load reads the settings file if it exists. A corrupt file resets the
// profile rather than failing startup.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.settings = map[string]interface{}{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	var loaded map[string]interface{}
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.settings = map[string]interface{}{}
		return nil
	}

	s.settings = loaded
	return nil
}

// applyDefaults fills in default values for keys missing from the profile
func (s *Store) applyDefaults() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for category, values := range defaults() {
		existing, ok := s.settings[category].(map[string]interface{})
		if !ok {
			existing = map[string]interface{}{}
			s.settings[category] = existing
		}

		valueMap, ok := values.(map[string]interface{})
		if !ok {
			continue
		}
		for key, value := range valueMap {
			if _, present := existing[key]; !present {
				existing[key] = value
			}
		}
	}
}

// Get returns a setting value using slash notation, e.g. Get("output/mode").
// The second return value reports whether the path resolved.
func (s *Store) Get(path string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var current interface{} = s.settings
	for _, key := range strings.Split(path, "/") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// GetString returns a string setting, or fallback if absent or mistyped
func (s *Store) GetString(path, fallback string) string {
	if v, ok := s.Get(path); ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return fallback
}

// GetBool returns a bool setting, or fallback if absent or mistyped
func (s *Store) GetBool(path string, fallback bool) bool {
	if v, ok := s.Get(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

// GetFloat returns a numeric setting, or fallback if absent or mistyped
func (s *Store) GetFloat(path string, fallback float64) float64 {
	if v, ok := s.Get(path); ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return fallback
}

// Set writes a setting value using slash notation, creating intermediate
// categories as needed
func (s *Store) Set(path string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := strings.Split(path, "/")
	current := s.settings
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
}

// Save writes the profile to disk
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.settings, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// writeFileAtomic writes through a temp file and renames it into place, so a
// crash mid-write never leaves a truncated profile behind
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Reset restores defaults. With a non-empty category only that category is
// reset; otherwise the whole profile is.
func (s *Store) Reset(category string) error {
	s.mu.Lock()
	if category != "" {
		delete(s.settings, category)
	} else {
		s.settings = map[string]interface{}{}
	}
	s.mu.Unlock()

	s.applyDefaults()
	return s.Save()
}

// All returns a deep copy of the full settings tree
func (s *Store) All() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopy(s.settings)
}

// Replace swaps in a complete settings tree (used by import and the HTTP
// API), fills defaults for anything missing, and saves.
func (s *Store) Replace(settings map[string]interface{}) error {
	if settings == nil {
		return fmt.Errorf("settings must be an object")
	}

	s.mu.Lock()
	s.settings = deepCopy(settings)
	s.mu.Unlock()

	s.applyDefaults()
	return s.Save()
}

// Export writes the profile to an arbitrary file path
func (s *Store) Export(path string) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.settings, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to export settings: %w", err)
	}
	return nil
}

// Import loads a profile from an arbitrary file path, validating that it is
// a JSON object before replacing the current profile
func (s *Store) Import(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	var imported map[string]interface{}
	if err := json.Unmarshal(data, &imported); err != nil {
		return fmt.Errorf("invalid settings file format: %w", err)
	}

	return s.Replace(imported)
}

// Dir returns the settings directory path
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the settings file path
func (s *Store) Path() string {
	return s.path
}

func deepCopy(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = deepCopy(nested)
		} else {
			out[k] = v
		}
	}
	return out
}
