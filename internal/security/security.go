/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package security

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidModelName is returned when a model name format is invalid
	ErrInvalidModelName = errors.New("invalid model name")

	// modelNamePattern validates model names to only allow safe characters
	modelNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// SanitizeLogInput removes newline characters to prevent log injection.
// Use this for user-controlled data before logging.
func SanitizeLogInput(input string) string {
	sanitized := strings.ReplaceAll(input, "\n", "")
	sanitized = strings.ReplaceAll(sanitized, "\r", "")
	return sanitized
}

// ValidateModelName ensures a model name contains only safe characters and
// cannot escape the model directory. Model names become file names on disk,
// so path separators and parent references are rejected outright.
func ValidateModelName(model string) error {
	if model == "" {
		return ErrInvalidModelName
	}

	if strings.Contains(model, "/") || strings.Contains(model, "\\") || strings.Contains(model, "..") {
		return ErrInvalidModelName
	}

	if !modelNamePattern.MatchString(model) {
		return ErrInvalidModelName
	}

	return nil
}
