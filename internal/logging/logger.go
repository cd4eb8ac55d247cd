/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

var (
	// Global logger instance
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json", "console"
}

// Initialize sets up the global logger based on environment variables
func Initialize() error {
	config := LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "console"),
	}

	return InitializeWithConfig(config)
}

// InitializeWithConfig sets up the global logger with provided configuration
func InitializeWithConfig(config LogConfig) error {
	var zapConfig zap.Config

	switch strings.ToLower(config.Format) {
	case "json":
		zapConfig = zap.NewProductionConfig()
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	default:
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(strings.ToLower(config.Level))
	if err != nil {
		// Default to info level if parsing fails
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	logger, err := zapConfig.Build(
		zap.AddCallerSkip(1), // Skip the wrapper functions
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return err
	}

	Logger = logger
	Sugar = logger.Sugar()

	Sugar.Infof("🚀 Structured logging initialized (level: %s, format: %s)",
		config.Level, config.Format)

	return nil
}

// Sync flushes any buffered log entries
func Sync() {
	if Logger != nil {
		if err := Logger.Sync(); err != nil {
			// Sync can fail on some platforms (notably stderr on Linux);
			// not critical, so the error is dropped
			_ = err
		}
	}
}

// Close cleans up the logger
func Close() {
	Sync()
}

// Helper functions for common logging patterns

// LogCapture logs audio capture pipeline events
func LogCapture(sessionID, stage string, fields ...zap.Field) {
	if Logger == nil {
		return
	}

	baseFields := []zap.Field{
		zap.String("component", "capture"),
		zap.String("session_id", sessionID),
		zap.String("stage", stage),
	}

	allFields := append(baseFields, fields...)
	Logger.Info("Audio capture", allFields...)
}

// LogTranscription logs transcription engine events
func LogTranscription(engine, operation string, fields ...zap.Field) {
	if Logger == nil {
		return
	}

	baseFields := []zap.Field{
		zap.String("component", "transcription"),
		zap.String("engine", engine),
		zap.String("operation", operation),
	}

	allFields := append(baseFields, fields...)
	Logger.Info("Transcription", allFields...)
}

// LogOutput logs output dispatch events (clipboard, paste, display)
func LogOutput(mode string, fields ...zap.Field) {
	if Logger == nil {
		return
	}

	baseFields := []zap.Field{
		zap.String("component", "output"),
		zap.String("mode", mode),
	}

	allFields := append(baseFields, fields...)
	Logger.Info("Output dispatch", allFields...)
}

// LogDatabaseOperation logs database operations
func LogDatabaseOperation(operation, table string, fields ...zap.Field) {
	if Logger == nil {
		return
	}

	baseFields := []zap.Field{
		zap.String("component", "database"),
		zap.String("operation", operation),
		zap.String("table", table),
	}

	allFields := append(baseFields, fields...)
	Logger.Info("Database operation", allFields...)
}

// LogError logs errors with context
func LogError(err error, message string, fields ...zap.Field) {
	if Logger == nil {
		return
	}

	baseFields := []zap.Field{
		zap.Error(err),
	}

	allFields := append(baseFields, fields...)
	Logger.Error(message, allFields...)
}

// LogWarn logs warnings with context
func LogWarn(message string, fields ...zap.Field) {
	if Logger == nil {
		return
	}

	Logger.Warn(message, fields...)
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
