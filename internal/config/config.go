/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transcription engine modes
const (
	EngineAPI    = "api"    // OpenAI Whisper API
	EngineLocal  = "local"  // whisper.cpp in-process
	EngineServer = "server" // OpenAI-compatible STT server
)

// Output modes
const (
	OutputCopy    = "copy"
	OutputPaste   = "paste"
	OutputBoth    = "both"
	OutputDisplay = "display"
)

// Config holds all configuration for the QuillScribe daemon
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Audio      AudioConfig      `yaml:"audio"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Output     OutputConfig     `yaml:"output"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
	NATS       NATSConfig       `yaml:"nats"`
	Redis      RedisConfig      `yaml:"redis"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AudioConfig holds capture and utterance detection configuration
type AudioConfig struct {
	SampleRate     int           `yaml:"sample_rate"`
	Channels       int           `yaml:"channels"`
	ChunkSize      int           `yaml:"chunk_size"`
	NoiseThreshold float64       `yaml:"noise_threshold"`
	SilenceTimeout time.Duration `yaml:"silence_timeout"`
	LevelSmoothing float64       `yaml:"level_smoothing"`
	MaxUtterance   time.Duration `yaml:"max_utterance"`
}

// TranscribeConfig holds transcription engine configuration
type TranscribeConfig struct {
	Engine    string `yaml:"engine"` // "api", "local" or "server"
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`     // local ggml/whisper model name
	ModelDir  string `yaml:"model_dir"` // where downloaded models live
	ServerURL string `yaml:"server_url"`
	Language  string `yaml:"language"` // empty = auto-detect
}

// OutputConfig holds transcript delivery configuration
type OutputConfig struct {
	Mode           string        `yaml:"mode"` // "copy", "paste", "both", "display"
	Silent         bool          `yaml:"silent"`
	AutoClear      bool          `yaml:"auto_clear"`
	AutoClearDelay time.Duration `yaml:"auto_clear_delay"`
}

// StorageConfig holds transcript store configuration
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NATSConfig holds NATS messaging configuration
type NATSConfig struct {
	URL           string        `yaml:"url"`
	MaxReconnect  int           `yaml:"max_reconnect"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// RedisConfig holds the optional Redis transcript cache configuration.
// Disabled when Addr is empty.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	KeyPrefix string `yaml:"key_prefix"`
	Channel   string `yaml:"channel"`
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("QUILL_HOST", "0.0.0.0"),
			Port:         getEnvInt("QUILL_PORT", 8090),
			ReadTimeout:  getEnvDuration("QUILL_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("QUILL_WRITE_TIMEOUT", 30*time.Second),
		},
		Audio: AudioConfig{
			SampleRate:     getEnvInt("QUILL_SAMPLE_RATE", 16000),
			Channels:       getEnvInt("QUILL_CHANNELS", 1),
			ChunkSize:      getEnvInt("QUILL_CHUNK_SIZE", 1024),
			NoiseThreshold: getEnvFloat64("QUILL_NOISE_THRESHOLD", 0.01),
			SilenceTimeout: getEnvDuration("QUILL_SILENCE_TIMEOUT", 2*time.Second),
			LevelSmoothing: getEnvFloat64("QUILL_LEVEL_SMOOTHING", 0.7),
			MaxUtterance:   getEnvDuration("QUILL_MAX_UTTERANCE", 60*time.Second),
		},
		Transcribe: TranscribeConfig{
			Engine:    getEnvString("QUILL_ENGINE", EngineAPI),
			APIKey:    getEnvString("OPENAI_API_KEY", ""),
			Model:     getEnvString("QUILL_MODEL", "base"),
			ModelDir:  getEnvString("QUILL_MODEL_DIR", defaultModelDir()),
			ServerURL: getEnvString("STT_URL", "http://localhost:8000"),
			Language:  getEnvString("QUILL_LANGUAGE", ""),
		},
		Output: OutputConfig{
			Mode:           getEnvString("QUILL_OUTPUT_MODE", OutputBoth),
			Silent:         getEnvBool("QUILL_OUTPUT_SILENT", false),
			AutoClear:      getEnvBool("QUILL_OUTPUT_AUTO_CLEAR", false),
			AutoClearDelay: getEnvDuration("QUILL_OUTPUT_AUTO_CLEAR_DELAY", 5*time.Second),
		},
		Storage: StorageConfig{
			DBPath: getEnvString("QUILL_DB_PATH", "./data/quillscribe.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		NATS: NATSConfig{
			URL:           getEnvString("NATS_URL", "nats://localhost:4222"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		Redis: RedisConfig{
			Addr:      getEnvString("REDIS_ADDR", ""),
			KeyPrefix: getEnvString("REDIS_KEY_PREFIX", "quillscribe:session:"),
			Channel:   getEnvString("REDIS_CHANNEL", "quillscribe.transcripts"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadWithFile loads configuration from the environment, then overlays
// values from a YAML config file if path is non-empty.
func LoadWithFile(path string) (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.Audio.SampleRate)
	}

	if c.Audio.Channels < 1 || c.Audio.Channels > 2 {
		return fmt.Errorf("invalid channel count: %d", c.Audio.Channels)
	}

	if c.Audio.NoiseThreshold <= 0 || c.Audio.NoiseThreshold >= 1 {
		return fmt.Errorf("noise threshold must be in (0, 1): %f", c.Audio.NoiseThreshold)
	}

	if c.Audio.LevelSmoothing < 0 || c.Audio.LevelSmoothing >= 1 {
		return fmt.Errorf("level smoothing must be in [0, 1): %f", c.Audio.LevelSmoothing)
	}

	if c.Audio.SilenceTimeout <= 0 {
		return fmt.Errorf("silence timeout must be positive: %v", c.Audio.SilenceTimeout)
	}

	switch c.Transcribe.Engine {
	case EngineAPI, EngineLocal, EngineServer:
	default:
		return fmt.Errorf("unknown transcription engine: %q", c.Transcribe.Engine)
	}

	if c.Transcribe.Engine == EngineAPI && c.Transcribe.APIKey != "" && !ValidAPIKey(c.Transcribe.APIKey) {
		return fmt.Errorf("malformed OpenAI API key")
	}

	if c.Transcribe.Engine == EngineServer && c.Transcribe.ServerURL == "" {
		return fmt.Errorf("STT server URL must be provided for server engine")
	}

	switch c.Output.Mode {
	case OutputCopy, OutputPaste, OutputBoth, OutputDisplay:
	default:
		return fmt.Errorf("unknown output mode: %q", c.Output.Mode)
	}

	if c.Output.AutoClear && c.Output.AutoClearDelay <= 0 {
		return fmt.Errorf("auto-clear delay must be positive: %v", c.Output.AutoClearDelay)
	}

	return nil
}

// ValidAPIKey reports whether the key looks like an OpenAI API key
func ValidAPIKey(key string) bool {
	return strings.HasPrefix(key, "sk-") && len(key) > 20
}

// defaultModelDir returns the default location for downloaded models
func defaultModelDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./models"
	}
	return home + "/.cache/quillscribe/models"
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
