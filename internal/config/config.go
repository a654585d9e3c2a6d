package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration
type Config struct {
	App         AppConfig         `yaml:"app"`
	VAD         VADConfig         `yaml:"vad"`
	Translation TranslationConfig `yaml:"translation"`
	ElevenLabs  ElevenLabsConfig  `yaml:"elevenlabs"`
	Storage     StorageConfig     `yaml:"storage"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// AppConfig contains HTTP server configuration
type AppConfig struct {
	Port           int      `yaml:"port"`
	StaticDir      string   `yaml:"static_dir"`
	DebugDir       string   `yaml:"debug_dir"` // empty disables audio dumps
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// VADConfig contains voice activity detection and segmentation parameters
type VADConfig struct {
	Threshold            float64 `yaml:"threshold"`
	MinSilenceDurationMs int     `yaml:"min_silence_duration_ms"`
	PaddingMs            int     `yaml:"padding_ms"`
	SpeechPadMs          int     `yaml:"speech_pad_ms"`
}

// TranslationConfig selects and bounds the translation engine
type TranslationConfig struct {
	Engine         string        `yaml:"engine"`
	SourceLanguage string        `yaml:"src_lang"`
	TargetLanguage string        `yaml:"tgt_lang"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	GeminiModel    string        `yaml:"gemini_model"`
	GeminiAPIKey   string        `yaml:"gemini_api_key"`
	EchoLatency    time.Duration `yaml:"echo_latency"`
}

// ElevenLabsConfig contains the text to speech settings of the cascade engine
type ElevenLabsConfig struct {
	APIKey  string `yaml:"api_key"`
	VoiceID string `yaml:"voice_id"`
	ModelID string `yaml:"model_id"`
}

// StorageConfig contains session record storage settings
type StorageConfig struct {
	MongoDBURI string        `yaml:"mongodb_uri"` // empty keeps records in memory
	Database   string        `yaml:"database"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// AuthConfig contains websocket authentication settings
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"` // empty disables auth
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		App: AppConfig{
			Port:      8000,
			StaticDir: "static",
		},
		VAD: VADConfig{
			Threshold:            0.5,
			MinSilenceDurationMs: 500,
			SpeechPadMs:          30,
		},
		Translation: TranslationConfig{
			Engine:         EngineEcho,
			SourceLanguage: "deu",
			TargetLanguage: "eng",
			Timeout:        120 * time.Second,
			MaxConcurrent:  1,
			GeminiModel:    "gemini-2.0-flash",
		},
		Storage: StorageConfig{
			Database:   "jurubahasa",
			SessionTTL: 24 * time.Hour,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Engine names accepted by translation.engine
const (
	EngineEcho    = "echo"
	EngineCascade = "cascade"
)

// Load reads the configuration file at path on top of the defaults, applies
// environment overrides and validates the result. A .env file in the working
// directory is loaded first when present. An empty path uses the defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.App.Port = p
	}

	setString(&c.Translation.Engine, "TRANSLATION_ENGINE")
	setString(&c.Translation.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.ElevenLabs.APIKey, "ELEVEN_LABS_API_KEY")
	setString(&c.ElevenLabs.VoiceID, "ELEVEN_LABS_VOICE_ID")
	setString(&c.ElevenLabs.ModelID, "ELEVEN_LABS_MODEL_ID")
	setString(&c.Storage.MongoDBURI, "MONGODB_URI")
	setString(&c.Storage.Database, "MONGODB_DATABASE")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Logging.Level, "LOG_LEVEL")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Translation.Validate(); err != nil {
		return fmt.Errorf("translation config: %w", err)
	}

	if c.Translation.Engine == EngineCascade {
		if err := c.ElevenLabs.Validate(); err != nil {
			return fmt.Errorf("elevenlabs config: %w", err)
		}
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates app configuration
func (a *AppConfig) Validate() error {
	if a.Port < 1 || a.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", a.Port)
	}
	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	if v.Threshold <= 0 || v.Threshold >= 1 {
		return fmt.Errorf("threshold must be between 0 and 1 (exclusive), got %f", v.Threshold)
	}

	if v.MinSilenceDurationMs < 100 || v.MinSilenceDurationMs > 5000 {
		return fmt.Errorf("min_silence_duration_ms must be between 100 and 5000, got %d", v.MinSilenceDurationMs)
	}

	if v.PaddingMs < 0 {
		return fmt.Errorf("padding_ms cannot be negative, got %d", v.PaddingMs)
	}

	if v.SpeechPadMs < 0 {
		return fmt.Errorf("speech_pad_ms cannot be negative, got %d", v.SpeechPadMs)
	}

	return nil
}

// Validate validates translation configuration
func (t *TranslationConfig) Validate() error {
	switch t.Engine {
	case EngineEcho:
	case EngineCascade:
		if t.GeminiAPIKey == "" {
			return fmt.Errorf("gemini_api_key is required for the cascade engine")
		}
	default:
		return fmt.Errorf("engine must be one of [echo, cascade], got '%s'", t.Engine)
	}

	if t.TargetLanguage == "" {
		return fmt.Errorf("tgt_lang cannot be empty")
	}

	if t.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %s", t.Timeout)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates ElevenLabs configuration
func (e *ElevenLabsConfig) Validate() error {
	if e.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}
	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", s.SessionTTL)
	}
	return nil
}

// Validate validates auth configuration
func (a *AuthConfig) Validate() error {
	if a.JWTSecret != "" && a.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive when auth is enabled, got %s", a.TokenTTL)
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'console', got '%s'", l.Format)
	}

	return nil
}

// AuthEnabled reports whether websocket clients must present a token
func (c *Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}

// UsesMongoDB reports whether session records go to MongoDB
func (c *Config) UsesMongoDB() bool {
	return c.Storage.MongoDBURI != ""
}
