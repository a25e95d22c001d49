package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultShutdownTimeout     = 15 * time.Second
	defaultStorageBackend      = StorageBackendMemory
	defaultSQLitePath          = "sitebuilder.db"
	defaultFirestoreCollection = "state"
	defaultFirestoreDial       = 10 * time.Second
	defaultExportsPrefix       = "exports"
	defaultExportsURLExpiry    = 15 * time.Minute
	defaultEventsTopic         = "site-events"
	defaultCommitDelay         = 500 * time.Millisecond
	defaultAutosaveTimeout     = 10 * time.Second
	defaultLocale              = "en"
	defaultDragMouseDistance   = 8.0
	defaultDragTouchDelay      = 250 * time.Millisecond
	defaultDragTouchTolerance  = 5.0
	defaultMaxImportBytes      = 4 << 20
	defaultEnvironment         = "local"
	defaultLogLevel            = "info"

	envPrefix = "SITEBUILDER_"
)

// Storage backends selectable through SITEBUILDER_STORAGE_BACKEND.
const (
	StorageBackendMemory    = "memory"
	StorageBackendSQLite    = "sqlite"
	StorageBackendFirestore = "firestore"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Firestore FirestoreConfig
	Exports   ExportsConfig
	Events    EventsConfig
	Editor    EditorConfig
	Builder   BuilderConfig
	Security  SecurityConfig
	Log       LogConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// StorageConfig selects where builder state is persisted.
type StorageConfig struct {
	Backend    string
	SQLitePath string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
	Collection   string
	DialTimeout  time.Duration
}

// ExportsConfig controls optional upload of exported site documents.
type ExportsConfig struct {
	Bucket    string
	Prefix    string
	URLExpiry time.Duration
}

// EventsConfig controls publication of site change events.
type EventsConfig struct {
	Enabled   bool
	ProjectID string
	Topic     string
}

// EditorConfig tunes draft editing.
type EditorConfig struct {
	CommitDelay     time.Duration
	AutosaveTimeout time.Duration
}

// BuilderConfig holds page builder defaults.
type BuilderConfig struct {
	DefaultLocale      string
	MaxImportBytes     int
	DragMouseDistance  float64
	DragTouchDelay     time.Duration
	DragTouchTolerance float64
}

// SecurityConfig groups request-facing restrictions.
type SecurityConfig struct {
	Environment    string
	AllowedOrigins []string
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level       string
	Development bool
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides
// and environment variables.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(name string) (string, bool) {
		key := envPrefix + name
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "SERVER_PORT", defaultPort),
			ReadTimeout:     durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Storage: StorageConfig{
			Backend:    strings.ToLower(stringWithDefault(lookup, "STORAGE_BACKEND", defaultStorageBackend)),
			SQLitePath: stringWithDefault(lookup, "STORAGE_SQLITE_PATH", defaultSQLitePath),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
			Collection:   stringWithDefault(lookup, "FIRESTORE_COLLECTION", defaultFirestoreCollection),
			DialTimeout:  durationWithDefault(lookup, "FIRESTORE_DIAL_TIMEOUT", defaultFirestoreDial),
		},
		Exports: ExportsConfig{
			Bucket:    stringWithDefault(lookup, "EXPORTS_BUCKET", ""),
			Prefix:    strings.Trim(stringWithDefault(lookup, "EXPORTS_PREFIX", defaultExportsPrefix), "/"),
			URLExpiry: durationWithDefault(lookup, "EXPORTS_URL_EXPIRY", defaultExportsURLExpiry),
		},
		Events: EventsConfig{
			Enabled:   boolWithDefault(lookup, "EVENTS_ENABLED", false),
			ProjectID: stringWithDefault(lookup, "EVENTS_PROJECT_ID", ""),
			Topic:     stringWithDefault(lookup, "EVENTS_TOPIC", defaultEventsTopic),
		},
		Editor: EditorConfig{
			CommitDelay:     durationWithDefault(lookup, "EDITOR_COMMIT_DELAY", defaultCommitDelay),
			AutosaveTimeout: durationWithDefault(lookup, "EDITOR_AUTOSAVE_TIMEOUT", defaultAutosaveTimeout),
		},
		Builder: BuilderConfig{
			DefaultLocale:      stringWithDefault(lookup, "BUILDER_DEFAULT_LOCALE", defaultLocale),
			MaxImportBytes:     intWithDefault(lookup, "BUILDER_MAX_IMPORT_BYTES", defaultMaxImportBytes),
			DragMouseDistance:  floatWithDefault(lookup, "BUILDER_DRAG_MOUSE_DISTANCE", defaultDragMouseDistance),
			DragTouchDelay:     durationWithDefault(lookup, "BUILDER_DRAG_TOUCH_DELAY", defaultDragTouchDelay),
			DragTouchTolerance: floatWithDefault(lookup, "BUILDER_DRAG_TOUCH_TOLERANCE", defaultDragTouchTolerance),
		},
		Security: SecurityConfig{
			Environment:    strings.ToLower(stringWithDefault(lookup, "ENVIRONMENT", defaultEnvironment)),
			AllowedOrigins: csvWithDefault(lookup, "ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:       strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
			Development: boolWithDefault(lookup, "LOG_DEVELOPMENT", false),
		},
	}

	// Events default to the Firestore project when unspecified.
	if cfg.Events.ProjectID == "" {
		cfg.Events.ProjectID = cfg.Firestore.ProjectID
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	switch cfg.Storage.Backend {
	case StorageBackendMemory:
	case StorageBackendSQLite:
		if strings.TrimSpace(cfg.Storage.SQLitePath) == "" {
			missing = append(missing, "Storage.SQLitePath")
		}
	case StorageBackendFirestore:
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
		if strings.TrimSpace(cfg.Firestore.Collection) == "" {
			missing = append(missing, "Firestore.Collection")
		}
	default:
		missing = append(missing, "Storage.Backend")
	}
	if cfg.Events.Enabled {
		if cfg.Events.ProjectID == "" {
			missing = append(missing, "Events.ProjectID")
		}
		if strings.TrimSpace(cfg.Events.Topic) == "" {
			missing = append(missing, "Events.Topic")
		}
	}
	if cfg.Editor.CommitDelay <= 0 {
		missing = append(missing, "Editor.CommitDelay")
	}
	if cfg.Editor.AutosaveTimeout <= 0 {
		missing = append(missing, "Editor.AutosaveTimeout")
	}
	if cfg.Builder.MaxImportBytes <= 0 {
		missing = append(missing, "Builder.MaxImportBytes")
	}
	if cfg.Builder.DragMouseDistance <= 0 {
		missing = append(missing, "Builder.DragMouseDistance")
	}
	if cfg.Builder.DragTouchDelay <= 0 {
		missing = append(missing, "Builder.DragTouchDelay")
	}
	if cfg.Builder.DragTouchTolerance <= 0 {
		missing = append(missing, "Builder.DragTouchTolerance")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
