// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Defaults live in New; Load layers an optional YAML file and SEGSCORE_* env vars on top.
//   - Validation failures wrap ErrInvalidConfig, provider failures wrap ErrLoadConfig.
package config

import (
	"runtime"
)

// Storage backends for the leaderboard.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Archive formats accepted for reference and submissions.
const (
	FormatNPZ = "npz"
	FormatPNG = "png"
)

// Dice comparison modes.
const (
	ModeMulticlass = "multiclass"
	ModeBinary     = "binary"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// ReferencePath points at the ground-truth archive loaded at startup.
	ReferencePath string `koanf:"reference_path"`

	// ReferenceFormat selects the archive decoder: npz or png.
	ReferenceFormat string `koanf:"reference_format"`

	// ResultsPath is the JSON leaderboard file used by the json backend.
	ResultsPath string `koanf:"results_path"`

	// StoreBackend selects the leaderboard store: json, sqlite or memory.
	StoreBackend string `koanf:"store_backend"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// MaxUploadBytes caps the size of an uploaded archive.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// NameMaxLen bounds contestant names after trimming.
	NameMaxLen int `koanf:"name_max_len"`

	// DiceMode selects multiclass macro Dice or binary foreground Dice.
	DiceMode string `koanf:"dice_mode"`

	// ScoringConcurrency bounds per-subject scoring goroutines.
	ScoringConcurrency int `koanf:"scoring_concurrency"`

	// WriteQueueSize bounds pending leaderboard appends.
	WriteQueueSize int `koanf:"write_queue_size"`

	// DedupeSize bounds remembered idempotency keys.
	DedupeSize int `koanf:"dedupe_size"`

	// SubmitRatePerSec and SubmitBurst throttle POST /dice-score. Zero disables.
	SubmitRatePerSec float64 `koanf:"submit_rate_per_sec"`
	SubmitBurst      int     `koanf:"submit_burst"`

	// PodiumSize is how many leading entries are shown separately.
	PodiumSize int `koanf:"podium_size"`

	// TempDir holds spooled uploads; empty means os.TempDir().
	TempDir string `koanf:"temp_dir"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":8000",
		ReferencePath:      "data/test_data_reference.npz",
		ReferenceFormat:    FormatNPZ,
		ResultsPath:        "data/results.json",
		StoreBackend:       BackendJSON,
		SQLitePath:         "data/results.db",
		MaxUploadBytes:     1 << 20,
		NameMaxLen:         40,
		DiceMode:           ModeMulticlass,
		ScoringConcurrency: runtime.NumCPU(),
		WriteQueueSize:     1024,
		DedupeSize:         10_000,
		SubmitRatePerSec:   5,
		SubmitBurst:        10,
		PodiumSize:         3,
	}
}
