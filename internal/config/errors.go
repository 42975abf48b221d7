package config

import "errors"

var (
	// ErrInvalidConfig wraps every validation failure reported by Validate,
	// naming the offending key, e.g. "invalid config: podium_size must not be negative".
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps failures reading the YAML file or SEGSCORE_* env vars.
	ErrLoadConfig = errors.New("loading config")
)
