package config

import "snappurge/engine"

const (
	defaultAlgorithm = "phash"
	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

// Default returns a Config populated with the built-in defaults
func Default() Config {
	return Config{
		Scan: Scan{
			Recursive:  true,
			Strictness: engine.DefaultStrictness,
		},
		Hash: Hash{
			Algorithm: defaultAlgorithm,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Lock: Lock{
			Enabled: true,
		},
	}
}
