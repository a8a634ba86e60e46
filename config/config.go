package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"snappurge/utils"
)

// Scan contains directory traversal settings
type Scan struct {
	Recursive  bool `toml:"recursive"`
	Strictness int  `toml:"strictness"`
	Workers    int  `toml:"workers"`
}

// Hash selects the fingerprint algorithm
type Hash struct {
	Algorithm string `toml:"algorithm"`
}

// Cluster contains pairwise comparison settings
type Cluster struct {
	Workers int `toml:"workers"`
}

// Logging contains configuration for log output
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Report configures the optional SQLite export of each run
type Report struct {
	Path string `toml:"path"`
}

// Lock controls the cross-process lock taken per scanned root
type Lock struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for snappurge
type Config struct {
	Scan    Scan    `toml:"scan"`
	Hash    Hash    `toml:"hash"`
	Cluster Cluster `toml:"cluster"`
	Logging Logging `toml:"logging"`
	Report  Report  `toml:"report"`
	Lock    Lock    `toml:"lock"`
}

// Load locates, parses, normalises and validates a configuration file. An
// empty path means the default location. A missing file is not an error; the
// defaults are returned with exists=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// Encode renders the configuration as TOML
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func resolveConfigPath(path string) (string, bool, error) {
	var err error
	if path == "" {
		path, err = utils.GetDefaultConfigPath()
	} else {
		path, err = utils.ExpandPath(path)
	}
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", path)
	}
	return path, true, nil
}
