package config

import (
	"fmt"
	"strings"

	"snappurge/utils"
)

// Normalize trims and lower-cases enumerated values, fills empty ones with
// defaults and expands ~ in paths. Load applies it; callers that override
// fields afterwards apply it again.
func (c *Config) Normalize() error {
	c.Hash.Algorithm = strings.ToLower(strings.TrimSpace(c.Hash.Algorithm))
	if c.Hash.Algorithm == "" {
		c.Hash.Algorithm = defaultAlgorithm
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}

	var err error
	if c.Logging.File, err = utils.ExpandPath(c.Logging.File); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	if c.Report.Path, err = utils.ExpandPath(c.Report.Path); err != nil {
		return fmt.Errorf("report.path: %w", err)
	}
	return nil
}
