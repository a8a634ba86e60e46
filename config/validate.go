package config

import (
	"errors"
	"fmt"

	"snappurge/engine"
	"snappurge/imageprocessor"
	"snappurge/imageprocessor/cvhash"
	"snappurge/logging"
)

// Algorithms lists the accepted hash.algorithm values
var Algorithms = []string{
	imageprocessor.AlgorithmPerceptual,
	imageprocessor.AlgorithmAverage,
	imageprocessor.AlgorithmDifference,
	cvhash.Algorithm,
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	if c.Scan.Strictness < engine.MinStrictness || c.Scan.Strictness > engine.MaxStrictness {
		return fmt.Errorf("scan.strictness must be between %d and %d", engine.MinStrictness, engine.MaxStrictness)
	}
	if c.Scan.Workers < 0 {
		return errors.New("scan.workers must not be negative")
	}
	if c.Cluster.Workers < 0 {
		return errors.New("cluster.workers must not be negative")
	}
	if !validAlgorithm(c.Hash.Algorithm) {
		return fmt.Errorf("hash.algorithm: unsupported value %q (want one of %v)", c.Hash.Algorithm, Algorithms)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "console", "text", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func validAlgorithm(name string) bool {
	for _, a := range Algorithms {
		if a == name {
			return true
		}
	}
	return false
}
