// Package imageprocessor decodes the supported image formats and turns decoded
// images into 64-bit perceptual fingerprints.
package imageprocessor
