package engine

import "snappurge/cluster"

// Strictness bounds. Higher strictness means a smaller threshold, so only
// closer fingerprints are linked.
const (
	MinStrictness     = 0
	MaxStrictness     = 20
	DefaultStrictness = 15
)

// ThresholdFor converts a strictness level into the clusterer threshold
func ThresholdFor(strictness int) int {
	return MaxStrictness - strictness
}

// StrictnessLevel returns a human label for a strictness value
func StrictnessLevel(strictness int) string {
	switch {
	case strictness <= 0:
		return "very low"
	case strictness <= 5:
		return "low"
	case strictness <= 10:
		return "medium"
	case strictness <= 15:
		return "high"
	default:
		return "exact"
	}
}

// Level describes one strictness setting
type Level struct {
	Strictness  int    `json:"strictness"`
	Threshold   int    `json:"threshold"`
	MaxDistance int    `json:"max_distance"`
	Label       string `json:"label"`
}

// Levels lists every strictness setting from loosest to strictest
func Levels() []Level {
	levels := make([]Level, 0, MaxStrictness-MinStrictness+1)
	for s := MinStrictness; s <= MaxStrictness; s++ {
		t := ThresholdFor(s)
		levels = append(levels, Level{
			Strictness:  s,
			Threshold:   t,
			MaxDistance: cluster.Limit(t),
			Label:       StrictnessLevel(s),
		})
	}
	return levels
}
