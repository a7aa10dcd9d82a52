package format

import "fmt"

// Unknown is rendered for absent durations.
const Unknown = "Unknown"

// Duration converts seconds to "M:SS" or "H:MM:SS" display format.
// A nil, zero or negative duration renders as "Unknown"; a real zero-length
// media item is therefore indistinguishable from a missing value.
func Duration(seconds *float64) string {
	if seconds == nil || *seconds <= 0 {
		return Unknown
	}
	s := int64(*seconds)
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
