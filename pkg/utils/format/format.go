package format

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Bytes returns a human-readable byte size (e.g. "1.5 MB").
func Bytes(b int64) string {
	if b < 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(b))
}

// ParseBytes parses a human size such as "500M" or "2GiB". An empty string
// yields 0 (no limit).
func ParseBytes(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	return int64(n), nil
}
