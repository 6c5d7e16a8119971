package config

import (
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize parses a humanized byte size ("512 KiB", "1MB", "1048576").
// Empty input means unlimited (0).
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}
