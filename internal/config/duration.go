package config

import (
	"fmt"
	"strings"
	"time"
)

// DurationOrDefault parses a timeout value from config, using defaultValue
// when the field is blank. Timeouts must be positive; a zero or negative
// duration would silently disable the limit it configures.
func DurationOrDefault(value, defaultValue string) (time.Duration, error) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		candidate = strings.TrimSpace(defaultValue)
	}
	if candidate == "" {
		return 0, fmt.Errorf("duration value is empty")
	}

	d, err := time.ParseDuration(candidate)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", candidate, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", candidate)
	}
	return d, nil
}
