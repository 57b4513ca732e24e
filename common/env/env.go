// Package env reads typed values from environment variables with defaults.
package env

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// String returns the trimmed value of key, or defaultValue when unset or blank.
func String(key string, defaultValue string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return defaultValue
	}
	return strings.TrimSpace(v)
}

// Int parses key as a base-10 integer. Unparsable values fall back to defaultValue.
func Int(key string, defaultValue int) int {
	v := String(key, "")
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// Bool accepts anything strconv.ParseBool does.
func Bool(key string, defaultValue bool) bool {
	v := String(key, "")
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func Float64(key string, defaultValue float64) float64 {
	v := String(key, "")
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// Duration accepts Go duration strings ("30s") or a bare number of seconds ("30").
func Duration(key string, defaultValue time.Duration) time.Duration {
	v := String(key, "")
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
