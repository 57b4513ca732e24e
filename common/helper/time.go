package helper

import (
	"strconv"
	"time"
)

// FileTimestamp formats t for result file names, e.g. 20240131_154500.
func FileTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// sortableNow is the current time as a fixed-width decimal string.
func sortableNow() string {
	now := time.Now()
	return now.Format("20060102150405") + strconv.FormatInt(int64(now.Nanosecond())+1e9, 10)[1:]
}
