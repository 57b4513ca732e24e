package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/contract-tester/common/helper"
)

const (
	ResultFilePrefix = "api_test_results_"
	ResultFileSuffix = ".json"
)

// ResultFileName is api_test_results_<YYYYMMDD_HHMMSS>.json.
func ResultFileName(t time.Time) string {
	return ResultFilePrefix + helper.FileTimestamp(t) + ResultFileSuffix
}

// WriteJSON writes v, indented, to a timestamped result file in dir and returns its path.
func WriteJSON(dir string, t time.Time, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create results dir %s", dir)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode results")
	}
	path := filepath.Join(dir, ResultFileName(t))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
