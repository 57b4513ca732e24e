package common

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var percentVarPattern = regexp.MustCompile(`%(\w+)%`)

// ExpandPath resolves $VAR, ${VAR} and %VAR% references and a leading ~ in a
// directory setting. Unset %VAR% references are kept verbatim.
func ExpandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	path = percentVarPattern.ReplaceAllStringFunc(path, func(match string) string {
		if val, ok := os.LookupEnv(strings.Trim(match, "%")); ok && val != "" {
			return val
		}
		return match
	})
	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
