package pipeline

import (
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/contract-tester/probe/model"
)

// ErrNoFieldsSelected means a run has nothing to vary.
var ErrNoFieldsSelected = errors.New("no fields selected for testing")

// SelectFields resolves a selection against the selectable list (required
// fields, then optional ones). Entries are names or 1-based indices; an empty
// selection or "all" picks every field. Duplicates are dropped, order is kept.
func SelectFields(m *model.RequirementsModel, selection []string) ([]string, error) {
	available := m.FieldNames()
	if len(available) == 0 {
		return nil, ErrNoFieldsSelected
	}
	if len(selection) == 0 {
		return available, nil
	}

	var (
		out  []string
		seen = map[string]bool{}
	)
	for _, raw := range selection {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.EqualFold(entry, "all") {
			return available, nil
		}

		name := entry
		if _, ok := m.Field(entry); !ok {
			idx, err := strconv.Atoi(entry)
			if err != nil {
				return nil, errors.Errorf("unknown field %q", entry)
			}
			if idx < 1 || idx > len(available) {
				return nil, errors.Errorf("field index %d out of range 1..%d", idx, len(available))
			}
			name = available[idx-1]
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoFieldsSelected
	}
	return out, nil
}
