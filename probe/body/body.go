// Package body synthesizes the default request body of an endpoint.
package body

import (
	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/contract-tester/probe/model"
)

const (
	placeholderEmail    = "test@example.com"
	placeholderPassword = "TestPassword123!"
)

// Default builds the always-valid body: every required field gets a value and
// optional fields carry their declared defaults. A required field with no
// derivable value fails with model.ErrIncompleteDefaultBody.
func Default(m *model.RequirementsModel) (model.Body, error) {
	if m == nil {
		return nil, errors.Wrap(model.ErrIncompleteDefaultBody, "no requirements model")
	}

	b := model.Body{}
	for _, name := range m.RequiredNames() {
		v, ok := requiredValue(m.RequiredFields[name])
		if !ok {
			return nil, errors.Wrapf(model.ErrIncompleteDefaultBody,
				"required field %q (%s) has no derivable value", name, m.RequiredFields[name].Type)
		}
		b[name] = v
	}
	for _, name := range m.OptionalNames() {
		if f := m.OptionalFields[name]; f.HasDefault {
			b[name] = f.Default
		}
	}
	return b.Clone(), nil
}

func requiredValue(f model.FieldSpec) (any, bool) {
	switch {
	case f.Example != nil:
		return f.Example, true
	case f.Format == "email":
		return placeholderEmail, true
	case f.NameContains("password"):
		return placeholderPassword, true
	}
	switch f.Type.Primary() {
	case model.KindString:
		return "Test" + f.Name, true
	case model.KindBoolean:
		return true, true
	case model.KindInteger:
		return int64(1), true
	}
	return nil, false
}
