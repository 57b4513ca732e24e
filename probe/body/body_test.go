package body

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/contract-tester/probe/model"
)

func newModel(t *testing.T, fields ...model.FieldSpec) *model.RequirementsModel {
	t.Helper()
	m, err := model.NewRequirementsModel("users", model.Metadata{}, fields)
	require.NoError(t, err)
	return m
}

func TestDefaultSignup(t *testing.T) {
	m := newModel(t,
		model.FieldSpec{Name: "email", Type: model.Scalar(model.KindString), Format: "email", Required: true, Example: "user@gmail.com"},
		model.FieldSpec{Name: "password", Type: model.Scalar(model.KindString), Required: true, Example: "StrongPassword123!"},
		model.FieldSpec{Name: "name", Type: model.Scalar(model.KindString), HasDefault: true, Default: "", Example: "Sample name"},
		model.FieldSpec{Name: "nickname", Type: model.Scalar(model.KindString), Example: "Sample nickname"},
	)

	b, err := Default(m)
	require.NoError(t, err)
	require.Equal(t, model.Body{
		"email":    "user@gmail.com",
		"password": "StrongPassword123!",
		"name":     "",
	}, b)
}

func TestDefaultFallbacks(t *testing.T) {
	m := newModel(t,
		model.FieldSpec{Name: "contact", Type: model.Scalar(model.KindString), Format: "email", Required: true},
		model.FieldSpec{Name: "new_password", Type: model.Scalar(model.KindString), Required: true},
		model.FieldSpec{Name: "title", Type: model.Scalar(model.KindString), Required: true},
		model.FieldSpec{Name: "active", Type: model.Scalar(model.KindBoolean), Required: true},
		model.FieldSpec{Name: "count", Type: model.Scalar(model.KindInteger), Required: true},
		model.FieldSpec{Name: "opt_null", Type: model.Scalar(model.KindString), HasDefault: true, Default: nil},
	)

	b, err := Default(m)
	require.NoError(t, err)
	require.Equal(t, "test@example.com", b["contact"])
	require.Equal(t, "TestPassword123!", b["new_password"])
	require.Equal(t, "Testtitle", b["title"])
	require.Equal(t, true, b["active"])
	require.Equal(t, int64(1), b["count"])
	v, ok := b["opt_null"]
	require.True(t, ok)
	require.Nil(t, v)

	for _, name := range m.RequiredNames() {
		require.Contains(t, b, name)
	}
}

func TestDefaultIncomplete(t *testing.T) {
	m := newModel(t,
		model.FieldSpec{Name: "tags", Type: model.Scalar(model.KindArray), Required: true},
	)
	_, err := Default(m)
	require.ErrorIs(t, err, model.ErrIncompleteDefaultBody)

	_, err = Default(nil)
	require.ErrorIs(t, err, model.ErrIncompleteDefaultBody)
}

func TestDefaultDoesNotAlias(t *testing.T) {
	m := newModel(t,
		model.FieldSpec{Name: "meta", Type: model.Scalar(model.KindObject), Required: true, Example: map[string]any{"a": 1}},
	)
	b, err := Default(m)
	require.NoError(t, err)
	b["meta"].(map[string]any)["a"] = 2
	require.Equal(t, 1, m.RequiredFields["meta"].Example.(map[string]any)["a"])
}
