package plan

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/contract-tester/probe/model"
	"github.com/songquanpeng/contract-tester/probe/variation"
)

const samplePlan = `
endpoint: https://api.example.com/api/signup
fields: [email, name]
seed: 42
oracle: false
expectations:
  classes:
    invalid: 422
  fields:
    email:
      values:
        "invalid.email": 400
    name:
      status: 201
      classes:
        boundary: 200
cases:
  - name: duplicate signup
    method: POST
    data:
      email: taken@example.com
    expected_status_code: 409
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(samplePlan))
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/api/signup", p.Endpoint)
	require.Equal(t, Selection{"email", "name"}, p.Fields)
	require.Equal(t, uint64(42), p.Seed)
	require.NotNil(t, p.Oracle)
	require.False(t, *p.Oracle)
	require.Len(t, p.Cases, 1)
}

func TestSelectionScalar(t *testing.T) {
	p, err := Parse([]byte("fields: all\n"))
	require.NoError(t, err)
	require.Equal(t, Selection{"all"}, p.Fields)

	p, err = Parse([]byte("fields: \"email, 3\"\n"))
	require.NoError(t, err)
	require.Equal(t, Selection{"email", "3"}, p.Fields)

	require.Equal(t, Selection{"a", "b"}, ParseSelection(" a, b "))
}

func TestPolicy(t *testing.T) {
	p, err := Parse([]byte(samplePlan))
	require.NoError(t, err)
	policy := p.Expectations.Policy()

	cases := []struct {
		field string
		value variation.Value
		want  int
	}{
		{"email", variation.Value{Value: "invalid.email", Class: variation.ClassInvalid}, http.StatusBadRequest},
		{"email", variation.Value{Value: "@domain.com", Class: variation.ClassInvalid}, http.StatusUnprocessableEntity},
		{"email", variation.Value{Value: "a@b.co", Class: variation.ClassValid}, http.StatusOK},
		{"name", variation.Value{Value: "A", Class: variation.ClassBoundary}, http.StatusOK},
		{"name", variation.Value{Value: "Bob", Class: variation.ClassValid}, http.StatusCreated},
		{"phone", variation.Value{Value: "", Class: variation.ClassInvalid}, http.StatusUnprocessableEntity},
		{"phone", variation.Value{Value: "", Class: variation.ClassBoundary}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, policy.Expect(tc.field, tc.value), "%s=%v", tc.field, tc.value.Value)
	}
}

func TestTestCases(t *testing.T) {
	p, err := Parse([]byte(samplePlan))
	require.NoError(t, err)

	def := model.Body{"email": "user@gmail.com", "password": "StrongPassword123!"}
	cases := p.TestCases(def)
	require.Len(t, cases, 1)
	require.Equal(t, model.SourcePlan, cases[0].Source)
	require.Equal(t, "taken@example.com", cases[0].Data["email"])
	require.Equal(t, "StrongPassword123!", cases[0].Data["password"])
	require.Equal(t, []string{"email"}, cases[0].Fields)
	require.Equal(t, "user@gmail.com", def["email"])
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("cases:\n  - name: x\n    method: POST\n    expected_status_code: 42\n"))
	require.Error(t, err)

	_, err = Parse([]byte("expectations:\n  classes:\n    invalid: 1000\n"))
	require.Error(t, err)

	_, err = Parse([]byte("fields: {a: b}\n"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePlan), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/api/signup", p.Endpoint)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
