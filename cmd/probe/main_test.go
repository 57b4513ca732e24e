package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/contract-tester/probe/pipeline"
	"github.com/songquanpeng/contract-tester/probe/report"
)

const loginDocument = `{
  "paths": {"/auth/login": {"post": {
    "tags": ["auth"],
    "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Login"}}}}
  }}},
  "components": {"schemas": {"Login": {
    "type": "object",
    "required": ["username", "password"],
    "properties": {
      "username": {"type": "string"},
      "password": {"type": "string"}
    }
  }}}
}`

// newTarget rejects empty strings with 400, and answers 200 otherwise.
// When strict is set it also rejects the weak password "password".
func newTarget(t *testing.T, strict bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/openapi.json":
			_, _ = w.Write([]byte(loginDocument))
		case "/auth/login":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			for _, v := range body {
				if v == "" || (strict && v == "password") {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
			}
			_, _ = w.Write([]byte(`{"token": "t"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testLogger(t *testing.T) glog.Logger {
	t.Helper()
	logger, err := glog.NewConsoleWithName("contract-probe-test", glog.LevelInfo)
	require.NoError(t, err)
	return logger
}

func TestLoadConfig(t *testing.T) {
	c, p, err := loadConfig([]string{"-endpoint", "http://api.test/auth/login", "-fields", "username, 2", "-seed", "9", "-no-oracle", "-out", "/tmp/x"}, io.Discard)
	require.NoError(t, err)
	require.Nil(t, p)
	require.Equal(t, "http://api.test/auth/login", c.Endpoint)
	require.Equal(t, []string{"username", "2"}, c.Fields)
	require.EqualValues(t, 9, c.Seed)
	require.True(t, c.NoOracle)
	require.Equal(t, "/tmp/x", c.OutDir)

	c, _, err = loadConfig([]string{"http://api.test/auth/login"}, io.Discard)
	require.NoError(t, err)
	require.Equal(t, "http://api.test/auth/login", c.Endpoint)
	require.Empty(t, c.Fields)

	_, _, err = loadConfig(nil, io.Discard)
	require.ErrorContains(t, err, "endpoint is required")

	_, _, err = loadConfig([]string{"-unknown"}, io.Discard)
	require.Error(t, err)
}

func TestLoadConfigFromPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: http://api.test/auth/login\nfields: all\nseed: 3\n"), 0o644))

	c, p, err := loadConfig([]string{"-plan", path}, io.Discard)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, "http://api.test/auth/login", c.Endpoint)
	require.EqualValues(t, 3, p.Seed)

	_, _, err = loadConfig([]string{"-plan", filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard)
	require.ErrorContains(t, err, "load plan")
}

func TestRunWritesReportAndResults(t *testing.T) {
	srv := newTarget(t, false)
	out := t.TempDir()

	var stdout bytes.Buffer
	err := run(context.Background(), testLogger(t), pipeline.New(),
		[]string{"-endpoint", srv.URL + "/auth/login", "-fields", "password", "-no-oracle", "-seed", "1", "-out", out}, &stdout)
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "Contract Test Report")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, strings.HasPrefix(entries[0].Name(), report.ResultFilePrefix))

	data, err := os.ReadFile(filepath.Join(out, entries[0].Name()))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, []any{"password"}, doc["selected_fields"])
}

func TestRunReportsFailures(t *testing.T) {
	srv := newTarget(t, true)

	var stdout bytes.Buffer
	err := run(context.Background(), testLogger(t), pipeline.New(),
		[]string{"-endpoint", srv.URL + "/auth/login", "-fields", "password", "-no-oracle", "-out", t.TempDir()}, &stdout)
	require.True(t, errors.Is(err, errTestsFailed), "%+v", err)
	require.Contains(t, stdout.String(), "Failures:")
}

func TestRunUnavailableEndpoint(t *testing.T) {
	srv := newTarget(t, false)

	err := run(context.Background(), testLogger(t), pipeline.New(),
		[]string{"-endpoint", srv.URL + "/auth/unknown", "-no-oracle", "-out", t.TempDir()}, io.Discard)
	require.ErrorContains(t, err, "schema not found")
}
