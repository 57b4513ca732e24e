package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/contract-tester/probe/model"
)

func executed(name string, expected int, actual *model.ActualStatus, passed bool, errMsg string) *model.TestCase {
	return &model.TestCase{
		Name:               name,
		Method:             "POST",
		Data:               model.Body{},
		ExpectedStatusCode: expected,
		ActualStatusCode:   actual,
		TestResult:         &model.TestResult{Passed: passed, StatusCodeMatch: passed, Error: errMsg},
	}
}

func TestSuccessRate(t *testing.T) {
	require.Equal(t, "75.00%", SuccessRate(3, 4))
	require.Equal(t, "0%", SuccessRate(0, 0))
	require.Equal(t, "33.33%", SuccessRate(1, 3))
	require.Equal(t, "100.00%", SuccessRate(2, 2))
}

func TestAggregate(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	cases := []*model.TestCase{
		executed("a", 200, model.StatusCode(200), true, ""),
		executed("b", 200, model.StatusCode(200), true, ""),
		executed("c", 400, model.StatusCode(200), false, ""),
		executed("d", 200, model.StatusFailed(), false, "connection refused"),
	}

	rep := Aggregate(cases, now)
	require.Equal(t, model.Summary{TotalTests: 4, PassedTests: 2, FailedTests: 2, SuccessRate: "50.00%"}, rep.Summary)
	require.Equal(t, now, rep.Timestamp)
	require.Len(t, rep.TestResults, 4)
	require.Equal(t, []model.FailedTest{
		{Name: "c", ExpectedStatus: 400, ActualStatus: model.StatusCode(200), Error: "No error message"},
		{Name: "d", ExpectedStatus: 200, ActualStatus: model.StatusFailed(), Error: "connection refused"},
	}, rep.FailedTestsSummary)

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	require.Contains(t, string(data), `"actual_status":"Error"`)
	require.Contains(t, string(data), `"total_tests":4`)
}

func TestAggregateEmpty(t *testing.T) {
	rep := Aggregate(nil, time.Now())
	require.Equal(t, "0%", rep.Summary.SuccessRate)
	require.NotNil(t, rep.TestResults)
	require.NotNil(t, rep.FailedTestsSummary)
}

func TestRender(t *testing.T) {
	rep := Aggregate([]*model.TestCase{
		executed("Test email with value: @domain.com", 200, model.StatusCode(422), false, ""),
		executed("ok", 200, model.StatusCode(200), true, ""),
	}, time.Now())

	var buf bytes.Buffer
	Render(&buf, rep)
	out := buf.String()
	require.Contains(t, out, "50.00%")
	require.Contains(t, out, "Failures:")
	require.Contains(t, out, "@domain.com")
	require.Contains(t, out, "422")
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 15, 9, 30, 5, 0, time.Local)

	path, err := WriteJSON(filepath.Join(dir, "out"), now, map[string]any{"ok": true})
	require.NoError(t, err)
	require.Equal(t, "api_test_results_20261015_093005.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok": true}`, string(data))
}
