package model

import "time"

// Summary holds the run totals.
type Summary struct {
	TotalTests  int    `json:"total_tests"`
	PassedTests int    `json:"passed_tests"`
	FailedTests int    `json:"failed_tests"`
	SuccessRate string `json:"success_rate"`
}

// FailedTest is one entry of the failure digest.
type FailedTest struct {
	Name           string        `json:"name"`
	ExpectedStatus int           `json:"expected_status"`
	ActualStatus   *ActualStatus `json:"actual_status"`
	Error          string        `json:"error"`
}

// TestReport is the aggregated outcome of an executed run.
// FailedTestsSummary is derived from TestResults.
type TestReport struct {
	Summary            Summary      `json:"summary"`
	Timestamp          time.Time    `json:"timestamp"`
	TestResults        []*TestCase  `json:"test_results"`
	FailedTestsSummary []FailedTest `json:"failed_tests_summary"`
}
