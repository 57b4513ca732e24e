// Package report aggregates executed test cases.
package report

import (
	"fmt"
	"time"

	"github.com/songquanpeng/contract-tester/probe/model"
)

const noErrorMessage = "No error message"

// Aggregate summarizes cases. It does not modify them.
func Aggregate(cases []*model.TestCase, now time.Time) *model.TestReport {
	passed := 0
	for _, c := range cases {
		if c.Passed() {
			passed++
		}
	}

	results := cases
	if results == nil {
		results = []*model.TestCase{}
	}
	return &model.TestReport{
		Summary: model.Summary{
			TotalTests:  len(cases),
			PassedTests: passed,
			FailedTests: len(cases) - passed,
			SuccessRate: SuccessRate(passed, len(cases)),
		},
		Timestamp:          now,
		TestResults:        results,
		FailedTestsSummary: FailureDigest(cases),
	}
}

// SuccessRate formats passed/total as a percentage with two decimals, "0%" for no tests.
func SuccessRate(passed, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(passed)/float64(total)*100)
}

// FailureDigest lists every case that did not pass.
func FailureDigest(cases []*model.TestCase) []model.FailedTest {
	digest := []model.FailedTest{}
	for _, c := range cases {
		if c.Passed() {
			continue
		}
		entry := model.FailedTest{
			Name:           c.Name,
			ExpectedStatus: c.ExpectedStatusCode,
			ActualStatus:   c.ActualStatusCode,
			Error:          noErrorMessage,
		}
		if c.TestResult != nil && c.TestResult.Error != "" {
			entry.Error = c.TestResult.Error
		}
		digest = append(digest, entry)
	}
	return digest
}
