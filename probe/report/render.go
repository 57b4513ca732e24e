package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/songquanpeng/contract-tester/common/helper"
	"github.com/songquanpeng/contract-tester/probe/model"
)

// Render prints the summary table and the failure digest.
func Render(w io.Writer, rep *model.TestReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Contract Test Report ===")
	fmt.Fprintln(w)

	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Total", "Passed", "Failed", "Success rate"})
	summary.Append([]string{
		strconv.Itoa(rep.Summary.TotalTests),
		strconv.Itoa(rep.Summary.PassedTests),
		strconv.Itoa(rep.Summary.FailedTests),
		rep.Summary.SuccessRate,
	})
	summary.Render()

	if len(rep.FailedTestsSummary) == 0 {
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Failures:")
	digest := tablewriter.NewWriter(w)
	digest.SetHeader([]string{"Test", "Expected", "Actual", "Error"})
	digest.SetAutoWrapText(false)
	for _, f := range rep.FailedTestsSummary {
		actual := "-"
		if f.ActualStatus != nil {
			actual = f.ActualStatus.String()
		}
		digest.Append([]string{
			helper.Shorten(f.Name, 60),
			strconv.Itoa(f.ExpectedStatus),
			actual,
			helper.Shorten(f.Error, 80),
		})
	}
	digest.Render()
	fmt.Fprintln(w)
}
