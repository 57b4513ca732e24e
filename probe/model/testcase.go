package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
)

// CaseSource tells which stage produced a test case.
type CaseSource string

const (
	SourceSingleField CaseSource = "single_field"
	SourceCombination CaseSource = "combination"
	SourceAdvisory    CaseSource = "advisory"
	SourcePlan        CaseSource = "plan"
)

// StatusError is the placeholder recorded instead of a status code when the
// request never produced a response.
const StatusError = "Error"

// ActualStatus is either an HTTP status code or the "Error" marker.
type ActualStatus struct {
	Code  int
	Error bool
}

// StatusCode wraps an HTTP status.
func StatusCode(code int) *ActualStatus {
	return &ActualStatus{Code: code}
}

// StatusFailed marks a transport failure.
func StatusFailed() *ActualStatus {
	return &ActualStatus{Error: true}
}

func (s ActualStatus) String() string {
	if s.Error {
		return StatusError
	}
	return strconv.Itoa(s.Code)
}

func (s ActualStatus) MarshalJSON() ([]byte, error) {
	if s.Error {
		return json.Marshal(StatusError)
	}
	return json.Marshal(s.Code)
}

func (s *ActualStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.HasPrefix(data, []byte(`"`)) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return errors.Wrap(err, "unmarshal status")
		}
		if strings.EqualFold(text, StatusError) {
			*s = ActualStatus{Error: true}
			return nil
		}
		code, err := strconv.Atoi(text)
		if err != nil {
			return errors.Errorf("invalid status %q", text)
		}
		*s = ActualStatus{Code: code}
		return nil
	}
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return errors.Wrap(err, "unmarshal status")
	}
	*s = ActualStatus{Code: code}
	return nil
}

// TestResult is the verdict attached to an executed test case.
type TestResult struct {
	Passed          bool      `json:"passed"`
	StatusCodeMatch bool      `json:"status_code_match"`
	Timestamp       time.Time `json:"timestamp"`
	Notes           string    `json:"notes,omitempty"`
	Error           string    `json:"error,omitempty"`
	// Duration is the wall time of the request.
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// TestCase is one concrete request of a run.
//
// Data is always a complete request body: the default body with the fields
// under test overridden. The executor only ever adds the Actual* and
// TestResult fields.
type TestCase struct {
	Name               string     `json:"name" validate:"required"`
	Method             string     `json:"method" validate:"required"`
	Data               Body       `json:"data"`
	ExpectedStatusCode int        `json:"expected_status_code" validate:"gte=100,lte=599"`
	ExpectedBehavior   string     `json:"expected_behavior"`
	Source             CaseSource `json:"source,omitempty"`
	// Fields lists the fields this case overrides.
	Fields []string `json:"fields,omitempty"`

	ActualStatusCode *ActualStatus `json:"actual_status_code,omitempty"`
	ActualResponse   any           `json:"actual_response,omitempty"`
	TestResult       *TestResult   `json:"test_result,omitempty"`
}

// Executed reports whether the executor has recorded a verdict.
func (c *TestCase) Executed() bool {
	return c.TestResult != nil
}

// Passed is false for cases that were never executed.
func (c *TestCase) Passed() bool {
	return c.TestResult != nil && c.TestResult.Passed
}
