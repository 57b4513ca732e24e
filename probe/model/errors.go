package model

import (
	"fmt"

	"github.com/Laisky/errors/v2"
)

// Failure classes of a test run. Match them with errors.Is.
var (
	// ErrSchemaFetch means the schema description document could not be downloaded.
	ErrSchemaFetch = errors.New("schema fetch failed")
	// ErrSchemaNotFound means the document was fetched but lacks the endpoint, operation or schema.
	ErrSchemaNotFound = errors.New("schema not found")
	// ErrIncompleteDefaultBody means a required field has no derivable value.
	ErrIncompleteDefaultBody = errors.New("incomplete default body")
	// ErrOracle means the advisory oracle failed or answered with unusable data.
	ErrOracle = errors.New("oracle error")
	// ErrUnsupportedMethod means a test case names a method outside get/post/put/delete.
	ErrUnsupportedMethod = errors.New("unsupported method")
	// ErrExecution means a test request failed at the transport level.
	ErrExecution = errors.New("execution error")
)

// SchemaFetchError carries the HTTP status of a failed schema download, when one was received.
type SchemaFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *SchemaFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s returned status %d", ErrSchemaFetch, e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrSchemaFetch, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrSchemaFetch, e.URL)
}

func (e *SchemaFetchError) Is(target error) bool {
	return target == ErrSchemaFetch
}

func (e *SchemaFetchError) Unwrap() error {
	return e.Err
}

// IsAnalysisUnavailable reports whether err means the endpoint cannot be analyzed,
// as opposed to a crash.
func IsAnalysisUnavailable(err error) bool {
	return errors.Is(err, ErrSchemaFetch) || errors.Is(err, ErrSchemaNotFound)
}
