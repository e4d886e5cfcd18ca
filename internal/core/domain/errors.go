package domain

import (
	"fmt"
	"strings"
)

// ParseError marks a file whose content is not valid JSON or lacks the
// expected "items" array. It is reported per file and never aborts the
// processing of sibling files.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.File, e.Message)
}

// SchemaValidationError marks a file whose first record failed the relaxed
// ingestion schema. The whole file is excluded from persistence.
type SchemaValidationError struct {
	File       string
	Violations []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation %s: %s", e.File, strings.Join(e.Violations, "; "))
}

// QueryDispatchError is a transport-level failure of the batched query
// dispatch. It is surfaced to the caller; per-location missing results are
// not errors and resolve to "N/A" instead.
type QueryDispatchError struct {
	AccountID int
	Err       error
}

func (e *QueryDispatchError) Error() string {
	return fmt.Sprintf("batched query dispatch for account %d: %v", e.AccountID, e.Err)
}

func (e *QueryDispatchError) Unwrap() error { return e.Err }

// WriteError is a persistence failure for one record. Sibling writes are
// unaffected; the record lands in the errors partition.
type WriteError struct {
	Guid string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write location %s: %v", e.Guid, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ContractError signals an upstream invariant violation: a record reached
// the persistence phase without a guid or map association. It aborts the
// whole operation before any external write and is never retried.
type ContractError struct {
	Reason string
}

func (e *ContractError) Error() string {
	return "contract violation: " + e.Reason
}
