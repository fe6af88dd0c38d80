// src/models/errors.go
package models

import (
	"errors"
	"fmt"
)

// Run-fatal errors. Everything else stays scoped to a single record and is
// routed to the dead-letter sink instead of propagating.
var (
	// ErrStorageUnavailable means the transaction store cannot be reached.
	ErrStorageUnavailable = errors.New("transaction storage unavailable")
	// ErrNoEntries means the input document yielded no parseable entries.
	ErrNoEntries = errors.New("no entries found in input document")
)

// FieldKind names the normalization failure classes.
type FieldKind string

const (
	InvalidAmount FieldKind = "InvalidAmount"
	InvalidDate   FieldKind = "InvalidDate"
	InvalidPhone  FieldKind = "InvalidPhone"
)

// FieldError is a normalization failure for one field. It always carries the
// offending raw value so the dead-letter entry can name exactly what broke.
type FieldError struct {
	Kind  FieldKind
	Field string // record field the value came from, e.g. "amount", "sender"
	Raw   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: '%s'", e.Kind, e.Raw)
}

// NewFieldError builds a FieldError for the given field and raw value.
func NewFieldError(kind FieldKind, field, raw string) *FieldError {
	return &FieldError{Kind: kind, Field: field, Raw: raw}
}

// ParseError is a structural problem with a single XML node. It never aborts
// the document scan; the orchestrator dead-letters it and moves on.
type ParseError struct {
	Index    int    // 1-based position of the entry in the document
	Reason   string
	Fragment string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("entry %d: %s", e.Index, e.Reason)
}

// ConstraintViolation is a business-rule breach caught at the load boundary,
// defense against a caller that skipped normalization.
type ConstraintViolation struct {
	Rule string
}

func (e *ConstraintViolation) Error() string {
	return "constraint violation: " + e.Rule
}
