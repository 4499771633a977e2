package entity

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrDataNotFound          = errors.New("data not found")
	ErrConflictingData       = errors.New("data conflicts with existing data in unique column")
	ErrInvalidData           = errors.New("invalid data")
	ErrMissingRequiredFields = errors.New("missing required fields: customer_name, phone, address")
	ErrNoItems               = errors.New("at least one item is required")
	ErrInvalidStatus         = errors.New("status must be one of: pending, shipped, delivered, cancelled")
	ErrUnauthorized          = errors.New("invalid or missing access key")
	ErrPersistence           = errors.New("persistence failure")
	ErrConfigPathNotSet      = errors.New("CONFIG_PATH not set and -config flag not provided")
)

// FieldErrors maps a field key (customer_name, items[2].price) to an
// operator-facing message. Empty means valid.
type FieldErrors map[string]string

func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f FieldErrors) Merge(other FieldErrors) {
	for k, v := range other {
		f.Add(k, v)
	}
}

func (f FieldErrors) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Err returns nil when there are no field errors.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}

	return &ValidationError{Reason: ErrInvalidData, Fields: f}
}

type ValidationError struct {
	Reason error
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason.Error()
	}

	parts := make([]string, 0, len(e.Fields))
	for _, k := range e.Fields.Keys() {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return fmt.Sprintf("%s (%s)", e.Reason, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() []error {
	if e.Reason == ErrInvalidData {
		return []error{ErrInvalidData}
	}

	return []error{ErrInvalidData, e.Reason}
}

// PersistenceError carries the store's diagnostics for a failed operation.
type PersistenceError struct {
	Op      string
	Code    string
	Message string
	Detail  string
	Hint    string
	Kind    error
	Cause   error
}

func (e *PersistenceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else if e.Cause != nil {
		b.WriteString(e.Cause.Error())
	}
	if e.Code != "" {
		b.WriteString(" (SQLSTATE ")
		b.WriteString(e.Code)
		b.WriteString(")")
	}

	return b.String()
}

func (e *PersistenceError) Unwrap() []error {
	errs := []error{ErrPersistence}
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}

	return errs
}
