package ogm

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"graphorm/internal/metadata"
)

var (
	ErrNotFound     = errors.New("entity not found")
	ErrInvalidState = errors.New("invalid entity state")
	ErrValidation   = errors.New("validation failed")

	// ErrDetached is returned by entity operations on an instance that was
	// never attached to a database, see Attach.
	ErrDetached = errors.New("entity is not attached to a database")
)

// ValidationError reports a declared property rejected before any query is
// issued.
type ValidationError struct {
	Kind   string
	Key    string
	Reason string
	Err    error
}

// Reasons carried by ValidationError.
const (
	ReasonRequired  = "is required"
	ReasonValidator = "failed validation"
	ReasonTransform = "could not be transformed"
)

func (e *ValidationError) Error() string {
	msg := e.Key + " " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// InvalidStateError is returned when an operation needs an identity the
// instance does not have.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s", e.Op, e.Reason)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Check validates storage values against every declared property of d and
// returns all violations in declaration order. A value is absent when its
// key is missing or nil. Required properties also reject blank strings.
func Check(d *metadata.EntityDescriptor, values map[string]any) []*ValidationError {
	var problems []*ValidationError
	for _, p := range d.Properties() {
		v, ok := values[p.Key]
		present := ok && v != nil
		if p.Required && (!present || blank(v)) {
			problems = append(problems, &ValidationError{Kind: d.Name, Key: p.Key, Reason: ReasonRequired})
			continue
		}
		if present && p.Validator != nil && !p.Validator(v) {
			problems = append(problems, &ValidationError{Kind: d.Name, Key: p.Key, Reason: ReasonValidator})
		}
	}
	return problems
}

func blank(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.String && strings.TrimSpace(rv.String()) == ""
}
