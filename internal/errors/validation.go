package errors

import "fmt"

const (
	ReasonEmpty   = "empty"
	ReasonTooLong = "too_long"
	ReasonInvalid = "invalid"
)

// ValidationError is a field-level input error. It is always recoverable by the caller.
type ValidationError struct {
	Field  string
	Reason string
	// Value holds the offending raw input when it is worth echoing back.
	Value string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field == "due_date" && e.Reason == ReasonInvalid:
		return fmt.Sprintf("invalid due_date format: %q, use ISO-8601", e.Value)
	case e.Reason == ReasonEmpty:
		return fmt.Sprintf("%s cannot be empty", e.Field)
	case e.Reason == ReasonTooLong:
		return fmt.Sprintf("%s is too long", e.Field)
	case e.Value != "":
		return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
	default:
		return fmt.Sprintf("invalid %s", e.Field)
	}
}

// Is matches on field and reason so the sentinels below work with errors.Is.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return e.Field == t.Field && e.Reason == t.Reason
}

var (
	ErrEmptyTitle         = &ValidationError{Field: "title", Reason: ReasonEmpty}
	ErrTitleTooLong       = &ValidationError{Field: "title", Reason: ReasonTooLong}
	ErrDescriptionTooLong = &ValidationError{Field: "description", Reason: ReasonTooLong}
	ErrInvalidPriority    = &ValidationError{Field: "priority", Reason: ReasonInvalid}
	ErrInvalidRecurrence  = &ValidationError{Field: "recurring", Reason: ReasonInvalid}
	ErrInvalidDueDate     = &ValidationError{Field: "due_date", Reason: ReasonInvalid}
	ErrEmptyTag           = &ValidationError{Field: "tag", Reason: ReasonEmpty}
)

func Invalid(field, value string) *ValidationError {
	return &ValidationError{Field: field, Reason: ReasonInvalid, Value: value}
}

func NewInvalidDueDate(value string) *ValidationError {
	return &ValidationError{Field: "due_date", Reason: ReasonInvalid, Value: value}
}
