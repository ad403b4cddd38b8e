package errors

import (
	"fmt"
	"strings"
)

// FieldError describes a single violated frontmatter constraint.
type FieldError struct {
	FieldName    string
	FieldValue   interface{}
	ErrorMessage string
}

// Error implements the error interface.
func (fe *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", fe.FieldName, fe.ErrorMessage)
}

// Field returns the field name that failed validation.
func (fe *FieldError) Field() string {
	return fe.FieldName
}

// Value returns the invalid value.
func (fe *FieldError) Value() interface{} {
	return fe.FieldValue
}

// NewFieldError creates a new field validation error.
func NewFieldError(field string, value interface{}, message string) *FieldError {
	return &FieldError{
		FieldName:    field,
		FieldValue:   value,
		ErrorMessage: message,
	}
}

// ValidationErrorCollection aggregates every violated constraint found while
// validating a single document, so callers see the full list at once.
type ValidationErrorCollection struct {
	Errors []*FieldError
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	if len(vec.Errors) == 0 {
		return "no validation errors"
	}
	if len(vec.Errors) == 1 {
		return vec.Errors[0].Error()
	}

	return fmt.Sprintf("validation failed with %d errors", len(vec.Errors))
}

// Add adds a field error to the collection.
func (vec *ValidationErrorCollection) Add(err *FieldError) {
	vec.Errors = append(vec.Errors, err)
}

// AddField adds a field validation error to the collection.
func (vec *ValidationErrorCollection) AddField(field string, value interface{}, message string) {
	vec.Add(NewFieldError(field, value, message))
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Errors) > 0
}

// Fields returns the names of all violated fields.
func (vec *ValidationErrorCollection) Fields() []string {
	fields := make([]string, 0, len(vec.Errors))
	for _, err := range vec.Errors {
		fields = append(fields, err.FieldName)
	}

	return fields
}

// ToQuillError converts the collection to a QuillError, or nil when empty.
func (vec *ValidationErrorCollection) ToQuillError() *QuillError {
	if !vec.HasErrors() {
		return nil
	}

	var messages []string
	context := make(map[string]interface{})

	for _, err := range vec.Errors {
		messages = append(messages, err.Error())
		context[err.FieldName] = err.FieldValue
	}

	return &QuillError{
		Type:        ErrorTypeValidation,
		Code:        ErrCodeValidationFailed,
		Message:     strings.Join(messages, "; "),
		Context:     context,
		Recoverable: true,
	}
}
