package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeCache      ErrorType = "cache"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// QuillError is a structured error type with context.
type QuillError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Slug        string
	FilePath    string
	Retryable   bool
	Recoverable bool
}

// Error implements the error interface.
func (e *QuillError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Slug != "" {
		parts = append(parts, "post:"+e.Slug)
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *QuillError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *QuillError) Is(target error) bool {
	var t *QuillError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *QuillError) WithContext(key string, value interface{}) *QuillError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile adds the source file the error relates to.
func (e *QuillError) WithFile(filePath string) *QuillError {
	e.FilePath = filePath

	return e
}

// WithSlug adds the post slug the error relates to.
func (e *QuillError) WithSlug(slug string) *QuillError {
	e.Slug = slug

	return e
}

// Error creation functions

// NewNotFoundError creates a not-found error.
func NewNotFoundError(code, message string) *QuillError {
	return &QuillError{
		Type:        ErrorTypeNotFound,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewParseError creates a parse error wrapping its cause.
func NewParseError(code, message string, cause error) *QuillError {
	return &QuillError{
		Type:        ErrorTypeParse,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *QuillError {
	return &QuillError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *QuillError {
	return &QuillError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewCacheError creates a cache infrastructure error.
func NewCacheError(code, message string, cause error) *QuillError {
	return &QuillError{
		Type:        ErrorTypeCache,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewNetworkError creates a network error. Network errors are retryable by
// the caller; the core never retries internally.
func NewNetworkError(code, message string, cause error) *QuillError {
	return &QuillError{
		Type:        ErrorTypeNetwork,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Retryable:   true,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *QuillError {
	return &QuillError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *QuillError {
	return &QuillError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// Error classification utilities

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	var qe *QuillError
	if errors.As(err, &qe) {
		return qe.Type == ErrorTypeNotFound
	}

	return false
}

// IsRetryable checks if an error may be retried by the caller.
func IsRetryable(err error) bool {
	var qe *QuillError
	if errors.As(err, &qe) {
		return qe.Retryable
	}

	return false
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var qe *QuillError
	if errors.As(err, &qe) {
		return qe.Recoverable
	}

	return false
}

// IsValidationError checks if an error is validation-related.
func IsValidationError(err error) bool {
	var qe *QuillError
	if errors.As(err, &qe) {
		return qe.Type == ErrorTypeValidation
	}

	return false
}

// IsParseError checks if an error is parse-related.
func IsParseError(err error) bool {
	var qe *QuillError
	if errors.As(err, &qe) {
		return qe.Type == ErrorTypeParse
	}

	return false
}

// Common error codes.
const (
	ErrCodePostNotFound       = "ERR_POST_NOT_FOUND"
	ErrCodeDuplicateSlug      = "ERR_DUPLICATE_SLUG"
	ErrCodeFrontmatterSyntax  = "ERR_FRONTMATTER_SYNTAX"
	ErrCodeFrontmatterShape   = "ERR_FRONTMATTER_SHAPE"
	ErrCodeMarkdownRender     = "ERR_MARKDOWN_RENDER"
	ErrCodePostsDirUnreadable = "ERR_POSTS_DIR_UNREADABLE"
	ErrCodeFileUnreadable     = "ERR_FILE_UNREADABLE"
	ErrCodeCacheProbe         = "ERR_CACHE_PROBE"
	ErrCodeRequestTimeout     = "ERR_REQUEST_TIMEOUT"
	ErrCodeRequestFailed      = "ERR_REQUEST_FAILED"
	ErrCodeRecordInvalid      = "ERR_RECORD_INVALID"
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeInternalError      = "ERR_INTERNAL"
	ErrCodeValidationFailed   = "ERR_VALIDATION_FAILED"
)

// Helper constructors for frequently produced errors

// ErrPostNotFound creates a not-found error for a slug.
func ErrPostNotFound(slug string) *QuillError {
	return NewNotFoundError(ErrCodePostNotFound, "post not found: "+slug).WithSlug(slug)
}

// ErrDuplicateSlug creates a validation error for a slug collision between
// two source files.
func ErrDuplicateSlug(slug, file, conflictingFile string) *QuillError {
	return NewValidationError(
		ErrCodeDuplicateSlug,
		fmt.Sprintf("slug %q already produced by %s", slug, conflictingFile),
	).WithSlug(slug).WithFile(file)
}

// ErrPostsDirUnreadable creates a fatal I/O error for the posts directory.
func ErrPostsDirUnreadable(dir string, cause error) *QuillError {
	return NewIOError(ErrCodePostsDirUnreadable, "posts directory unreadable", cause).WithFile(dir)
}
