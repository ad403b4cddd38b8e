package errors

import (
	"sync"
	"time"
)

// LoadError records a per-file failure during a batch content load.
type LoadError struct {
	File      string
	Slug      string
	Err       error
	Timestamp time.Time
}

// Error implements the error interface.
func (le *LoadError) Error() string {
	if le.File != "" {
		return le.File + ": " + le.Err.Error()
	}

	return le.Err.Error()
}

// Unwrap returns the wrapped error.
func (le *LoadError) Unwrap() error {
	return le.Err
}

// ErrorCollector collects per-file load errors and general errors.
type ErrorCollector struct {
	loadErrors []LoadError
	errors     []error
	mutex      sync.RWMutex
}

// NewErrorCollector creates a new error collector.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		loadErrors: make([]LoadError, 0),
		errors:     make([]error, 0),
	}
}

// Add records a file-scoped load error.
func (ec *ErrorCollector) Add(err LoadError) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	err.Timestamp = time.Now()
	ec.loadErrors = append(ec.loadErrors, err)
}

// AddError adds a general error to the collector.
func (ec *ErrorCollector) AddError(err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// LoadErrors returns all collected file-scoped errors.
func (ec *ErrorCollector) LoadErrors() []LoadError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	// Return a copy to avoid race conditions
	result := make([]LoadError, len(ec.loadErrors))
	copy(result, ec.loadErrors)
	return result
}

// AllErrors returns all collected errors (file-scoped and general).
func (ec *ErrorCollector) AllErrors() []error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	allErrors := make([]error, 0, len(ec.loadErrors)+len(ec.errors))

	for i := range ec.loadErrors {
		allErrors = append(allErrors, &ec.loadErrors[i])
	}

	allErrors = append(allErrors, ec.errors...)

	return allErrors
}

// HasErrors returns true if there are any errors.
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.loadErrors) > 0 || len(ec.errors) > 0
}

// Clear clears all errors.
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.loadErrors = ec.loadErrors[:0]
	ec.errors = ec.errors[:0]
}

// ErrorsForFile returns errors for a specific file.
func (ec *ErrorCollector) ErrorsForFile(file string) []LoadError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var fileErrors []LoadError
	for _, err := range ec.loadErrors {
		if err.File == file {
			fileErrors = append(fileErrors, err)
		}
	}
	return fileErrors
}
