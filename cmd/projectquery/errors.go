package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/projectquery/projectquery/store"
	"github.com/arthur-debert/projectquery/types"
)

// Exit codes
const (
	exitFailure = 1
	exitUsage   = 2
)

// CLIError represents a user-friendly CLI error with context and suggestions
type CLIError struct {
	Operation   string   // The operation that failed (e.g., "list", "export")
	Cause       string   // The underlying cause (e.g., "unknown filter field")
	Details     string   // Additional technical details
	Suggestions []string // Helpful suggestions for the user
	Code        int      // Process exit code
	Underlying  error    // Original error for debugging
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}
	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}
	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return msg.String()
}

// Unwrap returns the underlying error for error chain compatibility
func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// ExitCode returns the process exit code of the error
func (e *CLIError) ExitCode() int {
	if e.Code == 0 {
		return exitFailure
	}
	return e.Code
}

// NewValidationError creates an error for rejected filters, columns or sorts
func NewValidationError(operation string, underlying error) *CLIError {
	suggestions := []string{CommonSuggestions.ListFilters}
	if errors.Is(underlying, types.ErrUnknownColumn) {
		suggestions = []string{CommonSuggestions.ListColumns}
	}
	if errors.Is(underlying, types.ErrUnknownOperator) || errors.Is(underlying, types.ErrInvalidOperatorArity) {
		suggestions = append(suggestions, CommonSuggestions.FilterSyntax)
	}
	return &CLIError{
		Operation:   operation,
		Cause:       underlying.Error(),
		Suggestions: suggestions,
		Code:        exitUsage,
		Underlying:  underlying,
	}
}

// NewFilterError creates an error for filter flags that cannot be parsed
func NewFilterError(operation, filter, issue string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid filter %q: %s", filter, issue),
		Suggestions: []string{CommonSuggestions.FilterSyntax, CommonSuggestions.ListFilters},
		Code:        exitUsage,
	}
}

// NewConfigError creates an error for configuration issues
func NewConfigError(operation, issue string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("configuration error: %s", issue),
		Suggestions: suggestions,
		Code:        exitUsage,
	}
}

// NewStoreError creates an error for store-related issues
func NewStoreError(operation string, underlying error, suggestions ...string) *CLIError {
	cause := "store operation failed"
	details := ""

	if underlying != nil {
		details = underlying.Error()

		errStr := strings.ToLower(underlying.Error())
		switch {
		case errors.Is(underlying, store.ErrLocked):
			cause = "database is currently being seeded by another process"
		case strings.Contains(errStr, "no such file"):
			cause = "database file not found"
		case strings.Contains(errStr, "permission denied"):
			cause = "insufficient permissions to access database"
		case strings.Contains(errStr, "database is locked"):
			cause = "database is currently locked by another process"
		}
	}

	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     details,
		Suggestions: suggestions,
		Code:        exitFailure,
		Underlying:  underlying,
	}
}

// WrapError wraps an existing error with CLI-friendly context
func WrapError(operation string, err error, suggestions ...string) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}
	if errors.Is(err, types.ErrValidation) {
		return NewValidationError(operation, err)
	}
	return NewStoreError(operation, err, suggestions...)
}

// CommonSuggestions are the hints shared by several errors
var CommonSuggestions = struct {
	CheckDB      string
	CheckConfig  string
	ListFilters  string
	ListColumns  string
	FilterSyntax string
}{
	CheckDB:      "Verify --db points to a seeded database (see 'projectquery seed')",
	CheckConfig:  "Check your configuration file or PROJECTQUERY_* environment variables",
	ListFilters:  "Run 'projectquery filters' to see the available fields and values",
	ListColumns:  "Run 'projectquery columns' to see the available columns",
	FilterSyntax: "Use format: --filter \"<field> <operator> [value,value...]\", e.g. --filter \"status = 1,5\"",
}
