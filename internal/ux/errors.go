package ux

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/apierr"
)

// ErrNotLoggedIn is returned by commands that need a session.
var ErrNotLoggedIn = errors.New("not logged in")

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\n💡 Suggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError analyzes an error and adds contextual suggestions
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	var withSuggestion *ErrorWithSuggestion
	if errors.As(err, &withSuggestion) {
		return err
	}

	if errors.Is(err, ErrNotLoggedIn) {
		return NewErrorWithSuggestion(err, "Run 'doctag login' first")
	}
	if errors.Is(err, api.ErrInvalidCustomPermissions) {
		return NewErrorWithSuggestion(err, "Example: --custom 'alice:r,bob:w'")
	}
	if errors.Is(err, api.ErrTextTooLong) {
		return NewErrorWithSuggestion(err, "Submit long texts as a document with 'doctag submit document' instead")
	}

	if apiErr, ok := apierr.As(err); ok {
		switch {
		case apiErr.IsBusiness():
			return err
		case apiErr.Status == 401:
			return NewErrorWithSuggestion(err, "Your session may have expired. Run 'doctag login' or 'doctag login --refresh'")
		case apiErr.Status == 403:
			return NewErrorWithSuggestion(err, "Ask the project owner for access, or check 'doctag whoami' for your permissions")
		case apiErr.Status == 404:
			return NewErrorWithSuggestion(err, "List available projects with 'doctag projects list'")
		case apiErr.Status == 0:
			return NewErrorWithSuggestion(err,
				"Check that the server is running and that base_url is correct ('doctag config view' or $DOCTAG_API_URL)")
		}
		return err
	}

	errMsg := err.Error()

	if strings.Contains(errMsg, "permission denied") {
		return NewErrorWithSuggestion(err,
			"Check permissions on ~/.doctag and the session file")
	}
	if strings.Contains(errMsg, "failed to parse config") {
		return NewErrorWithSuggestion(err,
			"Fix the YAML in ~/.doctag/config.yaml, see 'doctag config path'")
	}

	return err
}

// FormatError provides consistent error formatting with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}
