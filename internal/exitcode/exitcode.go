package exitcode

import (
	"errors"
	"os"
	"strings"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/apierr"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition, including non-2xx
	// responses that are not auth failures
	GeneralError = 1

	// UsageError indicates invalid command usage or form input
	UsageError = 2

	// AuthError indicates an authentication or authorization failure
	AuthError = 5

	// NetworkError indicates the server could not be reached
	NetworkError = 6

	// BusinessError indicates the server rejected the request with a message
	BusinessError = 7

	// Interrupted indicates the user cancelled with Ctrl+C
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}
	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if apiErr, ok := apierr.As(err); ok {
		switch {
		case apiErr.IsBusiness():
			return BusinessError
		case apiErr.Status == 401 || apiErr.Status == 403:
			return AuthError
		case apiErr.Status == 0:
			return NetworkError
		default:
			return GeneralError
		}
	}

	if errors.Is(err, api.ErrMissingFields) ||
		errors.Is(err, api.ErrInvalidCustomPermissions) ||
		errors.Is(err, api.ErrTextTooLong) {
		return UsageError
	}

	errMsg := strings.ToLower(err.Error())

	// Authentication errors
	if strings.Contains(errMsg, "not logged in") || strings.Contains(errMsg, "login required") {
		return AuthError
	}

	// Usage errors
	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") ||
		strings.Contains(errMsg, "unknown flag") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "accepts") ||
		strings.Contains(errMsg, "invalid argument") {
		return UsageError
	}

	// Default to general error
	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags, arguments or input)"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case BusinessError:
		return "Request rejected by server"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
