// Package status maps HTTP status codes to the human-readable category shown
// to users when a request fails.
package status

import "fmt"

// Severity is the notification level attached to a status code.
type Severity string

const (
	// SeverityError is used for failures the user must act on
	SeverityError Severity = "error"
	// SeverityWarning is used for recoverable conflicts
	SeverityWarning Severity = "warning"
)

// Category pairs a severity with the message displayed for a status code.
type Category struct {
	Severity Severity
	Message  string
}

// specific entries take precedence over the leading-digit table.
var specific = map[int]Category{
	400: {SeverityError, "Invalid request sent to server"},
	403: {SeverityError, "No permissions to view this resource"},
	404: {SeverityError, "The requested resource does not exist"},
	409: {SeverityWarning, "The requested resource is already in use"},
	412: {SeverityError, "Precondition Failed"},
	500: {SeverityError, "Internal Server Error"},
	503: {SeverityError, "Service Unavailable"},
	504: {SeverityError, "Gateway Timeout"},
}

var general = map[int]Category{
	1: {SeverityError, "Informational response"},
	2: {SeverityError, "Success"},
	3: {SeverityError, "Redirection"},
	4: {SeverityError, "Client Error"},
	5: {SeverityError, "Server Error"},
}

// Lookup returns the category for code. A zero code means "no status" and
// never matches.
func Lookup(code int) (Category, bool) {
	if code == 0 {
		return Category{}, false
	}
	if c, ok := specific[code]; ok {
		return c, true
	}
	c, ok := general[leadingDigit(code)]
	return c, ok
}

// Classify returns the message for code, or false when nothing matches.
func Classify(code int) (string, bool) {
	c, ok := Lookup(code)
	if !ok {
		return "", false
	}
	return c.Message, true
}

// SeverityOf returns the severity for code, defaulting to SeverityError.
func SeverityOf(code int) Severity {
	if c, ok := Lookup(code); ok {
		return c.Severity
	}
	return SeverityError
}

// Inline renders the short message forms show next to a failed submission,
// e.g. "[500] Create Document - Internal Server Error!".
func Inline(title string, code int) string {
	msg, ok := Classify(code)
	if !ok {
		return fmt.Sprintf("%s failed!", title)
	}
	return fmt.Sprintf("[%d] %s - %s!", code, title, msg)
}

func leadingDigit(code int) int {
	if code < 0 {
		code = -code
	}
	for code >= 10 {
		code /= 10
	}
	return code
}
