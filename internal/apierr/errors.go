// Package apierr defines the single error shape produced by the API client
// and the pure functions that build it from transport failures and HTTP
// responses.
//
// Normalization never publishes anything. Callers that want errors surfaced
// to the user feed the returned *Error to a notifier explicitly.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/doctag/internal/status"
)

// Kind distinguishes where a failure originated.
type Kind string

const (
	// KindBusiness is a failure the server reported in an "error" field
	KindBusiness Kind = "business"
	// KindTransport covers network failures, unparsable bodies and non-2xx statuses
	KindTransport Kind = "transport"
)

// Severity is shared with the status classifier.
type Severity = status.Severity

const (
	SeverityError   = status.SeverityError
	SeverityWarning = status.SeverityWarning
)

// IdentityPath is the path fragment of the passive identity-check endpoint.
const IdentityPath = "/user/"

// Error is the normalized API failure.
type Error struct {
	// ID is assigned when the error is published to a notifier
	ID       string
	Message  string
	Status   int
	Severity Severity
	URL      string
	Kind     Kind
	Cause    error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d)", e.Message, e.Status)
	}
	return e.Message
}

// Unwrap exposes the transport error, if any
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsIdentityCheck reports whether the failure came from the identity endpoint.
func (e *Error) IsIdentityCheck() bool {
	return strings.Contains(e.URL, IdentityPath)
}

// IsBusiness reports whether the server reported the failure itself.
func (e *Error) IsBusiness() bool {
	return e.Kind == KindBusiness
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// FromTransport wraps a failure that produced no response at all.
func FromTransport(url string, cause error) *Error {
	msg := "request failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Message:  msg,
		Severity: SeverityError,
		URL:      url,
		Kind:     KindTransport,
		Cause:    cause,
	}
}

// FromStatus builds a transport error from a response status. The message
// comes from the status classifier, falling back to statusText.
func FromStatus(url string, code int, statusText string, cause error) *Error {
	msg, ok := status.Classify(code)
	if !ok {
		msg = cleanStatusText(code, statusText)
	}
	if msg == "" {
		msg = "request failed"
	}
	return &Error{
		Message:  msg,
		Status:   code,
		Severity: status.SeverityOf(code),
		URL:      url,
		Kind:     KindTransport,
		Cause:    cause,
	}
}

// FromBusiness builds an error carrying the server-provided message.
func FromBusiness(url string, code int, message string) *Error {
	return &Error{
		Message:  message,
		Status:   code,
		Severity: status.SeverityOf(code),
		URL:      url,
		Kind:     KindBusiness,
	}
}

// FromResponse classifies a received response. On success it returns the
// payload unchanged; otherwise exactly one *Error.
//
// A body that does not parse is an error even under a 2xx status.
func FromResponse(url string, code int, statusText string, body []byte) ([]byte, *Error) {
	env, err := DecodeEnvelope(body)
	if err != nil {
		return nil, FromStatus(url, code, statusText, err)
	}
	if env.IsError() {
		return nil, FromBusiness(url, code, env.Err)
	}
	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		return nil, FromStatus(url, code, statusText, nil)
	}
	return env.OK, nil
}

// cleanStatusText strips the numeric prefix net/http puts in Response.Status.
func cleanStatusText(code int, statusText string) string {
	text := strings.TrimSpace(strings.TrimPrefix(statusText, strconv.Itoa(code)))
	if text == "" {
		text = http.StatusText(code)
	}
	return text
}
