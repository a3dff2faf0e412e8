package ux

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/apierr"
)

func TestNewErrorWithSuggestion(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		suggestion string
		wantNil    bool
	}{
		{
			name:       "nil error returns nil",
			err:        nil,
			suggestion: "some suggestion",
			wantNil:    true,
		},
		{
			name:       "error with suggestion",
			err:        errors.New("something failed"),
			suggestion: "try this fix",
		},
		{
			name:       "error without suggestion",
			err:        errors.New("something failed"),
			suggestion: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewErrorWithSuggestion(tt.err, tt.suggestion)
			if tt.wantNil {
				if result != nil {
					t.Errorf("NewErrorWithSuggestion() = %v, want nil", result)
				}
				return
			}

			if result == nil {
				t.Fatal("NewErrorWithSuggestion() returned nil, want error")
			}

			errMsg := result.Error()
			if !strings.Contains(errMsg, tt.err.Error()) {
				t.Errorf("Error message %q does not contain original error %q", errMsg, tt.err.Error())
			}
			if tt.suggestion != "" && !strings.Contains(errMsg, tt.suggestion) {
				t.Errorf("Error message %q does not contain suggestion %q", errMsg, tt.suggestion)
			}
			if !errors.Is(result, tt.err) {
				t.Errorf("NewErrorWithSuggestion() does not unwrap to the original error")
			}
		})
	}
}

func TestEnhanceError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantSuggestion string
	}{
		{
			name:           "not logged in",
			err:            fmt.Errorf("projects: %w", ErrNotLoggedIn),
			wantSuggestion: "doctag login",
		},
		{
			name:           "unauthorized",
			err:            apierr.FromStatus("/api/projects/", 401, "401 Unauthorized", nil),
			wantSuggestion: "--refresh",
		},
		{
			name:           "forbidden",
			err:            apierr.FromStatus("/api/project/3/", 403, "", nil),
			wantSuggestion: "doctag whoami",
		},
		{
			name:           "not found",
			err:            apierr.FromStatus("/api/project/3/", 404, "", nil),
			wantSuggestion: "doctag projects list",
		},
		{
			name:           "unreachable server",
			err:            apierr.FromTransport("/api/projects/", errors.New("connection refused")),
			wantSuggestion: "DOCTAG_API_URL",
		},
		{
			name:           "custom permissions",
			err:            api.ErrInvalidCustomPermissions,
			wantSuggestion: "alice:r,bob:w",
		},
		{
			name:           "bad config",
			err:            errors.New("failed to parse config: yaml: line 1"),
			wantSuggestion: "config.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnhanceError(tt.err)
			var ews *ErrorWithSuggestion
			if !errors.As(got, &ews) {
				t.Fatalf("EnhanceError() = %v, want suggestion", got)
			}
			if !strings.Contains(ews.Suggestion, tt.wantSuggestion) {
				t.Errorf("suggestion %q does not contain %q", ews.Suggestion, tt.wantSuggestion)
			}
		})
	}
}

func TestEnhanceError_Unchanged(t *testing.T) {
	business := apierr.FromBusiness("/api/create/project/", 200, "title already exists")
	if got := EnhanceError(business); got != error(business) {
		t.Errorf("EnhanceError() changed a business error: %v", got)
	}

	plain := errors.New("something else")
	if got := EnhanceError(plain); got != plain {
		t.Errorf("EnhanceError() = %v, want original", got)
	}

	if EnhanceError(nil) != nil {
		t.Error("EnhanceError(nil) should be nil")
	}

	already := NewErrorWithSuggestion(ErrNotLoggedIn, "custom")
	if got := EnhanceError(already); got != already {
		t.Errorf("EnhanceError() replaced an existing suggestion")
	}
}

func TestFormatError(t *testing.T) {
	err := FormatError(ErrNotLoggedIn, "listing projects")
	if !strings.HasPrefix(err.Error(), "listing projects: not logged in") {
		t.Errorf("FormatError() = %q", err.Error())
	}
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Error("FormatError() should wrap the original error")
	}
	if FormatError(nil, "x") != nil {
		t.Error("FormatError(nil) should be nil")
	}
}
