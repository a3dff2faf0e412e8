package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_SpecificCodes(t *testing.T) {
	tests := map[int]string{
		400: "Invalid request sent to server",
		403: "No permissions to view this resource",
		404: "The requested resource does not exist",
		409: "The requested resource is already in use",
		412: "Precondition Failed",
		500: "Internal Server Error",
		503: "Service Unavailable",
		504: "Gateway Timeout",
	}

	for code, want := range tests {
		got, ok := Classify(code)
		assert.True(t, ok, "code %d", code)
		assert.Equal(t, want, got, "code %d", code)
	}
}

func TestClassify_LeadingDigitFallback(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{101, "Informational response"},
		{201, "Success"},
		{204, "Success"},
		{302, "Redirection"},
		{401, "Client Error"},
		{418, "Client Error"},
		{422, "Client Error"},
		{502, "Server Error"},
		{599, "Server Error"},
	}

	for _, tt := range tests {
		got, ok := Classify(tt.code)
		assert.True(t, ok, "code %d", tt.code)
		assert.Equal(t, tt.want, got, "code %d", tt.code)
	}
}

func TestClassify_NoMatch(t *testing.T) {
	for _, code := range []int{0, 600, 799, 9} {
		got, ok := Classify(code)
		assert.False(t, ok, "code %d", code)
		assert.Empty(t, got)
	}
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, SeverityWarning, SeverityOf(409))
	assert.Equal(t, SeverityError, SeverityOf(500))
	assert.Equal(t, SeverityError, SeverityOf(418))
	assert.Equal(t, SeverityError, SeverityOf(0))
}

func TestInline(t *testing.T) {
	assert.Equal(t, "[500] Create Document - Internal Server Error!", Inline("Create Document", 500))
	assert.Equal(t, "[401] Login - Client Error!", Inline("Login", 401))
	assert.Equal(t, "Tag failed!", Inline("Tag", 0))
}
