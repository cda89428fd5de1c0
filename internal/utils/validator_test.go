// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileForm struct {
	LinkedIn string `json:"linkedin" validate:"required,linkedin"`
	Reason   string `json:"reason" validate:"reason=12"`
}

func TestLinkedInValidation(t *testing.T) {
	cases := map[string]bool{
		"https://www.linkedin.com/in/jane":  true,
		"http://linkedin.com/company/acme":  true,
		"https://uk.linkedin.com/in/jane":   true,
		"https://linkedin.com.evil.example": false,
		"https://notlinkedin.com/in/jane":   false,
		"ftp://linkedin.com/in/jane":        false,
		"linkedin.com/in/jane":              false,
	}

	for url, valid := range cases {
		err := ValidateVar(url, "linkedin")
		if valid {
			assert.NoError(t, err, url)
		} else {
			assert.Error(t, err, url)
		}
	}
}

func TestReasonValidationTrimsWhitespace(t *testing.T) {
	assert.NoError(t, ValidateVar("Insufficient evidence", "reason"))
	assert.Error(t, ValidateVar("    short     ", "reason"))
	assert.Error(t, ValidateVar("no", "reason=3"))
	assert.NoError(t, ValidateVar("yes", "reason=3"))
	assert.Equal(t, 4, TrimmedLength("  café \n"))
}

func TestGetValidationErrors(t *testing.T) {
	err := ValidateStruct(profileForm{LinkedIn: "https://example.com/jane", Reason: "too short"})
	require.Error(t, err)

	details := GetValidationErrors(err)
	require.Len(t, details, 2)
	assert.Equal(t, "linkedin", details[0].Field)
	assert.Equal(t, "LinkedIn profile must be a linkedin.com URL", details[0].Message)
	assert.Equal(t, "reason", details[1].Tag)
	assert.Equal(t, "Reason must be at least 12 characters", details[1].Message)

	assert.Empty(t, GetValidationErrors(nil))
}
