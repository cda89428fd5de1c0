// internal/utils/validator.go
package utils

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("linkedin", validateLinkedIn)
	validate.RegisterValidation("reason", validateReason)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidateVar validates a single value against a tag expression.
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}

func validateLinkedIn(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Host)
	return host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com")
}

// validateReason enforces a minimum number of non-blank characters. The
// minimum comes from the tag param, e.g. `validate:"reason=10"`.
func validateReason(fl validator.FieldLevel) bool {
	min := 10
	if p := fl.Param(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return false
		}
		min = n
	}
	return TrimmedLength(fl.Field().String()) >= min
}

// TrimmedLength counts runes after trimming surrounding whitespace.
func TrimmedLength(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "url":
		return e.Field() + " must be a valid URL"
	case "min":
		return e.Field() + " must have at least " + e.Param() + " items or characters"
	case "max":
		return e.Field() + " must have at most " + e.Param() + " items or characters"
	case "linkedin":
		return "LinkedIn profile must be a linkedin.com URL"
	case "reason":
		return e.Field() + " must be at least " + e.Param() + " characters"
	default:
		return e.Field() + " is invalid"
	}
}
