// Package utils provides utility functions used throughout the gateway.
package utils

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// videoIDRegex matches the character set the platform uses for video ids
	videoIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	validationErrorMessages = map[string]string{
		"required": "This field is required",
		"min":      "Value must be greater than or equal to %s",
		"max":      "Value must be less than or equal to %s",
		"len":      "Length must be exactly %s",
	}
)

func init() {
	validate = validator.New()

	// Report json/query names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
}

// Validate performs validation on the given struct and returns validation errors.
func Validate(s any) error {
	return validate.Struct(s)
}

// FormatValidationErrors formats validation errors into a user-friendly map.
func FormatValidationErrors(err error) map[string]string {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"general": err.Error()}
	}

	result := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		message, exists := validationErrorMessages[fe.Tag()]
		if !exists {
			message = "Invalid value"
		}
		if fe.Param() != "" && strings.Contains(message, "%s") {
			message = strings.Replace(message, "%s", fe.Param(), 1)
		}
		result[fe.Field()] = message
	}

	return result
}

// LooksLikeVideoID reports whether s is 11 characters of the platform alphabet.
func LooksLikeVideoID(s string) bool {
	return len(s) == 11 && videoIDRegex.MatchString(s)
}
