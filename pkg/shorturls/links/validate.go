package links

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var codeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Codes that would shadow server routes.
var reservedCodes = []string{"api", "health", "swagger"}

var validate = validator.New()

// validateDestination requires an absolute URL with a scheme and host.
func validateDestination(destination string) error {
	if destination == "" {
		return &ValidationError{"Destination URL is required"}
	}
	if err := validate.Var(destination, "url"); err != nil {
		return &ValidationError{"Invalid URL format"}
	}
	return nil
}

// validateCode checks the code's characters. Availability is left to the store.
func validateCode(code string) error {
	if !codeRegex.MatchString(code) {
		return &ValidationError{"Code must contain only letters, numbers, hyphens, and underscores"}
	}
	for _, r := range reservedCodes {
		if strings.EqualFold(code, r) {
			return &ValidationError{"This code is reserved"}
		}
	}
	return nil
}
