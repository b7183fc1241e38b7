package binder

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	workIDRE = regexp.MustCompile(`^[0-9A-Za-z]+$`)
)

// workIDValidator ensures the value looks like a work id (for example
// "n1234ab") or is empty, so an optional filter can be left out.
func workIDValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return workIDRE.MatchString(value)
}
