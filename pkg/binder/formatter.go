package binder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/iancoleman/strcase"
)

const (
	gt       = "gt"
	gtefield = "gtefield"
	mx       = "max"
	mn       = "min"
	oneof    = "oneof"
	required = "required"
	workID   = "work_id"
)

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%q should be of type %s", err.Key, err.Type)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case gt:
		return fmt.Sprintf("%q must be greater than %s", field, err.Param())
	case gtefield:
		// Param is the Go field name; query parameters are snake case.
		return fmt.Sprintf("%q must be greater than or equal to %q", field, strcase.ToSnake(err.Param()))
	case mx:
		return fmt.Sprintf("%q %s less than or equal to %s", field, bound(err), err.Param()+unit(err))
	case mn:
		return fmt.Sprintf("%q %s greater than or equal to %s", field, bound(err), err.Param()+unit(err))
	case oneof:
		valids := []string{}
		for _, p := range strings.Fields(err.Param()) {
			valids = append(valids, fmt.Sprintf("%q", p))
		}
		return fmt.Sprintf("%q must be one of the following: %s", field, strings.Join(valids, ", "))
	case required:
		return fmt.Sprintf("%q is required", field)
	case workID:
		return fmt.Sprintf("%q is not a valid work id", field)
	default:
		return fmt.Sprintf("%q failed the %q check", field, err.Tag())
	}
}

func isNumber(kind reflect.Kind) bool {
	//exhaustive:ignore
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// bound is the verb of a min/max message: numbers compare by value, strings
// and slices by length.
func bound(err validator.FieldError) string {
	if isNumber(err.Kind()) {
		return "must be"
	}
	return "length must be"
}

func unit(err validator.FieldError) string {
	if isNumber(err.Kind()) {
		return ""
	}
	resource := " character"
	if err.Kind() == reflect.Slice {
		resource = " element"
	}
	if err.Param() != "1" {
		resource += "s"
	}
	return resource
}
