package errcodes

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		"not_found",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_error",
	}
}

// RateLimited is returned when the remote site answered with its rate-limit
// signal instead of the requested page.
func RateLimited(url string) error {
	return &Error{
		http.StatusServiceUnavailable,
		fmt.Sprintf("Rate limited while fetching %s", url),
		"rate_limited",
	}
}

// NoCoherentPage is returned when a work's index page has no title, which
// means the work was deleted or the page layout is not one we understand.
func NoCoherentPage(workID string) error {
	return &Error{
		http.StatusBadGateway,
		fmt.Sprintf("No coherent index page for %s", workID),
		"no_coherent_page",
	}
}

func IsRateLimited(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == "rate_limited"
}

func IsNoCoherentPage(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == "no_coherent_page"
}

func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == "not_found"
}
