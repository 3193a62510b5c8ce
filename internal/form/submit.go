// internal/form/submit.go
//
// Forms subsystem: consolidated Submit helper.
//
// Context
//   Most handlers want one call that parses the POST body, validates input,
//   and returns the clean map or a *ValidationError.  HandleSubmit provides
//   that convenience so component code stays terse.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"net/http"
)

// ValidationError wraps []ErrorField and satisfies the error interface.
//
// It lets callers distinguish user input errors from system failures via
// errors.As / IsValidationError.
type ValidationError struct{ Fields []ErrorField }

func (ve *ValidationError) Error() string { return "form validation failed" }

// HandleSubmit parses r and validates it against formID.  On validation
// failure it returns a *ValidationError.  Parse failures come back as-is.
func (r *Registry) HandleSubmit(formID string, req *http.Request) (map[string]string, error) {
	if err := req.ParseForm(); err != nil {
		return nil, err
	}

	clean, errs := r.Validate(formID, req.PostForm)
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return clean, nil
}

// IsValidationError reports whether err came from failed validation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FieldErrors extracts the field list from err, or nil.
func FieldErrors(err error) []ErrorField {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
