// internal/form/validate.go
//
// Forms subsystem: server-side validation.
//
// Context
//   The renderer outputs HTML containing a CSRF token.  When the browser
//   posts user input, this file verifies the submission: CSRF, required
//   fields, type constraints, numeric bounds, regex patterns, option values,
//   and length limits.  It returns the accepted values keyed by field name.
//
// Workflow
//   •  Registry.Validate retrieves the FormDef, checks CSRF, then validates
//      each field by type.  Errors are captured in []ErrorField so the
//      renderer can highlight exact issues.
//   •  Registry.VerifyCSRF alone serves round-trips that do not save (keyword
//      add or remove), where required fields may legitimately be empty.
//   •  Values are returned as posted.  Text is not trimmed or escaped here;
//      html/template and the renderer escape on output.
//
// Style
//   Full sentences, two space spacing, Oxford comma.  User-facing messages
//   are Polish, like the rest of the UI copy.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Default messages.  FieldDef.ErrorMsg overrides the field-level ones.
const (
	MsgCSRF     = "Sesja formularza wygasła.  Odśwież stronę i spróbuj ponownie."
	MsgRequired = "To pole jest wymagane."
	MsgInvalid  = "Nieprawidłowa wartość."
	MsgPattern  = "Wartość ma niepoprawny format."
	MsgUnknown  = "Nieznany formularz."
)

// ErrorField describes a single validation failure so the template can render
// a field-level message.  Name "" marks a form-level error.
type ErrorField struct {
	Name    string
	Message string
}

// Token issues a CSRF token for hand-written forms (the logout button).
func (r *Registry) Token() (string, error) { return r.csrf.GenerateToken() }

// VerifyCSRF reports whether posted carries a valid token.
func (r *Registry) VerifyCSRF(posted url.Values) bool {
	tok := posted.Get("csrf_token")
	return tok != "" && r.csrf.VerifyToken(tok)
}

// Validate checks posted data for formID.  It returns accepted values and
// any field errors.  A non-empty error slice means the form must be
// re-rendered.
func (r *Registry) Validate(formID string, posted url.Values) (map[string]string, []ErrorField) {
	fd, ok := r.Get(formID)
	if !ok {
		return nil, []ErrorField{{Name: "", Message: MsgUnknown}}
	}

	if !r.VerifyCSRF(posted) {
		return nil, []ErrorField{{Name: "", Message: MsgCSRF}}
	}

	var errs []ErrorField
	clean := make(map[string]string)

	for _, f := range allFields(fd) {
		if f.Type == "keywords" {
			continue // list field, owned by the caller.
		}
		raw := posted.Get(f.Name)

		if strings.TrimSpace(raw) == "" {
			if f.Required {
				errs = append(errs, ErrorField{f.Name, requiredMsg(&f)})
			}
			continue
		}

		if msg := checkValue(&f, raw); msg != "" {
			errs = append(errs, ErrorField{f.Name, msg})
			continue
		}
		clean[f.Name] = raw
	}

	return clean, errs
}

// -----------------------------------------------------------------------------
// Field-level helpers
// -----------------------------------------------------------------------------

// checkValue returns a user-visible message, or "" when raw is acceptable.
func checkValue(f *FieldDef, raw string) string {
	switch f.Type {
	case "text", "password":
		if msg := lengthCheck(f, raw); msg != "" {
			return msg
		}
		if f.Pattern != "" && !regexMatch(f.Pattern, raw) {
			return patternMsg(f)
		}

	case "url":
		// Browser hint only; the backend owns webhook validation.
		return lengthCheck(f, raw)

	case "email":
		if msg := lengthCheck(f, raw); msg != "" {
			return msg
		}
		if _, err := mail.ParseAddress(strings.TrimSpace(raw)); err != nil {
			return invalidMsg(f)
		}

	case "number":
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return invalidMsg(f)
		}
		if f.Min != "" {
			if lo, _ := strconv.ParseFloat(f.Min, 64); n < lo {
				return fmt.Sprintf("Wartość nie może być mniejsza niż %s.", f.Min)
			}
		}
		if f.Max != "" {
			if hi, _ := strconv.ParseFloat(f.Max, 64); n > hi {
				return fmt.Sprintf("Wartość nie może być większa niż %s.", f.Max)
			}
		}

	case "select", "tristate":
		if !optionAllowed(f.Options, raw) {
			return invalidMsg(f)
		}

	default:
		return fmt.Sprintf("Nieobsługiwany typ pola %q.", f.Type)
	}
	return ""
}

// lengthCheck validates minlength / maxlength rules in characters.
func lengthCheck(f *FieldDef, s string) string {
	n := utf8.RuneCountInString(s)
	if f.MinLength > 0 && n < f.MinLength {
		return fmt.Sprintf("Wymagane co najmniej %d znaków.", f.MinLength)
	}
	if f.MaxLength > 0 && n > f.MaxLength {
		return fmt.Sprintf("Dozwolone najwyżej %d znaków.", f.MaxLength)
	}
	return ""
}

func regexMatch(pattern, s string) bool {
	re, _ := regexp.Compile(pattern) // pattern pre-validated at load
	return re.MatchString(s)
}

func optionAllowed(opts []OptionDef, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}

func requiredMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return MsgRequired
}

func invalidMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return MsgInvalid
}

func patternMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return MsgPattern
}
