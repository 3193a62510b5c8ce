// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals and defaults the merged Koanf tree.  Any tag mismatch or
// validation error aborts startup, ensuring the binary never runs with
// partial, malformed, or missing configuration.
//
// Rules in use: `required`, `url`, `hostname_port`, `startswith`, `oneof`,
// `min`, `gte`, and the local `navtarget` (an absolute path or an http(s)
// URL).  Errors are flattened into one line naming every
// offending key so an operator fixes them in a single pass.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("navtarget", func(fl validator.FieldLevel) bool {
		return isNavTarget(fl.Field().String())
	})
	return val
}

// isNavTarget accepts "/path" (not "//host") or an absolute http(s) URL.
func isNavTarget(s string) bool {
	if strings.HasPrefix(s, "/") {
		return !strings.HasPrefix(s, "//")
	}
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

//
// public API
//

// validateStruct returns nil on success, or one error listing every failed
// field as section.field (rule).
func validateStruct(c *Config) error {
	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		parts = append(parts, fmt.Sprintf("%s (%s)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(parts, ", "))
}
