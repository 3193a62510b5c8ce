// internal/view/uahelpers.go
//
// Request-info template helpers.  Every helper tolerates a nil *Info so
// templates rendered outside the Enrich middleware (tests, error pages)
// still execute.
package view

import (
	"html/template"

	"github.com/yanizio/mieszkaniownik/internal/requestinfo"
)

// uaFuncMap returns helpers keyed off *requestinfo.Info.
func uaFuncMap() template.FuncMap {
	return template.FuncMap{
		"browser": func(i *requestinfo.Info) string {
			if i == nil {
				return ""
			}
			return i.UA.Browser
		},
		"device": func(i *requestinfo.Info) string {
			if i == nil {
				return ""
			}
			return i.UA.Device
		},
		"isBot": func(i *requestinfo.Info) bool { return i != nil && i.UA.IsBot },
	}
}
