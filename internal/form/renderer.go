// internal/form/renderer.go
//
// Forms subsystem: HTML renderer.
//
// Context
//   Given a parsed FormDef (from definition.go) this file converts the
//   definition into safe, accessible HTML markup.  It applies HTML5
//   validation attributes, injects a CSRF token, and honours prefill data
//   and field errors so a rejected POST comes back exactly as typed.
//
// Workflow
//   •  Registry.Render looks up the FormDef by ID and writes form-level
//      errors, then each section or field via writeField, then the buttons.
//   •  Required, minlength, maxlength, pattern, min, max, step, and
//      placeholder attributes are attached where relevant.
//   •  “keywords” fields render the pending-entry input, an add button, and
//      the current list as hidden inputs with one remove button each.  The
//      add button is the first submit button in the form, so pressing Enter
//      in any text input adds a keyword instead of saving.
//   •  The caller receives template.HTML and wraps it in its own <form>.
//
// Style
//   Output HTML is plain – no framework classes – so the stylesheet targets
//   element selectors or class hooks.  Each input gets id="fld-{name}" and is
//   wrapped in <div class="form-field">.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
)

// RenderOptions bundles per-request data influencing HTML output.
type RenderOptions struct {
	// Prefill provides initial field values keyed by field name.
	Prefill map[string]string
	// Lists provides multi-valued fields (keywords) keyed by field name.
	Lists map[string][]string
	// Errors are shown next to their fields; Name "" goes on top.
	Errors []ErrorField
	// Disabled renders every control disabled (save in flight).
	Disabled bool
}

func (o RenderOptions) value(name string) string {
	if o.Prefill == nil {
		return ""
	}
	return o.Prefill[name]
}

func (o RenderOptions) errorFor(name string) string {
	for _, e := range o.Errors {
		if e.Name == name {
			return e.Message
		}
	}
	return ""
}

// Render returns the HTML markup for the specified form ID.
func (r *Registry) Render(formID string, opts RenderOptions) (template.HTML, error) {
	fd, ok := r.Get(formID)
	if !ok {
		return "", fmt.Errorf("form: render: unknown form %q", formID)
	}
	tok, err := r.csrf.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("form: render %s: csrf: %w", formID, err)
	}

	var buf bytes.Buffer
	buf.WriteString(`<div class="app-form" data-form="` + html.EscapeString(fd.ID) + `">` + "\n")

	// Enter submits with the first submit button in tree order.  A keyword
	// widget puts its add button ahead of the form buttons, so an off-screen
	// copy of the first form button goes first to keep Enter meaning save.
	if len(fd.Buttons) > 0 && hasKeywords(fd) {
		writeButton(&buf, fd.Buttons[0], ` class="default-submit" tabindex="-1" aria-hidden="true"`, opts.Disabled)
	}

	// Form-level errors (CSRF, unknown form).
	for _, e := range opts.Errors {
		if e.Name == "" {
			buf.WriteString(`<p class="form-error" role="alert">` + html.EscapeString(e.Message) + `</p>` + "\n")
		}
	}

	if len(fd.Sections) == 0 {
		for i := range fd.Fields {
			if err := writeField(&buf, &fd.Fields[i], opts); err != nil {
				return "", err
			}
		}
	}
	for _, s := range fd.Sections {
		cls := "form-section"
		if s.Inline {
			cls += " form-section-inline"
		}
		buf.WriteString(`<fieldset class="` + cls + `" id="sec-` + html.EscapeString(s.ID) + `">` + "\n")
		if s.Title != "" {
			buf.WriteString(`<legend>` + html.EscapeString(s.Title) + `</legend>` + "\n")
		}
		for i := range s.Fields {
			if err := writeField(&buf, &s.Fields[i], opts); err != nil {
				return "", err
			}
		}
		buf.WriteString(`</fieldset>` + "\n")
	}

	buf.WriteString(`<input type="hidden" name="csrf_token" value="` + tok + `">` + "\n")

	if len(fd.Buttons) > 0 {
		buf.WriteString(`<div class="form-buttons">` + "\n")
		for _, b := range fd.Buttons {
			attrs := ""
			if b.Class != "" {
				attrs = ` class="` + html.EscapeString(b.Class) + `"`
			}
			writeButton(&buf, b, attrs, opts.Disabled)
		}
		buf.WriteString(`</div>` + "\n")
	}

	buf.WriteString(`</div>`)
	return template.HTML(buf.String()), nil
}

func writeButton(buf *bytes.Buffer, b ButtonDef, attrs string, disabled bool) {
	buf.WriteString(`<button type="submit"`)
	if b.Name != "" {
		buf.WriteString(` name="` + html.EscapeString(b.Name) + `" value="` + html.EscapeString(b.Value) + `"`)
	}
	buf.WriteString(attrs)
	if disabled {
		buf.WriteString(` disabled aria-busy="true"`)
	}
	buf.WriteString(`>` + html.EscapeString(b.Label) + `</button>` + "\n")
}

func hasKeywords(fd *FormDef) bool {
	for _, f := range fd.Fields {
		if f.Type == "keywords" {
			return true
		}
	}
	for _, s := range fd.Sections {
		for _, f := range s.Fields {
			if f.Type == "keywords" {
				return true
			}
		}
	}
	return false
}

// writeField emits HTML for an individual field into buf, applying prefill,
// validation attributes, and any error message.
func writeField(buf *bytes.Buffer, f *FieldDef, opts RenderOptions) error {
	val := opts.value(f.Name)
	msg := opts.errorFor(f.Name)

	cls := "form-field form-field-" + f.Type
	if msg != "" {
		cls += " has-error"
	}
	buf.WriteString(`<div class="` + cls + `">` + "\n")

	idFor := f.Name
	if f.Type == "keywords" {
		idFor = f.Input
	}
	buf.WriteString(`<label for="fld-` + html.EscapeString(idFor) + `">` + html.EscapeString(f.Label))
	if f.Required {
		buf.WriteString(`*`)
	}
	buf.WriteString(`</label>` + "\n")

	common := `id="fld-` + html.EscapeString(f.Name) + `" name="` + html.EscapeString(f.Name) + `"`
	if msg != "" {
		common += ` aria-invalid="true" aria-describedby="err-` + html.EscapeString(f.Name) + `"`
	}
	if opts.Disabled {
		common += ` disabled`
	}

	switch f.Type {
	case "text", "email", "url", "password", "number":
		buf.WriteString(`<input ` + common + ` type="` + f.Type + `"`)
		if f.Placeholder != "" {
			buf.WriteString(` placeholder="` + html.EscapeString(f.Placeholder) + `"`)
		}
		if f.Required {
			buf.WriteString(` required`)
		}
		if f.MinLength > 0 {
			buf.WriteString(` minlength="` + strconv.Itoa(f.MinLength) + `"`)
		}
		if f.MaxLength > 0 {
			buf.WriteString(` maxlength="` + strconv.Itoa(f.MaxLength) + `"`)
		}
		if f.Pattern != "" {
			buf.WriteString(` pattern="` + html.EscapeString(f.Pattern) + `"`)
		}
		for _, a := range [][2]string{{"min", f.Min}, {"max", f.Max}, {"step", f.Step}} {
			if a[1] != "" {
				buf.WriteString(` ` + a[0] + `="` + html.EscapeString(a[1]) + `"`)
			}
		}
		// password fields are not prefilled.
		if val != "" && f.Type != "password" {
			buf.WriteString(` value="` + html.EscapeString(val) + `"`)
		}
		buf.WriteString(`>` + "\n")

	case "select", "tristate":
		buf.WriteString(`<select ` + common)
		if f.Required {
			buf.WriteString(` required`)
		}
		buf.WriteString(`>` + "\n")
		for _, opt := range f.Options {
			sel := ""
			if val == opt.Value {
				sel = ` selected`
			}
			buf.WriteString(`<option value="` + html.EscapeString(opt.Value) + `"` + sel + `>` + html.EscapeString(opt.Label) + `</option>` + "\n")
		}
		buf.WriteString(`</select>` + "\n")

	case "keywords":
		writeKeywords(buf, f, opts)

	default:
		return fmt.Errorf("writeField: unsupported field type %q in form field %s", f.Type, f.Name)
	}

	buf.WriteString(`<span class="error" id="err-` + html.EscapeString(f.Name) + `" aria-live="polite">` + html.EscapeString(msg) + `</span>` + "\n")
	buf.WriteString(`</div>` + "\n")
	return nil
}

// writeKeywords renders entry input, add button, and the current list.
func writeKeywords(buf *bytes.Buffer, f *FieldDef, opts RenderOptions) {
	dis := ""
	if opts.Disabled {
		dis = ` disabled`
	}
	in := html.EscapeString(f.Input)

	buf.WriteString(`<div class="keyword-entry">` + "\n")
	buf.WriteString(`<input id="fld-` + in + `" name="` + in + `" type="text"` + dis)
	if f.Placeholder != "" {
		buf.WriteString(` placeholder="` + html.EscapeString(f.Placeholder) + `"`)
	}
	if v := opts.value(f.Input); v != "" {
		buf.WriteString(` value="` + html.EscapeString(v) + `"`)
	}
	buf.WriteString(`>` + "\n")
	buf.WriteString(`<button type="submit" name="op" value="add_keyword" formnovalidate` + dis + `>` + html.EscapeString(f.AddLabel) + `</button>` + "\n")
	buf.WriteString(`</div>` + "\n")

	list := opts.Lists[f.Name]
	if len(list) == 0 {
		return
	}
	name := html.EscapeString(f.Name)
	buf.WriteString(`<ul class="keywords">` + "\n")
	for _, k := range list {
		ek := html.EscapeString(k)
		buf.WriteString(`<li><input type="hidden" name="` + name + `" value="` + ek + `">` + ek +
			` <button type="submit" name="remove_keyword" value="` + ek + `" formnovalidate aria-label="Usuń ` + ek + `"` + dis + `>×</button></li>` + "\n")
	}
	buf.WriteString(`</ul>` + "\n")
}
