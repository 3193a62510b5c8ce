// internal/form/definition.go
//
// Forms subsystem: YAML definition loader.
//
// Context
//   Each HTML form is declared in a YAML file.  The file defines the form’s
//   identifier, title, fields (flat, or grouped into sections), and the
//   submit buttons.  At start-up every component hands its embedded
//   “forms/*.yaml” to Registry.Load; an optional override directory on disk
//   is loaded afterwards so operators can relabel fields without a rebuild.
//   The renderer and validator fetch definitions from the Registry by ID.
//
// Workflow
//   •  Structs mirror the YAML schema: FormDef → SectionDef → FieldDef.
//   •  LoadFormDef parses a single YAML file and validates structural rules.
//   •  Registry.Load walks one fs.FS directory and registers every “*.yaml”.
//      Later registrations replace earlier ones with the same ID.
//   •  Registry.Get offers safe, read-only access to a parsed form by ID.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.  Helper
//   comments use short noun phrases.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FormDef represents one form definition loaded from YAML.
//
// The form is uniquely identified by ID, namespaced by component, e.g.
// “alerts/edit”.  A form is defined EITHER by a flat Fields list OR by a
// Sections list.  All sections render at once; they only group markup.
type FormDef struct {
	ID       string       `yaml:"id"`       // Component-scoped identifier.
	Title    string       `yaml:"title"`    // Display title, optional.
	Intro    string       `yaml:"intro"`    // Lead paragraph, optional.
	Fields   []FieldDef   `yaml:"fields"`   // Flat list of fields.
	Sections []SectionDef `yaml:"sections"` // Grouped fields.  Mutually exclusive with Fields.
	Buttons  []ButtonDef  `yaml:"buttons"`  // Submit buttons, in order.
}

// SectionDef groups fields under a <fieldset>.
type SectionDef struct {
	ID     string     `yaml:"id"`     // Unique per form.  If blank, we derive one.
	Title  string     `yaml:"title"`  // Legend, optional.
	Inline bool       `yaml:"inline"` // Lay fields out side by side (min/max pairs).
	Fields []FieldDef `yaml:"fields"`
}

// FieldDef describes a single input control.  Validation metadata lives
// inline so the server enforces the same rules the browser hints at.
type FieldDef struct {
	Name        string      `yaml:"name"`        // Submission key.  Required.
	Label       string      `yaml:"label"`       // Human-readable label.  Required.
	Type        string      `yaml:"type"`        // See fieldTypes.
	Placeholder string      `yaml:"placeholder"` // Optional placeholder text.
	Required    bool        `yaml:"required"`    // True if input is mandatory.
	MinLength   int         `yaml:"minlength"`   // ≥ 0, 0 means unset.
	MaxLength   int         `yaml:"maxlength"`   // ≥ 0, 0 means unset.
	Pattern     string      `yaml:"pattern"`     // Regex pattern string.
	Min         string      `yaml:"min"`         // number only.
	Max         string      `yaml:"max"`         // number only.
	Step        string      `yaml:"step"`        // number only.
	Options     []OptionDef `yaml:"options"`     // select and tristate.
	Input       string      `yaml:"input"`       // keywords: name of the pending-entry input.
	AddLabel    string      `yaml:"add_label"`   // keywords: add button caption.
	ErrorMsg    string      `yaml:"error"`       // Custom error message, optional.
}

// OptionDef is one <option>.  In YAML it may be written as a bare scalar
// (value doubles as label) or as a {value, label} map.
type OptionDef struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// UnmarshalYAML accepts both option spellings.
func (o *OptionDef) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		o.Value, o.Label = n.Value, n.Value
		return nil
	}
	type plain OptionDef
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*o = OptionDef(p)
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

// ButtonDef is one submit button.  Name and Value travel with the POST so
// the handler knows which button was pressed.
type ButtonDef struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	Label string `yaml:"label"`
	Class string `yaml:"class"`
}

// fieldTypes lists every type the renderer and validator understand.
var fieldTypes = map[string]bool{
	"text":     true,
	"email":    true,
	"url":      true,
	"password": true,
	"number":   true,
	"select":   true,
	"tristate": true,
	"keywords": true,
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// Registry maps form ID → *FormDef.  Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	forms map[string]*FormDef
	csrf  *CSRF
}

// NewRegistry returns an empty registry whose forms are protected by csrf.
func NewRegistry(csrf *CSRF) *Registry {
	return &Registry{forms: make(map[string]*FormDef), csrf: csrf}
}

// Get returns a parsed FormDef by ID.  The boolean is false when the ID is
// unknown.
func (r *Registry) Get(id string) (*FormDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fd, ok := r.forms[id]
	return fd, ok
}

// Load parses every “*.yaml” directly under dir in fsys.  A missing
// directory is not an error, so optional override dirs can be passed
// unconditionally.
func (r *Registry) Load(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("form: read dir %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue // skip non-YAML
		}
		fd, err := LoadFormDef(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return err // fail fast so issues surface loudly.
		}
		r.register(fd)
	}
	return nil
}

func (r *Registry) register(fd *FormDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms[fd.ID] = fd
}

// -----------------------------------------------------------------------------
// Loader
// -----------------------------------------------------------------------------

// LoadFormDef parses one YAML file, validates its structure, and returns a
// populated FormDef.  It never touches a Registry.
func LoadFormDef(fsys fs.FS, name string) (*FormDef, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", name, err)
	}

	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", name, err)
	}

	if err := validateFormDef(&fd, name); err != nil {
		return nil, err
	}
	return &fd, nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

// validateFormDef enforces structural rules that cannot be expressed via YAML
// tags alone.  It returns a descriptive error referencing the offending file.
func validateFormDef(fd *FormDef, name string) error {
	if fd.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", name)
	}

	// Either flat fields OR sections, not both.
	if len(fd.Fields) > 0 && len(fd.Sections) > 0 {
		return fmt.Errorf("form definition %s: cannot have both 'fields' and 'sections'", name)
	}
	if len(fd.Fields) == 0 && len(fd.Sections) == 0 {
		return fmt.Errorf("form definition %s: must have 'fields' or 'sections'", name)
	}

	seen := make(map[string]struct{})
	check := func(f *FieldDef) error {
		if err := validateField(f, name); err != nil {
			return err
		}
		for _, n := range []string{f.Name, f.Input} {
			if n == "" {
				continue
			}
			if _, dup := seen[n]; dup {
				return fmt.Errorf("form %s: duplicate field name '%s'", name, n)
			}
			seen[n] = struct{}{}
		}
		return nil
	}

	for i := range fd.Fields {
		if err := check(&fd.Fields[i]); err != nil {
			return err
		}
	}
	for si := range fd.Sections {
		s := &fd.Sections[si]
		if s.ID == "" {
			s.ID = "section" + strconv.Itoa(si+1)
		}
		for fi := range s.Fields {
			if err := check(&s.Fields[fi]); err != nil {
				return err
			}
		}
	}

	for i, b := range fd.Buttons {
		if b.Label == "" {
			return fmt.Errorf("form %s: button %d missing 'label'", name, i+1)
		}
	}
	return nil
}

// validateField confirms that essential attributes are present and sane.
// It also fills type-specific defaults.
func validateField(f *FieldDef, name string) error {
	if f.Name == "" {
		return fmt.Errorf("form %s: field missing 'name'", name)
	}
	if f.Label == "" {
		return fmt.Errorf("form %s: field '%s' missing 'label'", name, f.Name)
	}
	if !fieldTypes[f.Type] {
		return fmt.Errorf("form %s: field '%s' has unsupported type %q", name, f.Name, f.Type)
	}

	if f.Pattern != "" {
		if _, err := regexp.Compile(f.Pattern); err != nil {
			return fmt.Errorf("form %s: field '%s' invalid regex pattern: %v", name, f.Name, err)
		}
	}
	if f.MinLength < 0 || f.MaxLength < 0 {
		return fmt.Errorf("form %s: field '%s' minlength/maxlength cannot be negative", name, f.Name)
	}
	if f.MaxLength > 0 && f.MinLength > f.MaxLength {
		return fmt.Errorf("form %s: field '%s' minlength greater than maxlength", name, f.Name)
	}

	for _, bound := range []string{f.Min, f.Max, f.Step} {
		if bound == "" {
			continue
		}
		if f.Type != "number" {
			return fmt.Errorf("form %s: field '%s' min/max/step only apply to numbers", name, f.Name)
		}
		if _, err := strconv.ParseFloat(bound, 64); err != nil {
			return fmt.Errorf("form %s: field '%s' bad numeric bound %q", name, f.Name, bound)
		}
	}

	switch f.Type {
	case "select":
		if len(f.Options) == 0 {
			return fmt.Errorf("form %s: select '%s' needs options", name, f.Name)
		}
	case "tristate":
		if len(f.Options) == 0 {
			f.Options = defaultTriOptions()
		}
		for _, o := range f.Options {
			if o.Value != "" && o.Value != "true" && o.Value != "false" {
				return fmt.Errorf("form %s: tristate '%s' option %q must be \"\", \"true\", or \"false\"", name, f.Name, o.Value)
			}
		}
	case "keywords":
		if f.Input == "" {
			f.Input = f.Name + "_input"
		}
		if f.AddLabel == "" {
			f.AddLabel = "Dodaj"
		}
	}
	return nil
}

func defaultTriOptions() []OptionDef {
	return []OptionDef{
		{Value: "", Label: "Dowolne"},
		{Value: "true", Label: "Tak"},
		{Value: "false", Label: "Nie"},
	}
}

// allFields returns every FieldDef regardless of section structure.
func allFields(fd *FormDef) []FieldDef {
	if len(fd.Sections) == 0 {
		return fd.Fields
	}
	var out []FieldDef
	for _, s := range fd.Sections {
		out = append(out, s.Fields...)
	}
	return out
}
