package modules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// FieldType represents the type of a module configuration field
type FieldType string

const (
	FieldTypeString FieldType = "string"
	FieldTypeInt    FieldType = "int"
	FieldTypeBool   FieldType = "bool"
	FieldTypeSelect FieldType = "select"
	FieldTypeList   FieldType = "list"
)

// Field is a configurable value of a module
type Field struct {
	Name        string
	Description string
	Type        FieldType
	Default     interface{}
	Required    bool
	Options     []string
	Prompt      string
}

// Schema describes the configuration a module accepts
type Schema struct {
	Fields []*Field
}

// NewSchema creates a schema from fields
func NewSchema(fields ...*Field) *Schema {
	return &Schema{Fields: fields}
}

// Field looks up a field by name
func (s *Schema) Field(name string) (*Field, bool) {
	if s == nil {
		return nil, false
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// FieldError is a problem with a single configuration field
type FieldError struct {
	Module  string
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Module, e.Field, e.Message)
}

// ValidationError collects every field error of one module
type ValidationError struct {
	Module string
	Errors *multierror.Error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration for module %s: %s", e.Module, e.Errors.Error())
}

func (e *ValidationError) Unwrap() error {
	return e.Errors
}

// Validate checks the schema itself
func (s *Schema) Validate() error {
	if s == nil {
		return nil
	}
	names := make(map[string]bool)
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("field name is required")
		}
		if names[f.Name] {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		names[f.Name] = true

		switch f.Type {
		case FieldTypeString, FieldTypeInt, FieldTypeBool, FieldTypeList:
		case FieldTypeSelect:
			if len(f.Options) == 0 {
				return fmt.Errorf("select field %s must have options", f.Name)
			}
		default:
			return fmt.Errorf("field %s has unknown type %q", f.Name, f.Type)
		}
	}
	return nil
}

// Resolve fills defaults and coerces raw values into the field types.
// Every problem found is reported in a single *ValidationError.
func (s *Schema) Resolve(module string, raw map[string]interface{}) (Values, error) {
	values := Values{}
	var result *multierror.Error

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := s.Field(k); !ok {
			result = multierror.Append(result, &FieldError{Module: module, Field: k, Message: "unknown field"})
		}
	}

	if s != nil {
		for _, f := range s.Fields {
			value, ok := raw[f.Name]
			if !ok || value == nil {
				if f.Required && f.Default == nil {
					result = multierror.Append(result, &FieldError{Module: module, Field: f.Name, Message: "required field not provided"})
					continue
				}
				value = f.Default
			}
			if value == nil {
				continue
			}

			coerced, err := f.Coerce(value)
			if err != nil {
				result = multierror.Append(result, &FieldError{Module: module, Field: f.Name, Message: err.Error()})
				continue
			}
			values[f.Name] = coerced
		}
	}

	if result != nil {
		return nil, &ValidationError{Module: module, Errors: result}
	}
	return values, nil
}

// Coerce converts a value into the field type
func (f *Field) Coerce(value interface{}) (interface{}, error) {
	switch f.Type {
	case FieldTypeString:
		switch v := value.(type) {
		case string:
			return v, nil
		case int, int64, float64, bool:
			return fmt.Sprint(v), nil
		}
	case FieldTypeInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != float64(int(v)) {
				return nil, fmt.Errorf("expected an integer, got %v", v)
			}
			return int(v), nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("expected an integer, got %q", v)
			}
			return n, nil
		}
	case FieldTypeBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("expected a boolean, got %q", v)
			}
			return b, nil
		}
	case FieldTypeSelect:
		s, ok := value.(string)
		if !ok {
			break
		}
		if f.allowed(s) {
			return s, nil
		}
		return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(f.Options, ", "))
	case FieldTypeList:
		var out []string
		switch v := value.(type) {
		case []string:
			out = append([]string(nil), v...)
		case []interface{}:
			out = make([]string, 0, len(v))
			for _, item := range v {
				out = append(out, fmt.Sprint(item))
			}
		case string:
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					out = append(out, item)
				}
			}
		default:
			return nil, fmt.Errorf("expected %s, got %T", f.Type, value)
		}
		for _, item := range out {
			if len(f.Options) > 0 && !f.allowed(item) {
				return nil, fmt.Errorf("%q is not one of %s", item, strings.Join(f.Options, ", "))
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected %s, got %T", f.Type, value)
}

func (f *Field) allowed(value string) bool {
	for _, opt := range f.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// Values is a resolved module configuration
type Values map[string]interface{}

// String returns a string value or ""
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// Int returns an int value or 0
func (v Values) Int(name string) int {
	n, _ := v[name].(int)
	return n
}

// Bool returns a bool value or false
func (v Values) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

// Strings returns a list value
func (v Values) Strings(name string) []string {
	l, _ := v[name].([]string)
	return l
}

// Has reports whether a list value contains item
func (v Values) Has(name, item string) bool {
	for _, s := range v.Strings(name) {
		if s == item {
			return true
		}
	}
	return false
}
