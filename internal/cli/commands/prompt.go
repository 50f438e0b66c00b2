package commands

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"gopkg.in/yaml.v3"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
)

// parseSets turns repeated --set key=value flags into field values. Known
// fields are coerced to their type. Unknown keys are kept as YAML scalars
// for schema validation to report.
func parseSets(schema *modules.Schema, sets []string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(sets))
	for _, kv := range sets {
		key, raw, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", kv)
		}

		f, known := schema.Field(key)
		if !known {
			values[key] = scalar(raw)
			continue
		}
		coerced, err := f.Coerce(raw)
		if err != nil {
			return nil, &modules.FieldError{Field: key, Message: err.Error()}
		}
		values[key] = coerced
	}
	return values, nil
}

// scalar parses a YAML scalar so "6380" becomes an int and "true" a bool
func scalar(raw string) interface{} {
	var v interface{}
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case string, int, bool, float64:
		return v
	}
	return raw
}

// merge returns base overlaid with over
func merge(base, over map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// promptFields asks for every field of schema, defaulting to the current
// value and then the field default. Optional fields left blank are skipped.
func promptFields(schema *modules.Schema, current map[string]interface{}) (map[string]interface{}, error) {
	answers := make(map[string]interface{})
	if schema == nil {
		return answers, nil
	}

	for _, f := range schema.Fields {
		message := f.Prompt
		if message == "" {
			message = f.Description
		}
		if message == "" {
			message = f.Name
		}
		def, ok := current[f.Name]
		if !ok || def == nil {
			def = f.Default
		}

		var answer interface{}
		switch {
		case f.Type == modules.FieldTypeSelect:
			var choice string
			prompt := &survey.Select{Message: message, Options: f.Options}
			if def != nil {
				prompt.Default = fmt.Sprint(def)
			}
			if err := survey.AskOne(prompt, &choice); err != nil {
				return nil, err
			}
			answer = choice

		case f.Type == modules.FieldTypeBool:
			var yes bool
			b, _ := def.(bool)
			if err := survey.AskOne(&survey.Confirm{Message: message, Default: b}, &yes); err != nil {
				return nil, err
			}
			answer = yes

		case f.Type == modules.FieldTypeList && len(f.Options) > 0:
			var chosen []string
			prompt := &survey.MultiSelect{Message: message, Options: f.Options}
			if def != nil {
				if list, err := f.Coerce(def); err == nil {
					prompt.Default = list
				}
			}
			if err := survey.AskOne(prompt, &chosen); err != nil {
				return nil, err
			}
			answer = chosen

		default:
			var text string
			prompt := &survey.Input{Message: message}
			if def != nil {
				prompt.Default = strings.Trim(formatValue(def), "[]")
			}
			var validators []survey.AskOpt
			if f.Required {
				validators = append(validators, survey.WithValidator(survey.Required))
			}
			if err := survey.AskOne(prompt, &text, validators...); err != nil {
				return nil, err
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			answer = text
		}

		value, err := f.Coerce(answer)
		if err != nil {
			return nil, &modules.FieldError{Field: f.Name, Message: err.Error()}
		}
		answers[f.Name] = value
	}
	return answers, nil
}
