// Package schema provides JSON Schema generation from Go types.
package schema

import (
	"reflect"
	"strconv"
	"strings"
)

// Schema represents a JSON Schema.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Description string             `json:"description,omitempty"`
	Default     any                `json:"default,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Generate creates a JSON Schema from a Go value.
func Generate(v any) (*Schema, error) {
	return generateFromType(reflect.TypeOf(v))
}

// GenerateFromType creates a JSON Schema from a reflect.Type.
func GenerateFromType(t reflect.Type) (*Schema, error) {
	return generateFromType(t)
}

// Input derives the argument schema for a handler whose arguments are the
// fields of struct type t. A struct with no encodable fields yields nil:
// the handler takes no arguments and validation is skipped entirely.
func Input(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, nil
	}
	s, err := generateFromType(t)
	if err != nil {
		return nil, err
	}
	if s.Type == "object" && len(s.Properties) == 0 {
		return nil, nil
	}
	return s, nil
}

// Output derives the result schema for a handler returning type t, wrapping
// it as a single-field object. A nil type means the handler declares no
// result and has no output schema.
func Output(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, nil
	}
	inner, err := generateFromType(t)
	if err != nil {
		return nil, err
	}
	return &Schema{
		Type:       "object",
		Properties: map[string]*Schema{"result": inner},
		Required:   []string{"result"},
	}, nil
}

func generateFromType(t reflect.Type) (*Schema, error) {
	if t == nil {
		return &Schema{}, nil
	}

	// Handle pointers
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return generateStructSchema(t)
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Slice, reflect.Array:
		return generateArraySchema(t)
	case reflect.Map:
		return &Schema{Type: "object"}, nil
	default:
		// Kinds with no JSON representation (chan, func, interface without
		// concrete type) degrade to the empty schema: "any type". The method
		// stays exposed, it just gets no structural constraint.
		return &Schema{}, nil
	}
}

func generateStructSchema(t reflect.Type) (*Schema, error) {
	schema := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		fieldName := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				fieldName = parts[0]
			}
		}

		fieldSchema, err := generateFromType(field.Type)
		if err != nil {
			return nil, err
		}

		// Fields are required unless the jsonschema tag declares a default.
		hasDefault := parseJSONSchemaTag(field.Tag.Get("jsonschema"), fieldSchema, field.Type)
		if !hasDefault {
			schema.Required = append(schema.Required, fieldName)
		}

		schema.Properties[fieldName] = fieldSchema
	}

	return schema, nil
}

func generateArraySchema(t reflect.Type) (*Schema, error) {
	itemSchema, err := generateFromType(t.Elem())
	if err != nil {
		return nil, err
	}

	return &Schema{
		Type:  "array",
		Items: itemSchema,
	}, nil
}

// parseJSONSchemaTag applies jsonschema tag options to the field schema and
// reports whether the field declared a default value (making it optional).
func parseJSONSchemaTag(tag string, schema *Schema, fieldType reflect.Type) bool {
	if tag == "" {
		return false
	}

	hasDefault := false
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)

		switch {
		case strings.HasPrefix(part, "default="):
			schema.Default = coerceTagValue(strings.TrimPrefix(part, "default="), fieldType)
			hasDefault = true
		case strings.HasPrefix(part, "description="):
			schema.Description = strings.TrimPrefix(part, "description=")
		case strings.HasPrefix(part, "enum="):
			for _, v := range strings.Split(strings.TrimPrefix(part, "enum="), "|") {
				schema.Enum = append(schema.Enum, coerceTagValue(v, fieldType))
			}
		case strings.HasPrefix(part, "minimum="):
			if f, err := strconv.ParseFloat(strings.TrimPrefix(part, "minimum="), 64); err == nil {
				schema.Minimum = &f
			}
		case strings.HasPrefix(part, "maximum="):
			if f, err := strconv.ParseFloat(strings.TrimPrefix(part, "maximum="), 64); err == nil {
				schema.Maximum = &f
			}
		}
	}
	return hasDefault
}

// coerceTagValue converts a tag literal to the field's natural JSON type so
// defaults and enums serialize as numbers/booleans rather than strings.
func coerceTagValue(v string, fieldType reflect.Type) any {
	if fieldType == nil {
		return v
	}
	if fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
	}

	switch fieldType.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case reflect.Float32, reflect.Float64:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return v
}
