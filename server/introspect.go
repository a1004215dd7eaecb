package server

import (
	"reflect"
	"slices"
	"strings"

	"github.com/skillwire/skillrpc/protocol"
	"github.com/skillwire/skillrpc/schema"
)

// Method categories reported by server/introspect.
const (
	CategoryAction   = "action"
	CategoryResource = "resource"
	CategoryPrompt   = "prompt"
)

// ParamMeta describes one parameter of an introspected method.
type ParamMeta struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

// MethodMeta describes one registered method for server/introspect.
type MethodMeta struct {
	Name       string      `json:"name"`
	Category   string      `json:"category"`
	Params     []ParamMeta `json:"params"`
	ReturnType string      `json:"returnType"`
	Doc        string      `json:"doc,omitempty"`
}

// Introspection is the full server/introspect payload.
type Introspection struct {
	Server  IntrospectionServer `json:"server"`
	Methods []MethodMeta        `json:"methods"`
}

// IntrospectionServer mirrors the manifest identity fields.
type IntrospectionServer struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocolVersion"`
}

// Introspect returns metadata about every registered method in registration
// order, regardless of category. It is available before the initialize
// handshake completes so clients can discover the surface up front.
func (s *Server) Introspect() Introspection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	methods := make([]MethodMeta, len(s.methods))
	copy(methods, s.methods)

	return Introspection{
		Server: IntrospectionServer{
			Name:            s.info.Name,
			Version:         s.info.Version,
			ProtocolVersion: protocol.Version,
		},
		Methods: methods,
	}
}

// paramsFromStruct flattens a handler's argument struct into parameter
// metadata, preserving declared field order. A field is optional exactly
// when its derived schema carries a default.
func paramsFromStruct(t reflect.Type) []ParamMeta {
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	structSchema, err := schema.GenerateFromType(t)
	if err != nil || structSchema.Properties == nil {
		return nil
	}

	params := make([]ParamMeta, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name := field.Name
		if jsonTag != "" {
			if head := strings.Split(jsonTag, ",")[0]; head != "" {
				name = head
			}
		}

		prop, ok := structSchema.Properties[name]
		if !ok {
			continue
		}
		params = append(params, ParamMeta{
			Name:     name,
			Type:     wireTypeName(field.Type),
			Required: slices.Contains(structSchema.Required, name),
			Default:  prop.Default,
		})
	}
	return params
}

// wireTypeName maps a Go type to the protocol's type vocabulary.
func wireTypeName(t reflect.Type) string {
	if t == nil {
		return "void"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "any"
	}
}
