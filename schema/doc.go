// Package schema provides JSON Schema generation from Go types.
//
// This package derives structural schemas from Go structs for handler
// argument validation and client-facing documentation.
//
// # Basic Usage
//
// Generate a schema from a Go value:
//
//	type Person struct {
//	    Name string `json:"name"`
//	    Age  int    `json:"age" jsonschema:"default=0"`
//	}
//
//	s, err := schema.Generate(Person{})
//
// Handler argument and result schemas are derived with Input and Output:
//
//	in, err := schema.Input(reflect.TypeOf(Person{}))   // nil if no fields
//	out, err := schema.Output(reflect.TypeOf(""))       // {result: string}
//
// # Required and Optional Fields
//
// Every exported field is required unless its jsonschema tag declares a
// default value. A field with a default is optional and the default appears
// in the generated schema:
//
//	type EchoArgs struct {
//	    Message string `json:"message"`                          // required
//	    Upper   bool   `json:"upper" jsonschema:"default=false"` // optional
//	}
//
// # Supported Types
//
//   - Structs: JSON objects with per-field properties
//   - Strings, integers, floats, booleans: the matching JSON scalar type
//   - Slices/Arrays: JSON arrays with item schemas
//   - Maps: unconstrained JSON objects
//   - Pointers: dereferenced
//   - Anything else: the empty schema (any type)
//
// # Struct Tags
//
//	type Example struct {
//	    Name  string  `json:"name"`                                    // json tag controls field name
//	    Level string  `json:"level" jsonschema:"enum=easy|medium|hard"`
//	    Desc  string  `json:"desc" jsonschema:"description=A field"`
//	    Score float64 `json:"score" jsonschema:"minimum=0,maximum=100"`
//	    Skip  string  `json:"-"`                                       // excluded
//	}
//
// # Validation
//
// Schemas validate raw JSON arguments before a handler ever runs. Validation
// checks types, required fields, enum membership, and numeric bounds, and it
// rejects fields the schema does not declare:
//
//	if err := s.Validate(raw); err != nil {
//	    // err is a ValidationErrors listing every problem with its JSON path
//	}
package schema
