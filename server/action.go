package server

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/skillwire/skillrpc/protocol"
	"github.com/skillwire/skillrpc/schema"
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
	anyType = reflect.TypeOf((*any)(nil)).Elem()
)

// Action represents a callable unit of behavior exposed over the protocol.
type Action struct {
	name        string
	description string

	inputType    reflect.Type   // nil when the handler takes no arguments
	inputSchema  *schema.Schema // nil when the handler takes no arguments
	outputSchema *schema.Schema // nil when the handler declares no result type
	outputType   reflect.Type

	handler    reflect.Value
	hasContext bool
	hasInput   bool
	inputIsPtr bool
	hasResult  bool

	params   []ParamMeta
	defaults map[string]any
}

// Name returns the action's protocol-visible name.
func (a *Action) Name() string { return a.name }

// OutputSchema returns the derived output schema, or nil if the handler
// declares no result type.
func (a *Action) OutputSchema() *schema.Schema { return a.outputSchema }

// ActionBuilder provides a fluent API for building actions.
type ActionBuilder struct {
	action *Action
	server *Server
	err    error
}

// Description sets the action description.
func (b *ActionBuilder) Description(desc string) *ActionBuilder {
	if b.err != nil {
		return b
	}
	b.action.description = desc
	return b
}

// Handler sets the action handler function and registers the action.
// Handler signature must be one of:
//   - func(input T) (R, error)
//   - func(ctx context.Context, input T) (R, error)
//   - func(ctx context.Context) (R, error)
//   - func() (R, error)
//
// T must be a struct (or pointer to struct); its fields become the action's
// arguments. R may be omitted, in which case the action has no output schema.
func (b *ActionBuilder) Handler(fn any) *ActionBuilder {
	if b.err != nil {
		return b
	}

	if err := b.action.bindHandler(reflect.ValueOf(fn)); err != nil {
		b.err = fmt.Errorf("action %q: %w", b.action.name, err)
		return b
	}

	b.server.registerAction(b.action)
	return b
}

// Err returns the first error encountered while building, if any.
func (b *ActionBuilder) Err() error {
	return b.err
}

// bindHandler validates the handler signature and derives schemas.
func (a *Action) bindHandler(fn reflect.Value) error {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return fmt.Errorf("handler must be a function, got %s", fn.Kind())
	}
	fnType := fn.Type()

	numIn := fnType.NumIn()
	if numIn > 2 {
		return fmt.Errorf("handler must have at most 2 parameters, got %d", numIn)
	}

	idx := 0
	if idx < numIn && fnType.In(idx) == ctxType {
		a.hasContext = true
		idx++
	}
	if idx < numIn {
		inputType := fnType.In(idx)
		if inputType.Kind() == reflect.Ptr {
			a.inputIsPtr = true
			inputType = inputType.Elem()
		}
		if inputType.Kind() != reflect.Struct {
			return fmt.Errorf("argument type must be a struct, got %s", inputType.Kind())
		}
		a.hasInput = true
		a.inputType = inputType
		idx++
	}
	if idx != numIn {
		return fmt.Errorf("unsupported handler signature %s", fnType)
	}

	switch fnType.NumOut() {
	case 1:
		if !fnType.Out(0).Implements(errType) {
			return fmt.Errorf("single return value must be error")
		}
	case 2:
		if !fnType.Out(1).Implements(errType) {
			return fmt.Errorf("second return value must be error")
		}
		a.hasResult = true
		a.outputType = fnType.Out(0)
	default:
		return fmt.Errorf("handler must return (result, error) or error, got %d return values", fnType.NumOut())
	}

	if a.hasInput {
		in, err := schema.Input(a.inputType)
		if err != nil {
			return fmt.Errorf("derive input schema: %w", err)
		}
		a.inputSchema = in
		a.params = paramsFromStruct(a.inputType)
		if a.inputSchema != nil {
			a.defaults = schemaDefaults(a.inputSchema)
		}
	}

	// A result typed as `any` carries no structural information, which is
	// the same as declaring no result type at all.
	if a.hasResult && a.outputType != anyType {
		out, err := schema.Output(a.outputType)
		if err != nil {
			return fmt.Errorf("derive output schema: %w", err)
		}
		a.outputSchema = out
	}

	a.handler = fn
	return nil
}

// Execute validates the raw arguments against the derived input schema and
// invokes the handler. Validation failures are returned as *protocol.Error
// before the handler runs; errors returned by the handler itself come back
// unwrapped so callers can report them as a handler-level outcome.
func (a *Action) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var args []reflect.Value
	if a.hasContext {
		args = append(args, reflect.ValueOf(ctx))
	}

	if a.hasInput {
		// Absent or null arguments mean "no arguments"; treating them as an
		// empty object lets required-field validation run against them.
		if len(input) == 0 || string(input) == "null" {
			input = json.RawMessage(`{}`)
		}
		if len(a.defaults) > 0 {
			input = mergeDefaults(input, a.defaults)
		}
		if a.inputSchema != nil {
			if err := a.inputSchema.Validate(input); err != nil {
				return nil, protocol.NewInvalidParams(fmt.Sprintf("invalid arguments: %v", err))
			}
		}

		inputPtr := reflect.New(a.inputType)
		if err := json.Unmarshal(input, inputPtr.Interface()); err != nil {
			return nil, protocol.NewInvalidParams(fmt.Sprintf("failed to parse arguments: %v", err))
		}
		if a.inputIsPtr {
			args = append(args, inputPtr)
		} else {
			args = append(args, inputPtr.Elem())
		}
	}

	results := a.handler.Call(args)

	errVal := results[len(results)-1].Interface()
	if errVal != nil {
		return nil, errVal.(error)
	}

	if a.hasResult {
		return results[0].Interface(), nil
	}
	return nil, nil
}

// schemaDefaults collects the declared default for each optional property,
// keyed by wire name. Returns nil when no property declares one.
func schemaDefaults(s *schema.Schema) map[string]any {
	var defaults map[string]any
	for name, prop := range s.Properties {
		if prop.Default == nil {
			continue
		}
		if defaults == nil {
			defaults = make(map[string]any)
		}
		defaults[name] = prop.Default
	}
	return defaults
}

// mergeDefaults fills omitted optional arguments with their declared
// defaults so the handler sees them materialized rather than zero-valued.
// Malformed input is returned untouched for validation to reject.
func mergeDefaults(input json.RawMessage, defaults map[string]any) json.RawMessage {
	var args map[string]any
	if err := json.Unmarshal(input, &args); err != nil {
		return input
	}
	if args == nil {
		args = make(map[string]any, len(defaults))
	}
	changed := false
	for name, val := range defaults {
		if _, ok := args[name]; !ok {
			args[name] = val
			changed = true
		}
	}
	if !changed {
		return input
	}
	merged, err := json.Marshal(args)
	if err != nil {
		return input
	}
	return merged
}

// meta builds the introspection entry for this action.
func (a *Action) meta() MethodMeta {
	return MethodMeta{
		Name:       a.name,
		Category:   CategoryAction,
		Params:     a.params,
		ReturnType: wireTypeName(a.outputType),
		Doc:        a.description,
	}
}
