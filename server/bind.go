package server

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

const (
	resourceMethodPrefix = "Resource"
	promptMethodPrefix   = "Prompt"
	docsMethodName       = "ServiceDocs"
)

// serviceShapes caches the classification of each concrete service type.
// Classification inspects signatures and derives schemas, so it runs once
// per type; binding an instance only has to attach method values.
var serviceShapes sync.Map // reflect.Type -> *serviceShape

type serviceShape struct {
	actions   []actionShape
	resources []resourceShape
	prompts   []promptShape
	err       error
}

type actionShape struct {
	methodIndex int
	name        string
}

type resourceShape struct {
	methodIndex int
	template    string
	param       string // empty for static resources

	hasCtx    bool
	argType   reflect.Type // nil, string kind, or struct
	argIsPtr  bool
	fieldName string // json name of the single struct field, if argType is a struct
}

type promptShape struct {
	methodIndex int
	name        string

	hasCtx    bool
	argsType  reflect.Type // nil when the method takes no args struct
	argsIsPtr bool
	arguments []PromptArgument
	defaults  map[string]any
}

// Bind registers every exported method of service, classified by naming
// convention:
//
//   - Resource<Slug> becomes a readable resource at res://<slug> (or
//     res://<slug>/{param} when the method takes one parameter)
//   - Prompt<Slug> becomes a prompt template named <slug>
//   - every other exported method becomes an action named by its
//     snake_case method name
//
// Accepted method shapes are func([ctx,] [args]) ([R,] error); resource and
// prompt methods must return a value. A method fitting no accepted shape is
// a bind error naming the method. An optional ServiceDocs method returning
// map[string]string supplies per-method doc summaries keyed by Go method
// name.
func (s *Server) Bind(service any) error {
	v := reflect.ValueOf(service)
	if !v.IsValid() {
		return fmt.Errorf("bind: service must not be nil")
	}
	t := v.Type()

	shape := classifyService(t)
	if shape.err != nil {
		return shape.err
	}

	docs := serviceDocs(v)

	for _, as := range shape.actions {
		b := s.Action(as.name).
			Description(docs[t.Method(as.methodIndex).Name]).
			Handler(v.Method(as.methodIndex).Interface())
		if err := b.Err(); err != nil {
			return fmt.Errorf("bind %s.%s: %w", t.String(), t.Method(as.methodIndex).Name, err)
		}
	}

	for _, rs := range shape.resources {
		b := s.Resource(rs.template).
			Description(docs[t.Method(rs.methodIndex).Name]).
			Handler(resourceClosure(v.Method(rs.methodIndex), rs))
		if err := b.Err(); err != nil {
			return fmt.Errorf("bind %s.%s: %w", t.String(), t.Method(rs.methodIndex).Name, err)
		}
	}

	for _, ps := range shape.prompts {
		pb := s.Prompt(ps.name).
			Description(docs[t.Method(ps.methodIndex).Name])
		for _, arg := range ps.arguments {
			pb = pb.Argument(arg.Name, arg.Description, arg.Required)
		}
		b := pb.Handler(promptClosure(v.Method(ps.methodIndex), ps))
		if err := b.Err(); err != nil {
			return fmt.Errorf("bind %s.%s: %w", t.String(), t.Method(ps.methodIndex).Name, err)
		}
	}

	return nil
}

// serviceDocs collects per-method doc summaries from an optional
// ServiceDocs method. Services without one get empty descriptions.
func serviceDocs(v reflect.Value) map[string]string {
	m := v.MethodByName(docsMethodName)
	if !m.IsValid() {
		return nil
	}
	fn, ok := m.Interface().(func() map[string]string)
	if !ok {
		return nil
	}
	return fn()
}

// classifyService partitions the exported methods of t into the three
// capability categories. Every exported method lands in exactly one
// category; the first method that fits no accepted shape poisons the
// cached entry with a bind error.
func classifyService(t reflect.Type) *serviceShape {
	if cached, ok := serviceShapes.Load(t); ok {
		return cached.(*serviceShape)
	}

	shape := &serviceShape{}
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if m.Name == docsMethodName {
			continue
		}

		switch {
		case strings.HasPrefix(m.Name, resourceMethodPrefix) && len(m.Name) > len(resourceMethodPrefix):
			rs, err := classifyResource(m, i)
			if err != nil {
				shape.err = fmt.Errorf("bind %s.%s: %w", t.String(), m.Name, err)
			} else {
				shape.resources = append(shape.resources, rs)
			}
		case strings.HasPrefix(m.Name, promptMethodPrefix) && len(m.Name) > len(promptMethodPrefix):
			ps, err := classifyPrompt(m, i)
			if err != nil {
				shape.err = fmt.Errorf("bind %s.%s: %w", t.String(), m.Name, err)
			} else {
				shape.prompts = append(shape.prompts, ps)
			}
		default:
			shape.actions = append(shape.actions, actionShape{
				methodIndex: i,
				name:        camelToSnake(m.Name),
			})
		}
		if shape.err != nil {
			break
		}
	}

	serviceShapes.Store(t, shape)
	return shape
}

func classifyResource(m reflect.Method, index int) (resourceShape, error) {
	rs := resourceShape{methodIndex: index}
	slug := camelToSnake(strings.TrimPrefix(m.Name, resourceMethodPrefix))

	hasCtx, argType, argIsPtr, err := splitBoundSig(m.Type)
	if err != nil {
		return rs, err
	}
	if m.Type.NumOut() != 2 {
		return rs, fmt.Errorf("resource method must return (value, error)")
	}
	rs.hasCtx = hasCtx
	rs.argType = argType
	rs.argIsPtr = argIsPtr

	switch {
	case argType == nil:
		rs.template = "res://" + slug

	case argType.Kind() == reflect.String:
		if argIsPtr {
			return rs, fmt.Errorf("resource parameter must not be a string pointer")
		}
		rs.param = "id"
		rs.template = "res://" + slug + "/{id}"

	case argType.Kind() == reflect.Struct:
		field, ok := singleStringField(argType)
		if !ok {
			return rs, fmt.Errorf("resource args struct must have exactly one string field")
		}
		rs.fieldName = field
		rs.param = field
		rs.template = "res://" + slug + "/{" + field + "}"

	default:
		return rs, fmt.Errorf("resource parameter must be a string or a single-string-field struct, got %s", argType)
	}

	return rs, nil
}

func classifyPrompt(m reflect.Method, index int) (promptShape, error) {
	ps := promptShape{
		methodIndex: index,
		name:        camelToSnake(strings.TrimPrefix(m.Name, promptMethodPrefix)),
	}

	hasCtx, argsType, argsIsPtr, err := splitBoundSig(m.Type)
	if err != nil {
		return ps, err
	}
	if m.Type.NumOut() != 2 {
		return ps, fmt.Errorf("prompt method must return (value, error)")
	}
	ps.hasCtx = hasCtx
	ps.argsIsPtr = argsIsPtr

	if argsType != nil {
		if argsType.Kind() != reflect.Struct {
			return ps, fmt.Errorf("prompt arguments must be a struct, got %s", argsType)
		}
		for i := 0; i < argsType.NumField(); i++ {
			f := argsType.Field(i)
			if f.IsExported() && f.Type.Kind() != reflect.String {
				return ps, fmt.Errorf("prompt argument %s must be a string", f.Name)
			}
		}
		ps.argsType = argsType

		ps.defaults = make(map[string]any)
		for _, p := range paramsFromStruct(argsType) {
			ps.arguments = append(ps.arguments, PromptArgument{
				Name:     p.Name,
				Required: p.Required,
			})
			if p.Default != nil {
				ps.defaults[p.Name] = p.Default
			}
		}
	}

	return ps, nil
}

// splitBoundSig decomposes a method type (receiver included) into an
// optional leading context and at most one argument. Output arity is
// checked by the caller since actions and the other categories differ.
func splitBoundSig(fn reflect.Type) (hasCtx bool, argType reflect.Type, argIsPtr bool, err error) {
	idx := 1 // skip receiver
	numIn := fn.NumIn()

	if idx < numIn && fn.In(idx) == ctxType {
		hasCtx = true
		idx++
	}
	if idx < numIn {
		argType = fn.In(idx)
		if argType.Kind() == reflect.Ptr {
			argIsPtr = true
			argType = argType.Elem()
		}
		idx++
	}
	if idx != numIn {
		return false, nil, false, fmt.Errorf("unsupported signature %s", fn)
	}

	switch fn.NumOut() {
	case 1:
		if !fn.Out(0).Implements(errType) {
			return false, nil, false, fmt.Errorf("single return value must be error")
		}
	case 2:
		if !fn.Out(1).Implements(errType) {
			return false, nil, false, fmt.Errorf("second return value must be error")
		}
	default:
		return false, nil, false, fmt.Errorf("method must return (value, error) or error, got %d return values", fn.NumOut())
	}

	return hasCtx, argType, argIsPtr, nil
}

// singleStringField returns the json name of t's only exported field when
// that field is a string.
func singleStringField(t reflect.Type) (string, bool) {
	name := ""
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if name != "" || f.Type.Kind() != reflect.String {
			return "", false
		}
		name = f.Name
		if tag := strings.Split(f.Tag.Get("json"), ",")[0]; tag != "" && tag != "-" {
			name = tag
		}
	}
	return name, name != ""
}

func resourceClosure(fn reflect.Value, rs resourceShape) ResourceHandler {
	return func(ctx context.Context, uri string, params map[string]string) (any, error) {
		var args []reflect.Value
		if rs.hasCtx {
			args = append(args, reflect.ValueOf(ctx))
		}

		switch {
		case rs.argType == nil:
			// static resource, no parameter

		case rs.argType.Kind() == reflect.String:
			args = append(args, reflect.ValueOf(params[rs.param]).Convert(rs.argType))

		default:
			ptr := reflect.New(rs.argType)
			field := ptr.Elem().Field(structFieldIndex(rs.argType, rs.fieldName))
			field.SetString(params[rs.param])
			if rs.argIsPtr {
				args = append(args, ptr)
			} else {
				args = append(args, ptr.Elem())
			}
		}

		out := fn.Call(args)
		if errVal := out[1].Interface(); errVal != nil {
			return nil, errVal.(error)
		}
		return out[0].Interface(), nil
	}
}

func promptClosure(fn reflect.Value, ps promptShape) PromptHandler {
	return func(ctx context.Context, args map[string]string) (any, error) {
		var callArgs []reflect.Value
		if ps.hasCtx {
			callArgs = append(callArgs, reflect.ValueOf(ctx))
		}

		if ps.argsType != nil {
			payload := make(map[string]any, len(args)+len(ps.defaults))
			for k, v := range ps.defaults {
				payload[k] = v
			}
			for k, v := range args {
				payload[k] = v
			}
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("encode prompt arguments: %w", err)
			}

			ptr := reflect.New(ps.argsType)
			if err := json.Unmarshal(data, ptr.Interface()); err != nil {
				return nil, fmt.Errorf("decode prompt arguments: %w", err)
			}
			if ps.argsIsPtr {
				callArgs = append(callArgs, ptr)
			} else {
				callArgs = append(callArgs, ptr.Elem())
			}
		}

		out := fn.Call(callArgs)
		if errVal := out[1].Interface(); errVal != nil {
			return nil, errVal.(error)
		}
		return out[0].Interface(), nil
	}
}

// structFieldIndex resolves the field index behind a json name produced by
// singleStringField.
func structFieldIndex(t reflect.Type, jsonName string) int {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag := strings.Split(f.Tag.Get("json"), ",")[0]; tag != "" && tag != "-" {
			name = tag
		}
		if name == jsonName {
			return i
		}
	}
	return 0
}

// camelToSnake converts an exported Go method name to its wire name,
// treating runs of capitals as acronyms: RecipeBook -> recipe_book,
// HTTPStatus -> http_status.
func camelToSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (!unicode.IsUpper(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
