package server

import (
	"context"
	"reflect"
	"testing"

	"github.com/skillwire/skillrpc/protocol"
)

func TestIntrospect(t *testing.T) {
	srv := New(Info{Name: "library", Version: "2.1.0"})

	type AddArgs struct {
		A int `json:"a"`
		B int `json:"b" jsonschema:"default=1"`
	}
	srv.Action("add").
		Description("Add two integers").
		Handler(func(args AddArgs) (int, error) {
			return args.A + args.B, nil
		})
	srv.Resource("res://doc/{doc_id}").
		Handler(func(ctx context.Context, uri string, params map[string]string) (any, error) {
			return "", nil
		})
	srv.Prompt("summarize").
		Argument("text", "", true).
		Handler(func(ctx context.Context, args map[string]string) (any, error) {
			return "", nil
		})

	in := srv.Introspect()

	t.Run("reports server identity", func(t *testing.T) {
		if in.Server.Name != "library" || in.Server.Version != "2.1.0" {
			t.Errorf("server = %+v", in.Server)
		}
		if in.Server.ProtocolVersion != protocol.Version {
			t.Errorf("protocolVersion = %q, want %q", in.Server.ProtocolVersion, protocol.Version)
		}
	})

	t.Run("lists methods in registration order with categories", func(t *testing.T) {
		if len(in.Methods) != 3 {
			t.Fatalf("methods = %d, want 3", len(in.Methods))
		}

		add := in.Methods[0]
		if add.Name != "add" || add.Category != CategoryAction {
			t.Errorf("first method = %+v", add)
		}
		if add.Doc != "Add two integers" {
			t.Errorf("doc = %q", add.Doc)
		}
		if add.ReturnType != "integer" {
			t.Errorf("returnType = %q, want integer", add.ReturnType)
		}

		res := in.Methods[1]
		if res.Name != "res://doc/{doc_id}" || res.Category != CategoryResource {
			t.Errorf("second method = %+v", res)
		}
		if len(res.Params) != 1 || res.Params[0].Name != "doc_id" || !res.Params[0].Required {
			t.Errorf("resource params = %+v", res.Params)
		}

		prompt := in.Methods[2]
		if prompt.Name != "summarize" || prompt.Category != CategoryPrompt {
			t.Errorf("third method = %+v", prompt)
		}
	})

	t.Run("action params preserve declared field order", func(t *testing.T) {
		params := in.Methods[0].Params
		if len(params) != 2 {
			t.Fatalf("params = %+v", params)
		}
		if params[0].Name != "a" || !params[0].Required {
			t.Errorf("param a = %+v", params[0])
		}
		if params[1].Name != "b" || params[1].Required {
			t.Errorf("param b = %+v, want optional", params[1])
		}
		if params[1].Default != int64(1) {
			t.Errorf("param b default = %v (%T), want 1", params[1].Default, params[1].Default)
		}
	})
}

func TestWireTypeName(t *testing.T) {
	type payload struct{}

	tests := []struct {
		t    reflect.Type
		want string
	}{
		{nil, "void"},
		{reflect.TypeOf(""), "string"},
		{reflect.TypeOf(0), "integer"},
		{reflect.TypeOf(uint8(0)), "integer"},
		{reflect.TypeOf(0.5), "number"},
		{reflect.TypeOf(true), "boolean"},
		{reflect.TypeOf(payload{}), "object"},
		{reflect.TypeOf(&payload{}), "object"},
		{reflect.TypeOf(map[string]int{}), "object"},
		{reflect.TypeOf([]string{}), "array"},
		{reflect.TypeOf((*any)(nil)).Elem(), "any"},
	}

	for _, tt := range tests {
		if got := wireTypeName(tt.t); got != tt.want {
			t.Errorf("wireTypeName(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}
