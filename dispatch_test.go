package skillrpc_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/skillwire/skillrpc"
	"github.com/skillwire/skillrpc/protocol"
)

type calcService struct{}

func (calcService) Add(args struct {
	A int `json:"a"`
	B int `json:"b"`
}) (int, error) {
	return args.A + args.B, nil
}

func (calcService) Divide(args struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}) (float64, error) {
	if args.B == 0 {
		return 0, errors.New("division by zero")
	}
	return args.A / args.B, nil
}

func (calcService) ResourceDoc(docID string) (string, error) {
	return "contents of " + docID, nil
}

func (calcService) PromptSummarize(args struct {
	Text string `json:"text"`
}) (string, error) {
	return "Summarize: " + args.Text, nil
}

func newTestServer(t *testing.T) *skillrpc.Server {
	t.Helper()
	srv := skillrpc.NewServer(skillrpc.ServerInfo{Name: "calc", Version: "1.0.0"})
	if err := srv.Bind(calcService{}); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	return srv
}

func call(t *testing.T, h skillrpc.Handler, id int, method string, params any) *protocol.Response {
	t.Helper()
	req := &protocol.Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(fmt.Sprintf("%d", id)),
		Method:  method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("marshal params: %v", err)
		}
		req.Params = raw
	}
	resp, err := h.HandleRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleRequest(%s) error = %v", method, err)
	}
	if resp == nil {
		t.Fatalf("HandleRequest(%s) returned no response", method)
	}
	return resp
}

func notify(t *testing.T, h skillrpc.Handler, method string) {
	t.Helper()
	req := &protocol.Request{JSONRPC: "2.0", Method: method}
	resp, err := h.HandleRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("notification %s error = %v", method, err)
	}
	if resp != nil {
		t.Fatalf("notification %s produced a response", method)
	}
}

func handshake(t *testing.T, h skillrpc.Handler) {
	t.Helper()
	resp := call(t, h, 1, "initialize", map[string]any{"protocolVersion": protocol.Version})
	if resp.Error != nil {
		t.Fatalf("initialize failed: %v", resp.Error)
	}
	notify(t, h, "initialized")
}

func TestHandshake(t *testing.T) {
	t.Run("requests are gated until handshake completes", func(t *testing.T) {
		gated := []string{
			"tools/list",
			"tools/call",
			"resources/list",
			"resources/read",
			"prompts/list",
			"prompts/get",
		}

		h := skillrpc.NewHandler(newTestServer(t))
		for i, method := range gated {
			resp := call(t, h, i+1, method, nil)
			if resp.Error == nil || resp.Error.Code != protocol.CodeNotInitialized {
				t.Fatalf("%s before handshake: error = %v, want code %d", method, resp.Error, protocol.CodeNotInitialized)
			}
		}

		handshake(t, h)

		resp := call(t, h, 10, "tools/list", nil)
		if resp.Error != nil {
			t.Fatalf("tools/list after handshake: %v", resp.Error)
		}
	})

	t.Run("initialize alone does not open the gate", func(t *testing.T) {
		h := skillrpc.NewHandler(newTestServer(t))

		resp := call(t, h, 1, "initialize", map[string]any{"protocolVersion": protocol.Version})
		if resp.Error != nil {
			t.Fatalf("initialize failed: %v", resp.Error)
		}

		resp = call(t, h, 2, "tools/list", nil)
		if resp.Error == nil || resp.Error.Code != protocol.CodeNotInitialized {
			t.Errorf("error = %v, want not-initialized before the notification", resp.Error)
		}
	})

	t.Run("version mismatch leaves state machine untouched", func(t *testing.T) {
		h := skillrpc.NewHandler(newTestServer(t))

		resp := call(t, h, 1, "initialize", map[string]any{"protocolVersion": "99.0.0"})
		if resp.Error == nil || resp.Error.Code != protocol.CodeVersionMismatch {
			t.Fatalf("error = %v, want code %d", resp.Error, protocol.CodeVersionMismatch)
		}

		// The client can retry with a supported version.
		resp = call(t, h, 2, "initialize", map[string]any{"protocolVersion": protocol.Version})
		if resp.Error != nil {
			t.Fatalf("retry initialize failed: %v", resp.Error)
		}
	})

	t.Run("initialize reports manifest", func(t *testing.T) {
		h := skillrpc.NewHandler(newTestServer(t))

		resp := call(t, h, 1, "initialize", map[string]any{"protocolVersion": protocol.Version})
		result := resp.Result.(map[string]any)

		if result["protocolVersion"] != protocol.Version {
			t.Errorf("protocolVersion = %v", result["protocolVersion"])
		}
		info := result["serverInfo"].(map[string]any)
		if info["name"] != "calc" {
			t.Errorf("serverInfo.name = %v", info["name"])
		}
		caps := result["capabilities"].(map[string]any)
		for _, key := range []string{"tools", "resources", "prompts"} {
			if _, ok := caps[key]; !ok {
				t.Errorf("capabilities missing %q", key)
			}
		}
	})

	t.Run("introspection works before handshake", func(t *testing.T) {
		h := skillrpc.NewHandler(newTestServer(t))

		resp := call(t, h, 1, "server/introspect", nil)
		if resp.Error != nil {
			t.Fatalf("server/introspect failed: %v", resp.Error)
		}
	})
}

func TestDispatch_Actions(t *testing.T) {
	h := skillrpc.NewHandler(newTestServer(t))
	handshake(t, h)

	t.Run("tools/list includes bound actions", func(t *testing.T) {
		resp := call(t, h, 1, "tools/list", nil)
		tools := resp.Result.(map[string]any)["tools"].([]map[string]any)
		if len(tools) != 2 {
			t.Fatalf("tools = %d, want 2", len(tools))
		}
	})

	t.Run("tools/call runs the action", func(t *testing.T) {
		resp := call(t, h, 2, "tools/call", map[string]any{
			"name":      "add",
			"arguments": map[string]any{"a": 2, "b": 3},
		})
		if resp.Error != nil {
			t.Fatalf("tools/call failed: %v", resp.Error)
		}

		result := resp.Result.(map[string]any)
		structured := result["structuredContent"].(map[string]any)
		if structured["result"] != 5 {
			t.Errorf("result = %v, want 5", structured["result"])
		}
		content := result["content"].([]map[string]any)
		if content[0]["text"] != `{"result":5}` {
			t.Errorf("text = %v", content[0]["text"])
		}
	})

	t.Run("unknown action is a not-found error", func(t *testing.T) {
		resp := call(t, h, 3, "tools/call", map[string]any{"name": "missing"})
		if resp.Error == nil || resp.Error.Code != protocol.CodeNotFound {
			t.Errorf("error = %v, want code %d", resp.Error, protocol.CodeNotFound)
		}
		if !strings.Contains(resp.Error.Message, "missing") {
			t.Errorf("message = %q, want action name included", resp.Error.Message)
		}
	})

	t.Run("invalid arguments are a protocol error", func(t *testing.T) {
		resp := call(t, h, 4, "tools/call", map[string]any{
			"name":      "add",
			"arguments": map[string]any{"a": 2},
		})
		if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
			t.Errorf("error = %v, want code %d", resp.Error, protocol.CodeInvalidParams)
		}
	})

	t.Run("null arguments fail required validation", func(t *testing.T) {
		resp := call(t, h, 6, "tools/call", map[string]any{
			"name":      "add",
			"arguments": nil,
		})
		if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
			t.Errorf("error = %v, want code %d", resp.Error, protocol.CodeInvalidParams)
		}
	})

	t.Run("handler failure is an error-flagged result", func(t *testing.T) {
		resp := call(t, h, 5, "tools/call", map[string]any{
			"name":      "divide",
			"arguments": map[string]any{"a": 1, "b": 0},
		})
		if resp.Error != nil {
			t.Fatalf("handler failure should not be a protocol error: %v", resp.Error)
		}

		result := resp.Result.(map[string]any)
		if result["isError"] != true {
			t.Error("expected isError flag")
		}
		content := result["content"].([]map[string]any)
		if content[0]["text"] != "division by zero" {
			t.Errorf("text = %v", content[0]["text"])
		}
	})
}

func TestDispatch_Resources(t *testing.T) {
	h := skillrpc.NewHandler(newTestServer(t))
	handshake(t, h)

	t.Run("resources/list includes bound resources", func(t *testing.T) {
		resp := call(t, h, 1, "resources/list", nil)
		resources := resp.Result.(map[string]any)["resources"].([]map[string]any)
		if len(resources) != 1 {
			t.Fatalf("resources = %d, want 1", len(resources))
		}
		if resources[0]["uri"] != "res://doc/{id}" {
			t.Errorf("uri = %v", resources[0]["uri"])
		}
	})

	t.Run("resources/read extracts the template parameter", func(t *testing.T) {
		resp := call(t, h, 2, "resources/read", map[string]any{"uri": "res://doc/alpha"})
		if resp.Error != nil {
			t.Fatalf("resources/read failed: %v", resp.Error)
		}

		contents := resp.Result.(map[string]any)["contents"].([]map[string]any)
		if contents[0]["text"] != "contents of alpha" {
			t.Errorf("text = %v", contents[0]["text"])
		}
		if contents[0]["uri"] != "res://doc/alpha" {
			t.Errorf("uri = %v", contents[0]["uri"])
		}
	})

	t.Run("unmatched URI is a not-found error", func(t *testing.T) {
		resp := call(t, h, 3, "resources/read", map[string]any{"uri": "res://doc/"})
		if resp.Error == nil || resp.Error.Code != protocol.CodeNotFound {
			t.Errorf("error = %v, want code %d", resp.Error, protocol.CodeNotFound)
		}
	})
}

func TestDispatch_Prompts(t *testing.T) {
	h := skillrpc.NewHandler(newTestServer(t))
	handshake(t, h)

	t.Run("prompts/get renders the prompt", func(t *testing.T) {
		resp := call(t, h, 1, "prompts/get", map[string]any{
			"name":      "summarize",
			"arguments": map[string]string{"text": "the report"},
		})
		if resp.Error != nil {
			t.Fatalf("prompts/get failed: %v", resp.Error)
		}

		result := resp.Result.(map[string]any)
		if result["format"] != "go-template" {
			t.Errorf("format = %v", result["format"])
		}
		if result["template"] != "Summarize: the report" {
			t.Errorf("template = %v", result["template"])
		}
	})

	t.Run("missing required argument is a protocol error", func(t *testing.T) {
		resp := call(t, h, 2, "prompts/get", map[string]any{"name": "summarize"})
		if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
			t.Errorf("error = %v, want code %d", resp.Error, protocol.CodeInvalidParams)
		}
	})

	t.Run("unknown prompt is a not-found error", func(t *testing.T) {
		resp := call(t, h, 3, "prompts/get", map[string]any{"name": "missing"})
		if resp.Error == nil || resp.Error.Code != protocol.CodeNotFound {
			t.Errorf("error = %v, want code %d", resp.Error, protocol.CodeNotFound)
		}
	})
}

func TestDispatch_UnsupportedReturnShapes(t *testing.T) {
	srv := skillrpc.NewServer(skillrpc.ServerInfo{Name: "calc", Version: "1.0.0"})
	srv.Action("emit").
		Handler(func() (any, error) {
			return make(chan int), nil
		})
	srv.Resource("res://counter").
		Handler(func(ctx context.Context, uri string, params map[string]string) (any, error) {
			return 42, nil
		})
	srv.Prompt("counter").
		Handler(func(ctx context.Context, args map[string]string) (any, error) {
			return 42, nil
		})

	h := skillrpc.NewHandler(srv)
	handshake(t, h)

	// A value the normalizer cannot shape is a handler defect and must come
	// back as an error-flagged result, not an envelope-level error.
	assertErrorResult := func(t *testing.T, resp *protocol.Response, want string) {
		t.Helper()
		if resp.Error != nil {
			t.Fatalf("unsupported return shape should not be a protocol error: %v", resp.Error)
		}
		result := resp.Result.(map[string]any)
		if result["isError"] != true {
			t.Error("expected isError flag")
		}
		content := result["content"].([]map[string]any)
		text, _ := content[0]["text"].(string)
		if !strings.Contains(text, want) {
			t.Errorf("text = %q, want mention of %q", text, want)
		}
	}

	t.Run("tools/call", func(t *testing.T) {
		resp := call(t, h, 1, "tools/call", map[string]any{"name": "emit"})
		assertErrorResult(t, resp, "unsupported type")
	})

	t.Run("resources/read", func(t *testing.T) {
		resp := call(t, h, 2, "resources/read", map[string]any{"uri": "res://counter"})
		assertErrorResult(t, resp, "unsupported resource return type int")
	})

	t.Run("prompts/get", func(t *testing.T) {
		resp := call(t, h, 3, "prompts/get", map[string]any{"name": "counter"})
		assertErrorResult(t, resp, "unsupported prompt return type int")
	})
}

func TestNewHandler_RecoversPanics(t *testing.T) {
	srv := skillrpc.NewServer(skillrpc.ServerInfo{Name: "calc", Version: "1.0.0"})
	srv.Action("explode").
		Handler(func() (string, error) {
			panic("boom")
		})

	// No options: the dispatcher must still contain the panic on its own.
	h := skillrpc.NewHandler(srv)
	handshake(t, h)

	resp := call(t, h, 1, "tools/call", map[string]any{"name": "explode"})
	if resp.Error == nil || resp.Error.Code != protocol.CodeInternalError {
		t.Fatalf("error = %v, want code %d", resp.Error, protocol.CodeInternalError)
	}
	if !strings.Contains(resp.Error.Message, "boom") {
		t.Errorf("message = %q, want panic value included", resp.Error.Message)
	}
}

func TestDispatch_Envelope(t *testing.T) {
	t.Run("unknown method", func(t *testing.T) {
		h := skillrpc.NewHandler(newTestServer(t))
		handshake(t, h)

		resp := call(t, h, 1, "no/such/method", nil)
		if resp.Error == nil || resp.Error.Code != protocol.CodeMethodNotFound {
			t.Errorf("error = %v, want code %d", resp.Error, protocol.CodeMethodNotFound)
		}
	})

	t.Run("unknown notification is consumed silently", func(t *testing.T) {
		h := skillrpc.NewHandler(newTestServer(t))
		handshake(t, h)
		notify(t, h, "no/such/notification")
	})

	t.Run("wrong jsonrpc version", func(t *testing.T) {
		h := skillrpc.NewHandler(newTestServer(t))

		req := &protocol.Request{JSONRPC: "1.0", ID: json.RawMessage(`1`), Method: "tools/list"}
		resp, err := h.HandleRequest(context.Background(), req)
		if err != nil {
			t.Fatalf("HandleRequest error = %v", err)
		}
		if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidRequest {
			t.Errorf("error = %v, want code %d", resp.Error, protocol.CodeInvalidRequest)
		}
	})

	t.Run("response echoes request id", func(t *testing.T) {
		h := skillrpc.NewHandler(newTestServer(t))

		resp := call(t, h, 42, "server/introspect", nil)
		if string(resp.ID) != "42" {
			t.Errorf("id = %s, want 42", resp.ID)
		}
	})
}

func TestHandleMessage(t *testing.T) {
	t.Run("parse error yields null id response", func(t *testing.T) {
		h := skillrpc.NewHandler(newTestServer(t))

		out, err := skillrpc.HandleMessage(context.Background(), h, []byte(`{not json`))
		if err != nil {
			t.Fatalf("HandleMessage error = %v", err)
		}

		var resp protocol.Response
		if err := json.Unmarshal(out, &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Error == nil || resp.Error.Code != protocol.CodeParseError {
			t.Errorf("error = %v, want code %d", resp.Error, protocol.CodeParseError)
		}
		if len(resp.ID) != 0 {
			t.Errorf("id = %s, want absent", resp.ID)
		}
	})

	t.Run("notification yields no bytes", func(t *testing.T) {
		h := skillrpc.NewHandler(newTestServer(t))

		out, err := skillrpc.HandleMessage(context.Background(), h, []byte(`{"jsonrpc":"2.0","method":"initialized"}`))
		if err != nil {
			t.Fatalf("HandleMessage error = %v", err)
		}
		if out != nil {
			t.Errorf("out = %s, want nil", out)
		}
	})
}

func TestServe_NilTransport(t *testing.T) {
	srv := skillrpc.NewServer(skillrpc.ServerInfo{Name: "calc", Version: "1.0.0"})
	if err := skillrpc.Serve(context.Background(), srv, nil); err == nil {
		t.Error("expected error for nil transport")
	}
}
