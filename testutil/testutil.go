// Package testutil provides testing utilities for skillrpc servers.
//
// The package helps developers write tests for their servers through an
// in-memory test client that performs the initialize handshake up front
// and exposes one helper per protocol method.
//
// Example usage:
//
//	func TestMyServer(t *testing.T) {
//	    srv := skillrpc.NewServer(skillrpc.ServerInfo{Name: "test", Version: "1.0.0"})
//	    srv.Action("greet").Handler(func(ctx context.Context, input GreetInput) (string, error) {
//	        return "Hello, " + input.Name, nil
//	    })
//
//	    tc := testutil.NewTestClient(t, srv)
//	    defer tc.Close()
//
//	    text, err := tc.CallAction("greet", map[string]any{"name": "World"})
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	}
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/skillwire/skillrpc"
	"github.com/skillwire/skillrpc/protocol"
)

// TestClient is an in-memory client for exercising a skillrpc server
// without a transport.
type TestClient struct {
	t       testing.TB
	handler skillrpc.Handler

	mu    sync.Mutex
	reqID int64
}

// NewTestClient creates a test client for the given server and completes
// the initialize handshake so capability methods are immediately usable.
func NewTestClient(t testing.TB, srv *skillrpc.Server, opts ...skillrpc.ServeOption) *TestClient {
	t.Helper()

	tc := &TestClient{
		t:       t,
		handler: skillrpc.NewHandler(srv, opts...),
	}

	if _, err := tc.Initialize(); err != nil {
		t.Fatalf("failed to initialize server: %v", err)
	}
	tc.Initialized()

	return tc
}

// NewTestClientWithHandler creates a test client around a prebuilt handler
// without performing the handshake. This is useful for testing middleware
// and the handshake sequence itself.
func NewTestClientWithHandler(t testing.TB, handler skillrpc.Handler) *TestClient {
	t.Helper()
	return &TestClient{
		t:       t,
		handler: handler,
	}
}

// Close releases the client. The in-memory client holds no resources; the
// method exists so tests read the same as against a real transport.
func (tc *TestClient) Close() {}

func (tc *TestClient) nextID() json.RawMessage {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.reqID++
	return json.RawMessage(fmt.Sprintf("%d", tc.reqID))
}

// SendRequest sends a request and returns the response.
func (tc *TestClient) SendRequest(method string, params any) (*protocol.Response, error) {
	tc.t.Helper()

	var paramsData json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		paramsData = data
	}

	req := &protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      tc.nextID(),
		Method:  method,
		Params:  paramsData,
	}

	return tc.handler.HandleRequest(context.Background(), req)
}

// SendNotification sends a notification; no response is expected.
func (tc *TestClient) SendNotification(method string) error {
	tc.t.Helper()

	req := &protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		Method:  method,
	}
	resp, err := tc.handler.HandleRequest(context.Background(), req)
	if err != nil {
		return err
	}
	if resp != nil {
		return fmt.Errorf("notification %s produced a response", method)
	}
	return nil
}

// Initialize sends an initialize request with the supported protocol
// version.
func (tc *TestClient) Initialize() (map[string]any, error) {
	tc.t.Helper()

	resp, err := tc.SendRequest(protocol.MethodInitialize, map[string]any{
		"protocolVersion": protocol.Version,
		"clientInfo": map[string]any{
			"name":    "test-client",
			"version": "1.0.0",
		},
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", resp.Result)
	}
	return result, nil
}

// Initialized sends the initialized notification, completing the handshake.
func (tc *TestClient) Initialized() {
	tc.t.Helper()
	if err := tc.SendNotification(protocol.MethodInitialized); err != nil {
		tc.t.Fatalf("initialized notification failed: %v", err)
	}
}

// Introspect returns the server/introspect payload as a map.
func (tc *TestClient) Introspect() (map[string]any, error) {
	tc.t.Helper()

	resp, err := tc.SendRequest(protocol.MethodIntrospect, nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	// The dispatcher returns a typed struct; round-trip through JSON so
	// callers get the same shape a wire client would see.
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListActions lists all available actions.
func (tc *TestClient) ListActions() ([]map[string]any, error) {
	tc.t.Helper()
	return tc.listField(protocol.MethodToolsList, "tools")
}

// CallAction calls an action and returns the text of its first content
// item.
func (tc *TestClient) CallAction(name string, args any) (string, error) {
	tc.t.Helper()

	resp, err := tc.CallActionRaw(name, args)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return "", fmt.Errorf("unexpected result type: %T", resp.Result)
	}

	first, err := firstItem(result["content"])
	if err != nil {
		return "", err
	}
	text, _ := first["text"].(string)
	return text, nil
}

// CallActionRaw calls an action and returns the raw response.
func (tc *TestClient) CallActionRaw(name string, args any) (*protocol.Response, error) {
	tc.t.Helper()

	return tc.SendRequest(protocol.MethodToolsCall, map[string]any{
		"name":      name,
		"arguments": args,
	})
}

// ListResources lists all available resources.
func (tc *TestClient) ListResources() ([]map[string]any, error) {
	tc.t.Helper()
	return tc.listField(protocol.MethodResourcesList, "resources")
}

// ReadResource reads a resource by URI and returns its text content.
func (tc *TestClient) ReadResource(uri string) (string, error) {
	tc.t.Helper()

	resp, err := tc.SendRequest(protocol.MethodResourcesRead, map[string]any{
		"uri": uri,
	})
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return "", fmt.Errorf("unexpected result type: %T", resp.Result)
	}

	first, err := firstItem(result["contents"])
	if err != nil {
		return "", err
	}
	text, _ := first["text"].(string)
	return text, nil
}

// ListPrompts lists all available prompts.
func (tc *TestClient) ListPrompts() ([]map[string]any, error) {
	tc.t.Helper()
	return tc.listField(protocol.MethodPromptsList, "prompts")
}

// GetPrompt gets a prompt by name with the given arguments.
func (tc *TestClient) GetPrompt(name string, args map[string]string) (map[string]any, error) {
	tc.t.Helper()

	resp, err := tc.SendRequest(protocol.MethodPromptsGet, map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", resp.Result)
	}
	return result, nil
}

// listField sends a list request and extracts the named slice field.
func (tc *TestClient) listField(method, field string) ([]map[string]any, error) {
	resp, err := tc.SendRequest(method, nil)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", resp.Result)
	}

	// Handle both []any (from JSON) and []map[string]any (from direct call)
	switch v := result[field].(type) {
	case []any:
		items := make([]map[string]any, len(v))
		for i, item := range v {
			items[i], _ = item.(map[string]any)
		}
		return items, nil
	case []map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("unexpected %s type: %T", field, result[field])
	}
}

func firstItem(value any) (map[string]any, error) {
	switch v := value.(type) {
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty content array")
		}
		first, _ := v[0].(map[string]any)
		if first == nil {
			return nil, fmt.Errorf("nil content item")
		}
		return first, nil
	case []map[string]any:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty content array")
		}
		return v[0], nil
	default:
		return nil, fmt.Errorf("unexpected content type: %T", value)
	}
}
