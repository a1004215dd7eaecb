package skillrpc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/skillwire/skillrpc/middleware"
	"github.com/skillwire/skillrpc/protocol"
	"github.com/skillwire/skillrpc/server"
)

// requestHandler adapts a Server to the Handler boundary. It owns the
// protocol state machine: requests other than initialize, the initialized
// notification, and server/introspect are rejected until the handshake
// completes.
type requestHandler struct {
	srv        *Server
	handleFunc middleware.HandlerFunc

	mu          sync.Mutex
	initialized bool
}

// NewHandler wraps a server in the protocol dispatcher, applying any
// configured middleware around the method router.
func NewHandler(srv *Server, opts ...ServeOption) Handler {
	options := &serveOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger != nil && len(options.middleware) == 0 {
		options.middleware = middleware.DefaultStack(options.logger)
	}

	h := &requestHandler{srv: srv}

	// A panicking handler must never escape the dispatcher, so the router
	// is always wrapped in Recover regardless of configured middleware.
	baseHandler := middleware.Recover()(middleware.HandlerFunc(h.handle))
	if len(options.middleware) > 0 {
		h.handleFunc = middleware.Chain(options.middleware...)(baseHandler)
	} else {
		h.handleFunc = baseHandler
	}

	return h
}

// HandleRequest dispatches one decoded request. Errors from the router are
// folded into an error response echoing the request ID; notifications
// produce no response at all, successful or not.
func (h *requestHandler) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	resp, err := h.handleFunc(ctx, req)

	if req.IsNotification() {
		return nil, nil
	}

	if err != nil {
		var pErr *protocol.Error
		if !errors.As(err, &pErr) {
			pErr = protocol.NewInternalError(err.Error())
		}
		return protocol.NewErrorResponse(req.ID, pErr), nil
	}
	return resp, nil
}

// HandleMessage decodes a raw JSON message, dispatches it through the
// handler, and encodes the response. A malformed message yields a parse
// error response with a null ID; notifications yield nil.
func HandleMessage(ctx context.Context, h Handler, data []byte) ([]byte, error) {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		resp := protocol.NewErrorResponse(nil, protocol.NewParseError(err.Error()))
		return json.Marshal(resp)
	}

	resp, err := h.HandleRequest(ctx, &req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return json.Marshal(resp)
}

func (h *requestHandler) handle(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if req.JSONRPC != protocol.JSONRPCVersion {
		return nil, protocol.NewInvalidRequest("unsupported jsonrpc version: " + req.JSONRPC)
	}

	switch req.Method {
	case protocol.MethodInitialize:
		return h.handleInitialize(req)
	case protocol.MethodInitialized:
		h.mu.Lock()
		h.initialized = true
		h.mu.Unlock()
		return nil, nil
	case protocol.MethodIntrospect:
		// Introspection is part of discovery and works before the handshake.
		return protocol.NewResponse(req.ID, h.srv.Introspect()), nil
	}

	h.mu.Lock()
	ready := h.initialized
	h.mu.Unlock()
	if !ready {
		if req.IsNotification() {
			return nil, nil
		}
		return nil, protocol.NewNotInitialized(req.Method)
	}

	switch req.Method {
	case protocol.MethodToolsList:
		return h.handleToolsList(req)
	case protocol.MethodToolsCall:
		return h.handleToolsCall(ctx, req)
	case protocol.MethodResourcesList:
		return h.handleResourcesList(req)
	case protocol.MethodResourcesRead:
		return h.handleResourcesRead(ctx, req)
	case protocol.MethodPromptsList:
		return h.handlePromptsList(req)
	case protocol.MethodPromptsGet:
		return h.handlePromptsGet(ctx, req)
	default:
		if req.IsNotification() {
			return nil, nil
		}
		return nil, protocol.NewMethodNotFound(req.Method)
	}
}

// handleInitialize negotiates the protocol version and returns the server
// manifest. A version mismatch leaves the state machine untouched so the
// client can retry with a supported version.
func (h *requestHandler) handleInitialize(req *protocol.Request) (*protocol.Response, error) {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, protocol.NewInvalidParams(err.Error())
		}
	}

	if params.ProtocolVersion != protocol.Version {
		return nil, protocol.NewVersionMismatch(params.ProtocolVersion)
	}

	manifest := h.srv.Manifest()

	capabilities := make(map[string]any)
	if manifest.Capabilities.Tools {
		capabilities["tools"] = map[string]any{}
	}
	if manifest.Capabilities.Resources {
		capabilities["resources"] = map[string]any{}
	}
	if manifest.Capabilities.Prompts {
		capabilities["prompts"] = map[string]any{}
	}

	result := map[string]any{
		"protocolVersion": manifest.ProtocolVersion,
		"serverInfo": map[string]any{
			"name":    manifest.Name,
			"version": manifest.Version,
		},
		"capabilities": capabilities,
	}

	return protocol.NewResponse(req.ID, result), nil
}

func (h *requestHandler) handleToolsList(req *protocol.Request) (*protocol.Response, error) {
	actions := h.srv.Actions()

	toolList := make([]map[string]any, 0, len(actions))
	for _, a := range actions {
		item := map[string]any{
			"name":        a.Name,
			"description": a.Description,
			"inputSchema": a.InputSchema,
		}
		if a.OutputSchema != nil {
			item["outputSchema"] = a.OutputSchema
		}
		toolList = append(toolList, item)
	}

	return protocol.NewResponse(req.ID, map[string]any{"tools": toolList}), nil
}

func (h *requestHandler) handleToolsCall(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	action, ok := h.srv.GetAction(params.Name)
	if !ok {
		return nil, protocol.NewNotFound("action not found: " + params.Name)
	}

	result, err := action.Execute(ctx, params.Arguments)
	if err != nil {
		// Validation and other protocol errors surface as error responses;
		// failures inside the handler come back as error-flagged results.
		var pErr *protocol.Error
		if errors.As(err, &pErr) {
			return nil, pErr
		}
		return protocol.NewResponse(req.ID, server.ErrorResult(err.Error())), nil
	}

	// An unsupported return shape is a handler defect, not a protocol
	// fault, so it surfaces the same way a returned handler error does.
	payload, err := server.NormalizeActionResult(action, result)
	if err != nil {
		return protocol.NewResponse(req.ID, server.ErrorResult(err.Error())), nil
	}
	return protocol.NewResponse(req.ID, payload), nil
}

func (h *requestHandler) handleResourcesList(req *protocol.Request) (*protocol.Response, error) {
	resources := h.srv.Resources()

	resourceList := make([]map[string]any, 0, len(resources))
	for _, r := range resources {
		item := map[string]any{
			"uri":  r.URITemplate,
			"name": r.Name,
		}
		if r.Description != "" {
			item["description"] = r.Description
		}
		if r.MimeType != "" {
			item["mimeType"] = r.MimeType
		}
		resourceList = append(resourceList, item)
	}

	return protocol.NewResponse(req.ID, map[string]any{"resources": resourceList}), nil
}

func (h *requestHandler) handleResourcesRead(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var params struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	resource, templParams, ok := h.srv.FindResourceForURI(params.URI)
	if !ok {
		return nil, protocol.NewNotFound("resource not found: " + params.URI)
	}

	value, err := resource.Read(ctx, params.URI, templParams)
	if err != nil {
		var pErr *protocol.Error
		if errors.As(err, &pErr) {
			return nil, pErr
		}
		return protocol.NewResponse(req.ID, server.ErrorResult(err.Error())), nil
	}

	content, err := server.NormalizeResourceContent(value, params.URI, resource.MimeType(), resource.Description())
	if err != nil {
		return protocol.NewResponse(req.ID, server.ErrorResult(err.Error())), nil
	}

	return protocol.NewResponse(req.ID, map[string]any{
		"contents": []map[string]any{content},
	}), nil
}

func (h *requestHandler) handlePromptsList(req *protocol.Request) (*protocol.Response, error) {
	prompts := h.srv.Prompts()

	promptList := make([]map[string]any, 0, len(prompts))
	for _, p := range prompts {
		item := map[string]any{
			"name": p.Name,
		}
		if p.Description != "" {
			item["description"] = p.Description
		}
		if len(p.Arguments) > 0 {
			args := make([]map[string]any, 0, len(p.Arguments))
			for _, arg := range p.Arguments {
				argItem := map[string]any{
					"name":     arg.Name,
					"required": arg.Required,
				}
				if arg.Description != "" {
					argItem["description"] = arg.Description
				}
				args = append(args, argItem)
			}
			item["arguments"] = args
		}
		promptList = append(promptList, item)
	}

	return protocol.NewResponse(req.ID, map[string]any{"prompts": promptList}), nil
}

func (h *requestHandler) handlePromptsGet(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var params struct {
		Name      string            `json:"name"`
		Arguments map[string]string `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	prompt, ok := h.srv.GetPrompt(params.Name)
	if !ok {
		return nil, protocol.NewNotFound("prompt not found: " + params.Name)
	}

	value, err := prompt.Get(ctx, params.Arguments)
	if err != nil {
		var pErr *protocol.Error
		if errors.As(err, &pErr) {
			return nil, pErr
		}
		return protocol.NewResponse(req.ID, server.ErrorResult(err.Error())), nil
	}

	payload, err := server.NormalizePrompt(value, prompt.Name(), prompt.Description())
	if err != nil {
		return protocol.NewResponse(req.ID, server.ErrorResult(err.Error())), nil
	}
	return protocol.NewResponse(req.ID, payload), nil
}
