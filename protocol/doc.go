// Package protocol defines the skillrpc JSON-RPC 2.0 message types and error codes.
//
// This package provides the low-level protocol structures used by skillrpc.
// Most users should use the higher-level skillrpc package instead.
//
// # Request and Response Types
//
// The package defines the core JSON-RPC 2.0 message types:
//
//	type Request struct {
//	    JSONRPC string          `json:"jsonrpc"`
//	    ID      json.RawMessage `json:"id,omitempty"`
//	    Method  string          `json:"method"`
//	    Params  json.RawMessage `json:"params,omitempty"`
//	}
//
//	type Response struct {
//	    JSONRPC string      `json:"jsonrpc"`
//	    ID      json.RawMessage `json:"id,omitempty"`
//	    Result  any         `json:"result,omitempty"`
//	    Error   *Error      `json:"error,omitempty"`
//	}
//
// A Request without an ID is a notification: it never produces a Response.
//
// # Error Codes
//
// Standard JSON-RPC 2.0 error codes are defined as constants:
//
//	CodeParseError     = -32700  // Invalid JSON
//	CodeInvalidRequest = -32600  // Invalid Request object
//	CodeMethodNotFound = -32601  // Method not found
//	CodeInvalidParams  = -32602  // Invalid method parameters
//	CodeInternalError  = -32603  // Internal server error
//
// skillrpc-specific codes cover the capability and handshake layer:
//
//	CodeNotFound        = -32001  // Unknown action, resource URI, or prompt
//	CodeNotInitialized  = -32002  // Capability method before handshake completion
//	CodeVersionMismatch = -32003  // Unsupported protocol version in initialize
//	CodeRateLimited     = -32004  // Request rejected by rate limiting middleware
//
// Helper functions create properly formatted errors:
//
//	err := protocol.NewMethodNotFound("unknown/method")
//	err := protocol.NewInvalidParams("missing required field: name")
//
// # RPC Method Constants
//
// The full method surface is defined as constants:
//
//	MethodInitialize    = "initialize"
//	MethodInitialized   = "initialized"
//	MethodIntrospect    = "server/introspect"
//	MethodToolsList     = "tools/list"
//	MethodToolsCall     = "tools/call"
//	MethodResourcesList = "resources/list"
//	MethodResourcesRead = "resources/read"
//	MethodPromptsList   = "prompts/list"
//	MethodPromptsGet    = "prompts/get"
package protocol
