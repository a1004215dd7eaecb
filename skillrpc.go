// Package skillrpc provides a framework for building reflection-driven RPC
// skill servers.
//
// A server exposes three capability categories derived from registered Go
// code: callable actions, URI-addressable readable resources, and named
// prompt templates. Handlers are plain Go functions; input and output
// schemas are derived from their signatures, and incoming arguments are
// validated against the derived schema before the handler runs.
//
// Basic usage:
//
//	srv := skillrpc.NewServer(skillrpc.ServerInfo{
//	    Name:    "library",
//	    Version: "1.0.0",
//	})
//
//	type AddArgs struct {
//	    A int `json:"a"`
//	    B int `json:"b"`
//	}
//
//	srv.Action("add").
//	    Description("Add two integers").
//	    Handler(func(ctx context.Context, args AddArgs) (int, error) {
//	        return args.A + args.B, nil
//	    })
//
//	skillrpc.Serve(ctx, srv, transport)
//
// Services can also be bound wholesale: every exported method of a value
// passed to srv.Bind is classified by naming convention (Resource* methods
// become readable resources, Prompt* methods become prompt templates, and
// everything else becomes an action).
package skillrpc

import (
	"context"
	"errors"
	"time"

	"github.com/skillwire/skillrpc/middleware"
	"github.com/skillwire/skillrpc/protocol"
	"github.com/skillwire/skillrpc/server"
)

// Re-export core types for convenience

// ServerInfo contains server metadata exposed to clients.
type ServerInfo = server.Info

// Capabilities declares which capability categories the server exposes.
type Capabilities = server.Capabilities

// Server is the skillrpc server instance.
type Server = server.Server

// Option configures a Server.
type Option = server.Option

// Resource types
type ResourceContent = server.ResourceContent
type ResourceInfo = server.ResourceInfo
type ResourceHandler = server.ResourceHandler

// Prompt types
type PromptResult = server.PromptResult
type PromptMessage = server.PromptMessage
type PromptArgument = server.PromptArgument
type PromptInfo = server.PromptInfo
type PromptHandler = server.PromptHandler
type TextContent = server.TextContent

// Introspection types
type MethodMeta = server.MethodMeta
type ParamMeta = server.ParamMeta

// Middleware types
type Middleware = middleware.Middleware
type MiddlewareHandlerFunc = middleware.HandlerFunc
type Logger = middleware.Logger
type LogField = middleware.Field
type RateLimitOption = middleware.RateLimitOption

// RateLimit re-exports for convenience.
var (
	RateLimit            = middleware.RateLimit
	RateLimitByMethod    = middleware.RateLimitByMethod
	RateLimitByClient    = middleware.RateLimitByClient
	WithRateLimitKeyFunc = middleware.WithRateLimitKeyFunc
	WithRateLimitLogger  = middleware.WithRateLimitLogger
)

// SizeLimit re-exports for convenience.
type SizeLimitOption = middleware.SizeLimitOption

var (
	SizeLimit           = middleware.SizeLimit
	WithSizeLimitLogger = middleware.WithSizeLimitLogger
)

// Size limit presets.
const (
	KB = middleware.KB
	MB = middleware.MB
)

// Handler processes decoded protocol requests. A nil response with a nil
// error means the request was a notification and nothing is sent back.
type Handler interface {
	HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
}

// Transport carries encoded protocol messages between a client and a
// Handler. Implementations live outside this module; the dispatcher only
// depends on this boundary.
type Transport interface {
	Serve(ctx context.Context, h Handler) error
	Addr() string
}

// ServeOption configures how the server is run.
type ServeOption func(*serveOptions)

type serveOptions struct {
	middleware []Middleware
	logger     Logger
}

// WithMiddleware adds middleware to the request handling chain.
func WithMiddleware(m ...Middleware) ServeOption {
	return func(o *serveOptions) {
		o.middleware = append(o.middleware, m...)
	}
}

// WithLogger sets the logger for the default middleware stack.
func WithLogger(l Logger) ServeOption {
	return func(o *serveOptions) {
		o.logger = l
	}
}

// NewServer creates a new skillrpc server with the given info and options.
func NewServer(info ServerInfo, opts ...Option) *Server {
	return server.New(info, opts...)
}

// Serve runs the server on the given transport. This blocks until the
// context is canceled or the transport fails.
func Serve(ctx context.Context, srv *Server, t Transport, opts ...ServeOption) error {
	if t == nil {
		return errors.New("skillrpc: transport must not be nil")
	}
	return t.Serve(ctx, NewHandler(srv, opts...))
}

// Middleware re-exports

// Chain composes multiple middleware into a single middleware.
func Chain(middlewares ...Middleware) Middleware {
	return middleware.Chain(middlewares...)
}

// Recover returns middleware that catches panics and converts them to
// internal errors.
func Recover() Middleware {
	return middleware.Recover()
}

// RecoverWithHandler returns middleware that catches panics and calls the
// provided handler.
func RecoverWithHandler(handler func(ctx context.Context, req *protocol.Request, panicVal any) (*protocol.Response, error)) Middleware {
	return middleware.RecoverWithHandler(handler)
}

// Timeout returns middleware that enforces a request deadline.
func Timeout(d time.Duration) Middleware {
	return middleware.Timeout(d)
}

// RequestID returns middleware that injects a unique request ID into the
// context.
func RequestID() Middleware {
	return middleware.RequestID()
}

// RequestIDFromContext returns the request ID from the context, or an empty
// string if not set.
func RequestIDFromContext(ctx context.Context) string {
	return middleware.RequestIDFromContext(ctx)
}

// Logging returns middleware that logs request details.
func Logging(logger Logger) Middleware {
	return middleware.Logging(logger)
}

// DefaultMiddleware returns the recommended production middleware stack.
func DefaultMiddleware(logger Logger) []Middleware {
	return middleware.DefaultStack(logger)
}

// DefaultMiddlewareWithTimeout returns the default stack with a timeout
// middleware.
func DefaultMiddlewareWithTimeout(logger Logger, timeout time.Duration) []Middleware {
	return middleware.DefaultStackWithTimeout(logger, timeout)
}

// LogF creates a new log field with the given key and value.
func LogF(key string, value any) LogField {
	return middleware.F(key, value)
}
