// Package middleware provides request/response middleware for skillrpc
// servers.
//
// Middleware follows the standard pattern where each middleware wraps the
// next handler in the chain, allowing pre- and post-processing of requests.
//
// # Basic Usage
//
// Create and compose middleware:
//
//	chain := middleware.Chain(
//	    middleware.Recover(),
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	)
//	handler := chain(baseHandler)
//
// # Available Middleware
//
//   - Recover: catches panics and converts them to internal errors
//   - RequestID: injects unique request IDs into the context
//   - Timeout: enforces request deadlines
//   - Logging: logs request details and timing
//   - SizeLimit: rejects oversized request params
//   - RateLimit: token-bucket rate limiting
//   - OTel: OpenTelemetry tracing and metrics
//
// # Default Stacks
//
// Pre-configured middleware stacks are available for common use cases:
//
//	// Recover + RequestID + Logging
//	stack := middleware.DefaultStack(logger)
//
//	// Recover + RequestID + Timeout + Logging
//	stack := middleware.DefaultStackWithTimeout(logger, 30*time.Second)
package middleware
