package middleware

import (
	"context"
	"time"

	"github.com/skillwire/skillrpc/protocol"
)

// Timeout returns middleware that enforces a request deadline. If the
// handler does not complete within the duration, the context is cancelled
// and the handler's context error propagates.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}
