package server

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Brownie44l1/pdaq-server/internal/logging"
	"github.com/Brownie44l1/pdaq-server/internal/response"
)

// Handler turns a request into a response. A nil response is treated as
// an internal error.
type Handler interface {
	ServeRequest(c *Context) *response.Response
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(c *Context) *response.Response

func (f HandlerFunc) ServeRequest(c *Context) *response.Response {
	return f(c)
}

// Middleware wraps a handler
type Middleware func(Handler) Handler

// Chain applies middlewares so the first one listed runs outermost
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// LoggingMiddleware logs all requests
func LoggingMiddleware(logger logging.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(c *Context) *response.Response {
			start := time.Now()
			resp := next.ServeRequest(c)

			status := response.StatusInternalServerError
			if resp != nil {
				status = resp.Status
			}
			// Cookies and bodies stay out of the log
			logger.Info("request handled",
				logging.F("method", c.Method().String()),
				logging.F("path", c.Path().String()),
				logging.F("status", int(status)),
				logging.F("duration", time.Since(start)),
				logging.F("request_id", c.RequestID),
				logging.F("client_ip", c.ClientIP()),
			)
			return resp
		})
	}
}

// RecoveryMiddleware recovers from panics
func RecoveryMiddleware(logger logging.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(c *Context) (resp *response.Response) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						logging.F("error", fmt.Sprint(err)),
						logging.F("stack", string(debug.Stack())),
						logging.F("request_id", c.RequestID),
						logging.F("path", c.Path().String()),
					)
					resp = response.InternalServerError()
				}
			}()

			return next.ServeRequest(c)
		})
	}
}

// MetricsMiddleware records request metrics
func MetricsMiddleware(metrics *Metrics) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(c *Context) *response.Response {
			start := time.Now()
			resp := next.ServeRequest(c)

			status := response.StatusInternalServerError
			if resp != nil {
				status = resp.Status
			}
			metrics.RecordRequest(int(status), time.Since(start))
			return resp
		})
	}
}
