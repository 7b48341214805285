package server

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/Brownie44l1/pdaq-server/internal/request"
)

// Context carries one parsed request through the middleware chain
type Context struct {
	Request    *request.Request
	RemoteAddr string
	RequestID  string
	Start      time.Time

	ctx context.Context
}

// NewContext creates a new context
func NewContext(ctx context.Context, req *request.Request, remote string) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		Request:    req,
		RemoteAddr: remote,
		RequestID:  uuid.NewString(),
		Start:      time.Now(),
		ctx:        ctx,
	}
}

// Context returns the context.Context handlers should pass to storage
func (c *Context) Context() context.Context {
	return c.ctx
}

// Method returns the request method
func (c *Context) Method() request.Method {
	return c.Request.Method
}

// Path returns the classified request path
func (c *Context) Path() request.Path {
	return c.Request.Path
}

// Header gets a request header value
func (c *Context) Header(key string) string {
	v, _ := c.Request.Header(key)
	return v
}

// Query gets the first value of a query parameter
func (c *Context) Query(key string) string {
	v, _ := c.Request.Param(key)
	return v
}

// SessionID returns the session cookie, if any
func (c *Context) SessionID() (string, bool) {
	return c.Request.SessionID()
}

// Bind decodes the JSON body into v
func (c *Context) Bind(v any) error {
	return c.Request.DecodeBody(v)
}

// ClientIP returns the peer address without the port
func (c *Context) ClientIP() string {
	host, _, err := net.SplitHostPort(c.RemoteAddr)
	if err != nil {
		return c.RemoteAddr
	}
	return host
}
