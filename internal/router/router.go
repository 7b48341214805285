// Package router dispatches parsed requests to the resource handlers.
package router

import (
	"net/url"
	"strings"

	"github.com/Brownie44l1/pdaq-server/internal/database"
	"github.com/Brownie44l1/pdaq-server/internal/headers"
	"github.com/Brownie44l1/pdaq-server/internal/logging"
	"github.com/Brownie44l1/pdaq-server/internal/request"
	"github.com/Brownie44l1/pdaq-server/internal/response"
	"github.com/Brownie44l1/pdaq-server/internal/server"
)

// Params holds the values captured by ":name" segments of a route pattern
type Params map[string]string

// HandlerFunc handles a matched route
type HandlerFunc func(c *server.Context, p Params) *response.Response

// Route represents a single route. Pattern is matched against the
// sub-path that follows the route prefix.
type Route struct {
	Kind    request.PathKind
	Method  request.Method
	Pattern string
	Handler HandlerFunc
	Params  []string // Parameter names (e.g., ["id", "datetime"])
}

// Options configures a Router
type Options struct {
	CORS   headers.CORSConfig
	Logger logging.Logger
}

// Router handles route dispatch
type Router struct {
	db     database.Database
	cors   headers.CORSConfig
	logger logging.Logger
	routes []*Route
}

// New creates a router with every resource route registered
func New(db database.Database, opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.CORS.AllowedMethods == nil {
		opts.CORS = headers.DefaultCORSConfig()
	}

	r := &Router{
		db:     db,
		cors:   opts.CORS,
		logger: opts.Logger,
		routes: make([]*Route, 0),
	}
	r.registerIndex()
	r.registerAuthentication()
	r.registerUsers()
	r.registerSensors()
	r.registerSessions()
	r.registerSessionSensors()
	r.registerSessionSensorData()
	return r
}

// Handle registers a new route. Routes are matched in registration order.
func (r *Router) Handle(kind request.PathKind, method request.Method, pattern string, handler HandlerFunc) {
	r.routes = append(r.routes, &Route{
		Kind:    kind,
		Method:  method,
		Pattern: pattern,
		Handler: handler,
		Params:  extractParams(pattern),
	})
}

func (r *Router) GET(kind request.PathKind, pattern string, handler HandlerFunc) {
	r.Handle(kind, request.MethodGet, pattern, handler)
}

func (r *Router) POST(kind request.PathKind, pattern string, handler HandlerFunc) {
	r.Handle(kind, request.MethodPost, pattern, handler)
}

func (r *Router) PATCH(kind request.PathKind, pattern string, handler HandlerFunc) {
	r.Handle(kind, request.MethodPatch, pattern, handler)
}

func (r *Router) DELETE(kind request.PathKind, pattern string, handler HandlerFunc) {
	r.Handle(kind, request.MethodDelete, pattern, handler)
}

// Match finds the first route for kind and method whose pattern matches sub
func (r *Router) Match(kind request.PathKind, method request.Method, sub string) (*Route, Params) {
	sub = strings.TrimSuffix(sub, "/")

	for _, route := range r.routes {
		if route.Kind != kind || route.Method != method {
			continue
		}
		if params := matchPath(route.Pattern, sub); params != nil {
			return route, params
		}
	}
	return nil, nil
}

// ServeRequest implements server.Handler. An allow-listed Origin is
// echoed on every response, including 404s.
func (r *Router) ServeRequest(c *server.Context) *response.Response {
	origin := c.Header(headers.Origin)
	resp := r.dispatch(c, origin)
	if resp != nil && r.cors.IsAllowedOrigin(origin) {
		resp.Headers.Insert(headers.AllowOrigin, origin)
	}
	return resp
}

func (r *Router) dispatch(c *server.Context, origin string) *response.Response {
	req := c.Request

	switch {
	case req.Method == request.MethodOptions:
		return response.Options(r.cors, origin)
	case req.Method == request.MethodError, req.Path.Kind == request.PathNotFound:
		return response.NotFoundJSON(req.Path.String())
	}

	route, params := r.Match(req.Path.Kind, req.Method, req.Path.Sub)
	if route == nil {
		if req.Path.Kind == request.PathIndex {
			return response.NotFoundHTML()
		}
		return response.NotFoundJSON(req.Path.String())
	}
	return route.Handler(c, params)
}

// extractParams extracts parameter names from a path pattern
// Example: "/:id/:datetime" -> ["id", "datetime"]
func extractParams(path string) []string {
	parts := strings.Split(path, "/")
	params := make([]string, 0)

	for _, part := range parts {
		if strings.HasPrefix(part, ":") {
			params = append(params, part[1:])
		}
	}
	return params
}

// matchPath checks if a sub-path matches a route pattern.
// Returns parameter values if match, nil otherwise
func matchPath(pattern, path string) Params {
	patternParts := strings.Split(pattern, "/")
	if len(patternParts) != strings.Count(path, "/")+1 {
		return nil
	}

	params := make(Params)
	// patternParts[0] is the empty element before the leading slash
	for i, patternPart := range patternParts[1:] {
		pathPart, _ := request.Subsection(path, i)

		if name, ok := strings.CutPrefix(patternPart, ":"); ok {
			if pathPart == "" {
				return nil
			}
			if v, err := url.PathUnescape(pathPart); err == nil {
				pathPart = v
			}
			params[name] = pathPart
		} else if patternPart != pathPart {
			return nil
		}
	}
	return params
}
