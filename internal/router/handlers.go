package router

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Brownie44l1/pdaq-server/internal/database"
	"github.com/Brownie44l1/pdaq-server/internal/logging"
	"github.com/Brownie44l1/pdaq-server/internal/models"
	"github.com/Brownie44l1/pdaq-server/internal/response"
	"github.com/Brownie44l1/pdaq-server/internal/server"
)

// decode reads and validates the request body as a T. On failure the
// returned response is ready to send.
func decode[T models.Model](c *server.Context) (T, *response.Response) {
	var m T
	if resp := checkBody(c, m); resp != nil {
		return m, resp
	}

	m, err := models.Decode[T](c.Request.RawBody)
	if err != nil {
		return m, response.InvalidBody(m.RequiredValues())
	}
	if err := m.Validate(); err != nil {
		return m, invalidData(m)
	}
	return m, nil
}

// merge applies the request body onto stored. The caller re-applies the
// identifier from the path and validates.
func merge[T models.Model](c *server.Context, stored T) (T, *response.Response) {
	if resp := checkBody(c, stored); resp != nil {
		return stored, resp
	}

	merged, err := models.Merge(stored, c.Request.RawBody)
	if err != nil {
		return stored, response.InvalidBody(stored.RequiredValues())
	}
	return merged, nil
}

func checkBody(c *server.Context, m models.Model) *response.Response {
	req := c.Request
	if req.BodyErr != nil {
		return response.InvalidBody(m.RequiredValues())
	}
	if !req.HasBody() {
		return response.MissingBody(m.RequiredValues())
	}
	// every model is a JSON object; null, arrays and scalars are not
	if _, ok := req.Body.(map[string]any); !ok {
		return response.InvalidBody(m.RequiredValues())
	}
	return nil
}

func invalidData(m models.Model) *response.Response {
	name := m.TypeName()
	if !strings.HasSuffix(name, " data") {
		name += " data"
	}
	return response.BadRequest("Invalid " + name + ".")
}

// parseID reads a positive integer path parameter
func parseID(p Params, name string) (int64, *response.Response) {
	id, err := strconv.ParseInt(p[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, response.BadRequest("Invalid " + name + ".")
	}
	return id, nil
}

// fail maps a storage error for the current path. Misses are a JSON 404,
// constraint violations a 400 with msg.
func (r *Router) fail(c *server.Context, err error, msg string) *response.Response {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return response.NotFoundJSON(c.Path().String())
	case errors.Is(err, database.ErrInvalid):
		return response.BadRequest(msg)
	case errors.Is(err, database.ErrUnauthorized):
		return response.Unauthorized()
	default:
		r.logger.Error("Database error",
			logging.F("error", err),
			logging.F("path", c.Path().String()),
			logging.F("request_id", c.RequestID),
		)
		return response.BadRequest(msg)
	}
}

// public projects a list onto its client-facing shape
func public[T models.Model](items []T) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item.Public())
	}
	return out
}

// sessionUser resolves the session cookie to a user
func (r *Router) sessionUser(c *server.Context) (models.User, bool) {
	token, ok := c.SessionID()
	if !ok {
		return models.User{}, false
	}
	user, err := r.db.SessionUser(c.Context(), token)
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

// requireAdmin is 401 without a valid session and 403 for non-admins
func (r *Router) requireAdmin(c *server.Context) *response.Response {
	user, ok := r.sessionUser(c)
	if !ok {
		return response.Unauthorized()
	}
	if !r.db.IsAdmin(c.Context(), user) {
		return response.Forbidden()
	}
	return nil
}

// requireSelfOrAdmin guards changes to one user's account
func (r *Router) requireSelfOrAdmin(c *server.Context, username string) *response.Response {
	user, ok := r.sessionUser(c)
	if !ok {
		return response.Unauthorized()
	}
	if user.Username != username && !r.db.IsAdmin(c.Context(), user) {
		return response.Forbidden()
	}
	return nil
}
