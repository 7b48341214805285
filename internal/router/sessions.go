package router

import (
	"github.com/Brownie44l1/pdaq-server/internal/models"
	"github.com/Brownie44l1/pdaq-server/internal/request"
	"github.com/Brownie44l1/pdaq-server/internal/response"
	"github.com/Brownie44l1/pdaq-server/internal/server"
)

func (r *Router) registerSessions() {
	r.GET(request.PathSession, "", r.listSessions)
	r.GET(request.PathSession, "/:id", r.getSession)
	r.POST(request.PathSession, "", r.createSession)
	r.PATCH(request.PathSession, "/:id", r.updateSession)
	r.DELETE(request.PathSession, "/:id", r.deleteSession)
}

// listSessions returns every session, or those of ?username=
func (r *Router) listSessions(c *server.Context, p Params) *response.Response {
	var (
		sessions []models.Session
		err      error
	)
	if username := c.Query("username"); username != "" {
		sessions, err = r.db.UserSessions(c.Context(), username)
	} else {
		sessions, err = r.db.Sessions(c.Context())
	}
	if err != nil {
		return r.fail(c, err, "Failed to fetch sessions.")
	}
	return response.OK(public(sessions))
}

func (r *Router) getSession(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	session, err := r.db.Session(c.Context(), id)
	if err != nil {
		return r.fail(c, err, "Failed to fetch session.")
	}
	return response.OK(session.Public())
}

func (r *Router) createSession(c *server.Context, p Params) *response.Response {
	session, resp := decode[models.Session](c)
	if resp != nil {
		return resp
	}
	created, err := r.db.InsertSession(c.Context(), session)
	if err != nil {
		return response.BadRequest(models.CreateErrorMsg(session))
	}
	return response.Created(created.Public())
}

func (r *Router) updateSession(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	stored, err := r.db.Session(c.Context(), id)
	if err != nil {
		return r.fail(c, err, "Failed to fetch session.")
	}
	session, resp := merge(c, stored)
	if resp != nil {
		return resp
	}
	session.ID = id
	if err := session.Validate(); err != nil {
		return invalidData(session)
	}

	updated, err := r.db.UpdateSession(c.Context(), id, session)
	if err != nil {
		return r.fail(c, err, "Error updating session.")
	}
	return response.OK(updated.Public())
}

func (r *Router) deleteSession(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	if err := r.db.DeleteSession(c.Context(), id); err != nil {
		return r.fail(c, err, "Error deleting session.")
	}
	return response.NoContent()
}
