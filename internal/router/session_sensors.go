package router

import (
	"github.com/Brownie44l1/pdaq-server/internal/models"
	"github.com/Brownie44l1/pdaq-server/internal/request"
	"github.com/Brownie44l1/pdaq-server/internal/response"
	"github.com/Brownie44l1/pdaq-server/internal/server"
)

func (r *Router) registerSessionSensors() {
	r.GET(request.PathSessionSensor, "", r.listSessionSensors)
	r.GET(request.PathSessionSensor, "/session/:session_id", r.sessionSensorsOfSession)
	r.GET(request.PathSessionSensor, "/:id", r.getSessionSensor)
	r.POST(request.PathSessionSensor, "", r.createSessionSensor)
	r.PATCH(request.PathSessionSensor, "/:id", r.updateSessionSensor)
	r.DELETE(request.PathSessionSensor, "/:id", r.deleteSessionSensor)
}

func (r *Router) listSessionSensors(c *server.Context, p Params) *response.Response {
	links, err := r.db.SessionsSensors(c.Context())
	if err != nil {
		return r.fail(c, err, "Failed to fetch session sensors.")
	}
	return response.OK(public(links))
}

func (r *Router) sessionSensorsOfSession(c *server.Context, p Params) *response.Response {
	sessionID, resp := parseID(p, "session_id")
	if resp != nil {
		return resp
	}
	links, err := r.db.SessionSensors(c.Context(), sessionID)
	if err != nil {
		return r.fail(c, err, "Failed to fetch session sensors.")
	}
	return response.OK(public(links))
}

func (r *Router) getSessionSensor(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	link, err := r.db.SessionSensor(c.Context(), id)
	if err != nil {
		return r.fail(c, err, "Failed to fetch session sensor.")
	}
	return response.OK(link.Public())
}

func (r *Router) createSessionSensor(c *server.Context, p Params) *response.Response {
	link, resp := decode[models.SessionSensor](c)
	if resp != nil {
		return resp
	}
	created, err := r.db.InsertSessionSensor(c.Context(), link)
	if err != nil {
		return response.BadRequest(models.CreateErrorMsg(link))
	}
	return response.Created(created.Public())
}

func (r *Router) updateSessionSensor(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	stored, err := r.db.SessionSensor(c.Context(), id)
	if err != nil {
		return r.fail(c, err, "Failed to fetch session sensor.")
	}
	link, resp := merge(c, stored)
	if resp != nil {
		return resp
	}
	link.ID = id
	if err := link.Validate(); err != nil {
		return invalidData(link)
	}

	updated, err := r.db.UpdateSessionSensor(c.Context(), id, link)
	if err != nil {
		return r.fail(c, err, "Error updating session sensor.")
	}
	return response.OK(updated.Public())
}

func (r *Router) deleteSessionSensor(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	if err := r.db.DeleteSessionSensor(c.Context(), id); err != nil {
		return r.fail(c, err, "Error deleting session sensor.")
	}
	return response.NoContent()
}
