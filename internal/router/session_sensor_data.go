package router

import (
	"github.com/Brownie44l1/pdaq-server/internal/models"
	"github.com/Brownie44l1/pdaq-server/internal/request"
	"github.com/Brownie44l1/pdaq-server/internal/response"
	"github.com/Brownie44l1/pdaq-server/internal/server"
)

func (r *Router) registerSessionSensorData() {
	kind := request.PathSessionSensorData

	r.GET(kind, "", r.listDatapoints)
	// must precede "/:id/:datetime", which has the same shape
	r.GET(kind, "/session/:session_id", r.datapointsOfSession)
	r.GET(kind, "/:id", r.datapointsOfLink)
	r.GET(kind, "/:id/:datetime", r.getDatapoint)
	r.POST(kind, "", r.createDatapoint)
	r.POST(kind, "/batch", r.createBatch)
	r.PATCH(kind, "/:id/:datetime", r.updateDatapoint)
	r.DELETE(kind, "/:id/:datetime", r.deleteDatapoint)
}

func (r *Router) listDatapoints(c *server.Context, p Params) *response.Response {
	data, err := r.db.SessionsSensorsData(c.Context())
	if err != nil {
		return r.fail(c, err, "Failed to fetch session sensor data.")
	}
	return response.OK(public(data))
}

// datapointsOfSession honours ?after=<datetime>
func (r *Router) datapointsOfSession(c *server.Context, p Params) *response.Response {
	sessionID, resp := parseID(p, "session_id")
	if resp != nil {
		return resp
	}

	var (
		data []models.SessionSensorData
		err  error
	)
	if after := c.Query("after"); after != "" {
		data, err = r.db.SessionSensorDataBySessionAfter(c.Context(), sessionID, after)
	} else {
		data, err = r.db.SessionSensorDataBySession(c.Context(), sessionID)
	}
	if err != nil {
		return r.fail(c, err, "Failed to fetch session sensor data.")
	}
	return response.OK(public(data))
}

func (r *Router) datapointsOfLink(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	data, err := r.db.SessionSensorData(c.Context(), id)
	if err != nil {
		return r.fail(c, err, "Failed to fetch session sensor data.")
	}
	return response.OK(public(data))
}

func (r *Router) getDatapoint(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	d, err := r.db.Datapoint(c.Context(), id, p["datetime"])
	if err != nil {
		return r.fail(c, err, "Failed to fetch session sensor data.")
	}
	return response.OK(d.Public())
}

func (r *Router) createDatapoint(c *server.Context, p Params) *response.Response {
	d, resp := decode[models.SessionSensorData](c)
	if resp != nil {
		return resp
	}
	created, err := r.db.InsertSessionSensorData(c.Context(), d)
	if err != nil {
		return response.BadRequest(models.CreateErrorMsg(d))
	}
	return response.Created(created.Public())
}

// createBatch inserts every datapoint or none
func (r *Router) createBatch(c *server.Context, p Params) *response.Response {
	batch, resp := decode[models.Batch](c)
	if resp != nil {
		return resp
	}
	if err := r.db.BatchSessionSensorData(c.Context(), batch.Datapoints); err != nil {
		return response.BadRequest(models.CreateErrorMsg(batch))
	}
	return response.NoContent()
}

func (r *Router) updateDatapoint(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	datetime := p["datetime"]

	stored, err := r.db.Datapoint(c.Context(), id, datetime)
	if err != nil {
		return r.fail(c, err, "Failed to fetch session sensor data.")
	}
	d, resp := merge(c, stored)
	if resp != nil {
		return resp
	}
	d.ID, d.Datetime = id, datetime
	if err := d.Validate(); err != nil {
		return invalidData(d)
	}

	updated, err := r.db.UpdateDatapoint(c.Context(), id, datetime, d)
	if err != nil {
		return r.fail(c, err, "Error updating session sensor data.")
	}
	return response.OK(updated.Public())
}

func (r *Router) deleteDatapoint(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	if err := r.db.DeleteDatapoint(c.Context(), id, p["datetime"]); err != nil {
		return r.fail(c, err, "Error deleting session sensor data.")
	}
	return response.NoContent()
}
