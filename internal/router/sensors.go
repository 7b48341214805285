package router

import (
	"github.com/Brownie44l1/pdaq-server/internal/models"
	"github.com/Brownie44l1/pdaq-server/internal/request"
	"github.com/Brownie44l1/pdaq-server/internal/response"
	"github.com/Brownie44l1/pdaq-server/internal/server"
)

func (r *Router) registerSensors() {
	r.GET(request.PathSensor, "", r.listSensors)
	r.GET(request.PathSensor, "/:id", r.getSensor)
	r.POST(request.PathSensor, "", r.createSensor)
	r.PATCH(request.PathSensor, "/:id", r.updateSensor)
	r.DELETE(request.PathSensor, "/:id", r.deleteSensor)
}

func (r *Router) listSensors(c *server.Context, p Params) *response.Response {
	sensors, err := r.db.Sensors(c.Context())
	if err != nil {
		return r.fail(c, err, "Failed to fetch sensors.")
	}
	return response.OK(public(sensors))
}

func (r *Router) getSensor(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	sensor, err := r.db.Sensor(c.Context(), id)
	if err != nil {
		return r.fail(c, err, "Failed to fetch sensor.")
	}
	return response.OK(sensor.Public())
}

func (r *Router) createSensor(c *server.Context, p Params) *response.Response {
	sensor, resp := decode[models.Sensor](c)
	if resp != nil {
		return resp
	}
	created, err := r.db.InsertSensor(c.Context(), sensor)
	if err != nil {
		return response.BadRequest(models.CreateErrorMsg(sensor))
	}
	return response.Created(created.Public())
}

func (r *Router) updateSensor(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	stored, err := r.db.Sensor(c.Context(), id)
	if err != nil {
		return r.fail(c, err, "Failed to fetch sensor.")
	}
	sensor, resp := merge(c, stored)
	if resp != nil {
		return resp
	}
	sensor.ID = id
	if err := sensor.Validate(); err != nil {
		return invalidData(sensor)
	}

	updated, err := r.db.UpdateSensor(c.Context(), id, sensor)
	if err != nil {
		return r.fail(c, err, "Error updating sensor.")
	}
	return response.OK(updated.Public())
}

func (r *Router) deleteSensor(c *server.Context, p Params) *response.Response {
	id, resp := parseID(p, "id")
	if resp != nil {
		return resp
	}
	if err := r.db.DeleteSensor(c.Context(), id); err != nil {
		return r.fail(c, err, "Error deleting sensor.")
	}
	return response.NoContent()
}
