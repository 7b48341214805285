package router

import (
	"github.com/Brownie44l1/pdaq-server/internal/models"
	"github.com/Brownie44l1/pdaq-server/internal/request"
	"github.com/Brownie44l1/pdaq-server/internal/response"
	"github.com/Brownie44l1/pdaq-server/internal/server"
)

func (r *Router) registerUsers() {
	r.GET(request.PathUser, "", r.listUsers)
	r.GET(request.PathUser, "/profile", r.profile)
	r.GET(request.PathUser, "/:username", r.getUser)
	r.POST(request.PathUser, "", r.createUser)
	r.PATCH(request.PathUser, "/:username", r.updateUser)
	r.DELETE(request.PathUser, "/:username", r.deleteUser)
}

// listUsers is admin only
func (r *Router) listUsers(c *server.Context, p Params) *response.Response {
	if resp := r.requireAdmin(c); resp != nil {
		return resp
	}
	users, err := r.db.Users(c.Context())
	if err != nil {
		return response.BadRequest("Failed to fetch users from database.")
	}
	return response.OK(models.Usernames(users))
}

func (r *Router) profile(c *server.Context, p Params) *response.Response {
	user, ok := r.sessionUser(c)
	if !ok {
		return response.NotFoundJSON("User")
	}
	return response.OK(user.Public())
}

func (r *Router) getUser(c *server.Context, p Params) *response.Response {
	user, err := r.db.User(c.Context(), p["username"])
	if err != nil {
		return r.fail(c, err, "Failed to fetch user.")
	}
	return response.OK(user.Public())
}

func (r *Router) createUser(c *server.Context, p Params) *response.Response {
	user, resp := decode[models.User](c)
	if resp != nil {
		return resp
	}

	created, err := r.db.InsertUser(c.Context(), user)
	if err != nil {
		return response.BadRequest(models.CreateErrorMsg(user))
	}
	return response.Created(created.Public())
}

// updateUser changes the password of the named user
func (r *Router) updateUser(c *server.Context, p Params) *response.Response {
	name := p["username"]
	if resp := r.requireSelfOrAdmin(c, name); resp != nil {
		return resp
	}

	stored, err := r.db.User(c.Context(), name)
	if err != nil {
		return r.fail(c, err, "Failed to fetch user.")
	}
	user, resp := merge(c, stored)
	if resp != nil {
		return resp
	}
	user.Username = name
	if err := user.Validate(); err != nil {
		return invalidData(user)
	}

	updated, err := r.db.UpdateUser(c.Context(), name, user)
	if err != nil {
		return r.fail(c, err, "Error updating user.")
	}
	return response.OK(updated.Public())
}

func (r *Router) deleteUser(c *server.Context, p Params) *response.Response {
	name := p["username"]
	if resp := r.requireSelfOrAdmin(c, name); resp != nil {
		return resp
	}
	if err := r.db.DeleteUser(c.Context(), name); err != nil {
		return r.fail(c, err, "Error deleting user.")
	}
	return response.NoContent()
}
