package router

import (
	"errors"

	"github.com/Brownie44l1/pdaq-server/internal/database"
	"github.com/Brownie44l1/pdaq-server/internal/logging"
	"github.com/Brownie44l1/pdaq-server/internal/models"
	"github.com/Brownie44l1/pdaq-server/internal/request"
	"github.com/Brownie44l1/pdaq-server/internal/response"
	"github.com/Brownie44l1/pdaq-server/internal/server"
)

func (r *Router) registerAuthentication() {
	r.POST(request.PathAuthentication, "", r.login)
	r.PATCH(request.PathAuthentication, "", r.renew)
	r.DELETE(request.PathAuthentication, "", r.logout)
}

// login checks the credentials in the body and sets a new session cookie
func (r *Router) login(c *server.Context, p Params) *response.Response {
	user, resp := decode[models.User](c)
	if resp != nil {
		return resp
	}

	token, err := r.db.Login(c.Context(), user)
	if err != nil {
		if !errors.Is(err, database.ErrUnauthorized) {
			r.logger.Error("Login failed", logging.F("error", err))
		}
		return response.Unauthorized()
	}

	r.logger.Debug("User logged in", logging.F("username", user.Username))
	return response.OK(user.Public()).WithSession(token)
}

// renew swaps the session cookie for a fresh token
func (r *Router) renew(c *server.Context, p Params) *response.Response {
	old, ok := c.SessionID()
	if !ok {
		return response.Unauthorized()
	}

	token, err := r.db.RenewSession(c.Context(), old)
	if err != nil {
		return response.Unauthorized()
	}
	user, err := r.db.SessionUser(c.Context(), token)
	if err != nil {
		return response.Unauthorized()
	}
	return response.OK(user.Public()).WithSession(token)
}

func (r *Router) logout(c *server.Context, p Params) *response.Response {
	token, ok := c.SessionID()
	if !ok {
		return response.Unauthorized()
	}
	if err := r.db.Logout(c.Context(), token); err != nil {
		return response.Unauthorized()
	}
	return response.NoContent()
}
