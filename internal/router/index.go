package router

import (
	_ "embed"

	"github.com/Brownie44l1/pdaq-server/internal/request"
	"github.com/Brownie44l1/pdaq-server/internal/response"
	"github.com/Brownie44l1/pdaq-server/internal/server"
)

//go:embed views/index.html
var indexView string

func (r *Router) registerIndex() {
	r.GET(request.PathIndex, "", r.index)
}

func (r *Router) index(c *server.Context, p Params) *response.Response {
	return response.HTML(indexView)
}
