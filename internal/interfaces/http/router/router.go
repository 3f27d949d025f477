package router

import (
	"net/http"

	"github.com/agualoti/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// APIPrefix is where every authenticated route is mounted
const APIPrefix = "/api/v1"

// Route is one endpoint. AdminOnly routes get middleware.RequireAdmin in front
// of the handler; everything else is open to any authenticated operator.
type Route struct {
	Method    string
	Path      string
	Handler   gin.HandlerFunc
	AdminOnly bool
}

// Area is a set of routes sharing a path prefix, such as /clients or /invoices
type Area struct {
	Name   string
	Prefix string
	Routes []Route
}

func get(path string, h gin.HandlerFunc) Route  { return Route{Method: http.MethodGet, Path: path, Handler: h} }
func post(path string, h gin.HandlerFunc) Route { return Route{Method: http.MethodPost, Path: path, Handler: h} }
func put(path string, h gin.HandlerFunc) Route  { return Route{Method: http.MethodPut, Path: path, Handler: h} }

// admin marks r as restricted to administrators
func admin(r Route) Route {
	r.AdminOnly = true
	return r
}

func (a Area) mount(api *gin.RouterGroup) {
	group := api.Group(a.Prefix)
	for _, r := range a.Routes {
		chain := []gin.HandlerFunc{r.Handler}
		if r.AdminOnly {
			chain = []gin.HandlerFunc{middleware.RequireAdmin(), r.Handler}
		}
		group.Handle(r.Method, r.Path, chain...)
	}
}

// Mount registers areas under APIPrefix behind the given middleware
func Mount(engine *gin.Engine, areas []Area, mw ...gin.HandlerFunc) *gin.RouterGroup {
	api := engine.Group(APIPrefix, mw...)
	for _, a := range areas {
		a.mount(api)
	}
	return api
}
