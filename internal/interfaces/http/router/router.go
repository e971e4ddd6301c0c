package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts its routes on a router group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouteInfo describes one mounted API route
type RouteInfo struct {
	Group  string
	Method string
	Path   string
}

// Router mounts domain groups under /api/{version}, behind the API-only
// middleware
type Router struct {
	engine     *gin.Engine
	apiVersion string
	apiChain   []gin.HandlerFunc
	groups     []*DomainGroup
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the API prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithAPIMiddleware runs handlers before every API route. Routes mounted
// directly on the engine, such as probes, are not affected.
func WithAPIMiddleware(handlers ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.apiChain = append(r.apiChain, handlers...)
	}
}

// NewRouter creates a Router for engine, serving v1 by default
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BasePath is the prefix every mounted group shares
func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

// Mount queues groups for Setup
func (r *Router) Mount(groups ...*DomainGroup) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// Setup registers the queued groups and returns what was mounted
func (r *Router) Setup() []RouteInfo {
	api := r.engine.Group(r.BasePath(), r.apiChain...)

	var mounted []RouteInfo
	for _, g := range r.groups {
		g.RegisterRoutes(api)
		for _, rt := range g.routes {
			mounted = append(mounted, RouteInfo{
				Group:  g.name,
				Method: rt.method,
				Path:   path.Join(r.BasePath(), g.prefix, rt.path),
			})
		}
	}
	return mounted
}

// DomainGroup collects the routes of one area of the API under a prefix
type DomainGroup struct {
	name   string
	prefix string
	chain  []gin.HandlerFunc
	routes []route
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup starts an empty group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware that runs for this group only
func (g *DomainGroup) Use(handlers ...gin.HandlerFunc) *DomainGroup {
	g.chain = append(g.chain, handlers...)
	return g
}

func (g *DomainGroup) GET(p string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodGet, p, handlers)
}

func (g *DomainGroup) POST(p string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodPost, p, handlers)
}

func (g *DomainGroup) PUT(p string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodPut, p, handlers)
}

func (g *DomainGroup) add(method, p string, handlers []gin.HandlerFunc) *DomainGroup {
	g.routes = append(g.routes, route{method: method, path: p, handlers: handlers})
	return g
}

// RegisterRoutes implements RouteRegistrar
func (g *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(g.prefix, g.chain...)
	for _, rt := range g.routes {
		group.Handle(rt.method, rt.path, rt.handlers...)
	}
}

func (g *DomainGroup) Name() string   { return g.name }
func (g *DomainGroup) Prefix() string { return g.prefix }
