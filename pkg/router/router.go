// Package router implements the path-prefix router tree, route resolution and
// the handler chain executor.
//
// A tree is built at configuration time with Get/Post/... and AddSubRouter,
// then frozen. A frozen tree is read-only and safe to share between
// concurrent dispatches.
package router

import (
	"fmt"
	"sync/atomic"

	"lambo/pkg/lambda"
)

// Router is one node of the router tree. Its path is a plain prefix, not
// necessarily a whole path segment.
type Router struct {
	path    string
	method  lambda.Method
	handler Handler
	routes  []*Router
	frozen  atomic.Bool
}

// New creates a router node for the given path prefix. Nodes created this
// way carry no handler and only act as sub-routers.
func New(path string) *Router {
	return &Router{path: path, method: lambda.MethodGet}
}

// Path returns the node's path prefix
func (r *Router) Path() string {
	return r.path
}

// Method returns the method the node matches
func (r *Router) Method() lambda.Method {
	return r.method
}

// Routes returns the child nodes in registration order
func (r *Router) Routes() []*Router {
	return append([]*Router(nil), r.routes...)
}

// Get registers a GET leaf and returns r for chaining
func (r *Router) Get(path string, h Handler) *Router {
	return r.Handle(lambda.MethodGet, path, h)
}

// Post registers a POST leaf and returns r for chaining
func (r *Router) Post(path string, h Handler) *Router {
	return r.Handle(lambda.MethodPost, path, h)
}

// Options registers an OPTIONS leaf and returns r for chaining
func (r *Router) Options(path string, h Handler) *Router {
	return r.Handle(lambda.MethodOptions, path, h)
}

// Delete registers a DELETE leaf and returns r for chaining
func (r *Router) Delete(path string, h Handler) *Router {
	return r.Handle(lambda.MethodDelete, path, h)
}

// Patch registers a PATCH leaf and returns r for chaining
func (r *Router) Patch(path string, h Handler) *Router {
	return r.Handle(lambda.MethodPatch, path, h)
}

// Handle appends a leaf matching method and path. Registrations are never
// de-duplicated; children are tried in registration order.
func (r *Router) Handle(method lambda.Method, path string, h Handler) *Router {
	r.mustBeMutable()
	if !method.Valid() {
		panic(fmt.Sprintf("router: unsupported method %q for %q", method, path))
	}
	if h == nil {
		panic(fmt.Sprintf("router: nil handler for %s %q", method, path))
	}
	r.routes = append(r.routes, &Router{path: path, method: method, handler: h})
	return r
}

// AddSubRouter attaches a whole subtree and returns r for chaining
func (r *Router) AddSubRouter(sub *Router) *Router {
	r.mustBeMutable()
	if sub == nil {
		panic("router: nil sub-router")
	}
	if sub == r {
		panic(fmt.Sprintf("router: %q attached to itself", r.path))
	}
	r.routes = append(r.routes, sub)
	return r
}

// Freeze ends the build phase for r and every node below it. Registering on
// a frozen node panics.
func (r *Router) Freeze() {
	if r.frozen.Swap(true) {
		return
	}
	for _, child := range r.routes {
		child.Freeze()
	}
}

// Frozen reports whether the build phase has ended
func (r *Router) Frozen() bool {
	return r.frozen.Load()
}

func (r *Router) mustBeMutable() {
	if r.frozen.Load() {
		panic(fmt.Sprintf("router: %q is frozen, routes must be registered before serving", r.path))
	}
}
