package app

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/errors"
)

var routePath = regexp.MustCompile(`^[a-zA-Z0-9_/]+$`)

// Router dispatches every transaction to the handler registered for the
// path of its message.
type Router struct {
	routes map[string]docseal.Handler
}

var (
	_ docseal.Registry = (*Router)(nil)
	_ docseal.Handler  = (*Router)(nil)
)

func NewRouter() *Router {
	return &Router{routes: map[string]docseal.Handler{}}
}

// Handle panics on a malformed or already registered path. Routes are
// registered at start up only.
func (r *Router) Handle(path string, h docseal.Handler) {
	if !routePath.MatchString(path) {
		panic(fmt.Sprintf("router: invalid path %q", path))
	}
	if _, taken := r.routes[path]; taken {
		panic(fmt.Sprintf("router: path %q registered twice", path))
	}
	r.routes[path] = h
}

// Paths lists the registered paths in order.
func (r *Router) Paths() []string {
	paths := make([]string, 0, len(r.routes))
	for p := range r.routes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (r *Router) Check(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.CheckResult, error) {
	h, err := r.route(tx)
	if err != nil {
		return nil, err
	}
	return h.Check(ctx, db, tx)
}

func (r *Router) Deliver(ctx docseal.Context, db docseal.KVStore, tx docseal.Tx) (*docseal.DeliverResult, error) {
	h, err := r.route(tx)
	if err != nil {
		return nil, err
	}
	return h.Deliver(ctx, db, tx)
}

// route fails with ErrNotFound for a path without a handler.
func (r *Router) route(tx docseal.Tx) (docseal.Handler, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "load message")
	}
	h, ok := r.routes[msg.Path()]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "no route for %q", msg.Path())
	}
	return h, nil
}
