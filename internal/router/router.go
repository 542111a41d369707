// Package router tracks the URL fragment of a page and notifies subscribers
// when it changes.
package router

import (
	"slices"
	"strings"
	"sync"
)

// Handler receives the new fragment, including its leading '#'. It is empty
// when the fragment was cleared.
type Handler func(fragment string)

// Router exposes fragment changes to page components.
type Router interface {
	// OnRouteChange registers h and returns a function that removes it.
	OnRouteChange(h Handler) (unsubscribe func())
	// CurrentRoute returns the current fragment, "" when there is none.
	CurrentRoute() string
}

// HashRouter is a Router driven explicitly through Navigate.
type HashRouter struct {
	mu       sync.Mutex
	current  string
	nextID   int
	handlers map[int]Handler
	order    []int
}

// New creates a router whose current route is initial.
func New(initial string) *HashRouter {
	return &HashRouter{
		current:  Normalize(initial),
		handlers: make(map[int]Handler),
	}
}

// Normalize returns fragment with exactly one leading '#', or "" for an
// empty fragment.
func Normalize(fragment string) string {
	fragment = strings.TrimLeft(strings.TrimSpace(fragment), "#")
	if fragment == "" {
		return ""
	}
	return "#" + fragment
}

func (r *HashRouter) OnRouteChange(h Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.handlers[id] = h
	r.order = append(r.order, id)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.handlers, id)
		r.order = slices.DeleteFunc(r.order, func(o int) bool { return o == id })
	}
}

func (r *HashRouter) CurrentRoute() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Navigate changes the fragment. Handlers run synchronously, in registration
// order, and only when the fragment actually changed. It reports whether it
// did.
func (r *HashRouter) Navigate(fragment string) bool {
	fragment = Normalize(fragment)

	r.mu.Lock()
	if fragment == r.current {
		r.mu.Unlock()
		return false
	}
	r.current = fragment
	handlers := make([]Handler, 0, len(r.handlers))
	for _, id := range r.order {
		if h, ok := r.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	r.mu.Unlock()

	for _, h := range handlers {
		h(fragment)
	}
	return true
}
