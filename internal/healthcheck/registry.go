package healthcheck

import (
	"context"
	"sort"
)

// Handler runs one check and stores its outcome on the report.
type Handler interface {
	Type() CheckType
	Run(ctx context.Context, domain string, report *DomainHealthCheck) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	CheckType CheckType
	Fn        func(ctx context.Context, domain string, report *DomainHealthCheck) error
}

// Type implements Handler.
func (h HandlerFunc) Type() CheckType { return h.CheckType }

// Run implements Handler.
func (h HandlerFunc) Run(ctx context.Context, domain string, report *DomainHealthCheck) error {
	return h.Fn(ctx, domain, report)
}

// Registry maps check types to handlers. It is never mutated after
// construction; Register returns a new registry.
type Registry struct {
	handlers map[CheckType]Handler
}

// NewRegistry builds a registry from handlers. A later handler replaces an
// earlier one of the same type.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[CheckType]Handler, len(handlers))}
	for _, h := range handlers {
		if h != nil {
			r.handlers[h.Type()] = h
		}
	}
	return r
}

// Register returns a copy of r with h added.
func (r *Registry) Register(h Handler) *Registry {
	next := &Registry{handlers: make(map[CheckType]Handler, len(r.handlers)+1)}
	for t, existing := range r.handlers {
		next.handlers[t] = existing
	}
	if h != nil {
		next.handlers[h.Type()] = h
	}
	return next
}

// Handler returns the handler for t.
func (r *Registry) Handler(t CheckType) (Handler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// Types lists the registered check types in AllCheckTypes order, followed
// by any custom types sorted by name.
func (r *Registry) Types() []CheckType {
	order := make(map[CheckType]int, len(allCheckTypes))
	for i, t := range allCheckTypes {
		order[t] = i
	}
	out := make([]CheckType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iKnown := order[out[i]]
		oj, jKnown := order[out[j]]
		if iKnown != jKnown {
			return iKnown
		}
		if oi != oj {
			return oi < oj
		}
		return out[i] < out[j]
	})
	return out
}
