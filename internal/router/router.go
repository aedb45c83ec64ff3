package router

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fittrack/apigw/internal/config"
	"github.com/fittrack/apigw/internal/observability"
)

// Sentinel errors.
var (
	// ErrRouteNotFound is returned by Match when no prefix matches.
	ErrRouteNotFound = errors.New("route not found")

	// ErrEmptyRouteTable is returned by New when no services are given.
	ErrEmptyRouteTable = errors.New("route table is empty")
)

// Router is the immutable routing table.
type Router struct {
	// routes keeps configuration order for listings.
	routes []*Route

	// byLength is sorted by descending prefix length for matching.
	byLength []*Route

	logger  observability.Logger
	metrics *routerMetrics
}

// Option is a functional option for configuring the router.
type Option func(*Router)

// WithLogger sets the logger used for build-time warnings.
func WithLogger(logger observability.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// New builds a router from the configured services. Duplicate prefixes,
// malformed prefixes or upstream URLs and an empty service list are
// errors. Overlapping prefixes are allowed and logged.
func New(services []config.ServiceConfig, opts ...Option) (*Router, error) {
	r := &Router{
		logger:  observability.NopLogger(),
		metrics: getRouterMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if len(services) == 0 {
		return nil, ErrEmptyRouteTable
	}

	seen := make(map[string]string, len(services))
	r.routes = make([]*Route, 0, len(services))

	for _, svc := range services {
		if owner, ok := seen[svc.Prefix]; ok {
			return nil, fmt.Errorf("%w: %q used by %s and %s",
				config.ErrDuplicatePrefix, svc.Prefix, owner, svc.Name)
		}
		seen[svc.Prefix] = svc.Name

		route, err := newRoute(svc)
		if err != nil {
			return nil, err
		}
		r.routes = append(r.routes, route)
	}

	r.byLength = make([]*Route, len(r.routes))
	copy(r.byLength, r.routes)
	sort.SliceStable(r.byLength, func(i, j int) bool {
		return len(r.byLength[i].PathPrefix) > len(r.byLength[j].PathPrefix)
	})

	r.warnOverlaps()

	return r, nil
}

// warnOverlaps logs every pair of prefixes where one shadows part of
// the other.
func (r *Router) warnOverlaps() {
	for _, outer := range r.routes {
		for _, inner := range r.routes {
			if outer == inner || !outer.Matches(inner.PathPrefix) {
				continue
			}
			r.logger.Warn("overlapping route prefixes, longest prefix wins",
				observability.String("prefix", outer.PathPrefix),
				observability.String("service", outer.ServiceName),
				observability.String("shadowed_by", inner.PathPrefix),
				observability.String("shadowed_by_service", inner.ServiceName),
			)
		}
	}
}

// Match returns the route with the longest prefix matching path.
func (r *Router) Match(path string) (*Route, error) {
	for _, route := range r.byLength {
		if route.Matches(path) {
			r.metrics.matches.WithLabelValues(route.ServiceName).Inc()
			return route, nil
		}
	}
	r.metrics.misses.Inc()
	return nil, ErrRouteNotFound
}

// Routes returns the routes in configuration order.
func (r *Router) Routes() []*Route {
	out := make([]*Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Prefixes returns the route prefixes in configuration order.
func (r *Router) Prefixes() []string {
	out := make([]string, len(r.routes))
	for i, route := range r.routes {
		out[i] = route.PathPrefix
	}
	return out
}
