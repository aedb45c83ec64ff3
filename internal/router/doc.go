// Package router resolves inbound request paths to upstream services.
//
// Routes are built once from the service configuration and never change
// afterwards, so a Router is safe for concurrent use without locking.
//
// # Matching
//
// Prefixes match on path segment boundaries: "/api/pr" matches "/api/pr"
// and "/api/pr/123" but not "/api/prx". When several prefixes match, the
// longest one wins.
//
// # Usage
//
//	r, err := router.New(cfg.Services, router.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	route, err := r.Match(req.URL.Path)
//	if errors.Is(err, router.ErrRouteNotFound) {
//	    // respond 404
//	}
package router
