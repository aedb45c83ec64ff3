package router

import (
	"fmt"
	"net/url"

	"github.com/fittrack/apigw/internal/config"
)

// Route binds a path prefix to one upstream service.
type Route struct {
	// Name is the short service key (e.g. "workouts").
	Name string

	// ServiceName is the display name used in error responses.
	ServiceName string

	// PathPrefix is the inbound prefix (e.g. "/api/workouts").
	PathPrefix string

	// Upstream is the parsed upstream base URL, including any base path.
	Upstream *url.URL

	// StripPrefix removes PathPrefix before forwarding.
	StripPrefix bool

	// DocsURL is the informational documentation link of the upstream.
	DocsURL string

	matcher *PrefixMatcher
}

// newRoute compiles a route from its service configuration.
func newRoute(svc config.ServiceConfig) (*Route, error) {
	if svc.Prefix == "" || svc.Prefix[0] != '/' {
		return nil, fmt.Errorf("service %s: prefix %q must start with /", svc.Name, svc.Prefix)
	}

	upstream, err := parseUpstream(svc.URL)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", svc.Name, err)
	}

	name := svc.Key
	if name == "" {
		name = svc.Name
	}

	return &Route{
		Name:        name,
		ServiceName: svc.Name,
		PathPrefix:  svc.Prefix,
		Upstream:    upstream,
		StripPrefix: svc.ShouldStripPrefix(),
		DocsURL:     svc.DocsURL(),
		matcher:     NewPrefixMatcher(svc.Prefix),
	}, nil
}

// parseUpstream parses an absolute http or https base URL.
func parseUpstream(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("upstream URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("upstream URL %q must include a host", raw)
	}
	return u, nil
}

// Matches reports whether path falls under the route prefix.
func (r *Route) Matches(path string) bool {
	return r.matcher.Match(path)
}

// RewritePath returns the path sent upstream, relative to the upstream
// base URL.
func (r *Route) RewritePath(path string) string {
	if !r.StripPrefix {
		return path
	}
	return r.matcher.Strip(path)
}

// RewriteURL applies RewritePath to u in place, keeping RawPath
// consistent with Path.
func (r *Route) RewriteURL(u *url.URL) {
	if !r.StripPrefix {
		return
	}
	rewriteURL(u, r.PathPrefix)
}

// String returns a short description of the route.
func (r *Route) String() string {
	return fmt.Sprintf("%s -> %s (%s)", r.PathPrefix, r.Upstream, r.ServiceName)
}
