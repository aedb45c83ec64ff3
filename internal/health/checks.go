package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/fittrack/apigw/internal/router"
)

// DependencyCheck represents a dependency health check.
type DependencyCheck struct {
	name    string
	target  string
	checkFn func(ctx context.Context) error
}

// Name returns the name of the dependency check.
func (d *DependencyCheck) Name() string {
	return d.name
}

// Target returns the checked address.
func (d *DependencyCheck) Target() string {
	return d.target
}

// Check performs the dependency health check.
func (d *DependencyCheck) Check(ctx context.Context) error {
	start := time.Now()
	err := d.checkFn(ctx)

	RecordHealthCheck(d.name, err == nil, time.Since(start).Seconds())

	return err
}

// NewDependencyCheck creates a new dependency check.
func NewDependencyCheck(name, target string, checkFn func(ctx context.Context) error) *DependencyCheck {
	return &DependencyCheck{
		name:    name,
		target:  target,
		checkFn: checkFn,
	}
}

// TCPHealthCheck creates a check that dials address.
func TCPHealthCheck(name, address string) *DependencyCheck {
	return NewDependencyCheck(name, address, func(ctx context.Context) error {
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return fmt.Errorf("dial %s: %w", address, err)
		}
		return conn.Close()
	})
}

// UpstreamChecks creates one TCP check per route, named by the route key.
func UpstreamChecks(routes []*router.Route) []*DependencyCheck {
	checks := make([]*DependencyCheck, 0, len(routes))
	for _, route := range routes {
		checks = append(checks, TCPHealthCheck(route.Name, hostPort(route.Upstream)))
	}
	return checks
}

// hostPort returns the dial address of u, filling in the scheme's
// default port.
func hostPort(u *url.URL) string {
	if port := u.Port(); port != "" {
		return net.JoinHostPort(u.Hostname(), port)
	}
	if u.Scheme == "https" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}
