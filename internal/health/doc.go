// Package health provides the gateway's liveness, readiness and health
// endpoints.
//
// /health reports process uptime and never depends on upstreams.
// /ready dials every upstream over TCP and reports "healthy" or
// "degraded"; it is informational only and never influences routing.
// /live is a constant ping.
package health
