// Package proxy forwards matched requests to upstream services.
//
// ReverseProxy resolves each request through the router and hands it to
// the forwarder of the matched route. Forwarders share one pooled
// transport, strip the route prefix, rewrite Host to the upstream and
// stream request and response bodies without buffering.
//
// Unmatched requests receive a 404 listing the configured prefixes.
// Upstreams that cannot be reached (refused connection, DNS failure,
// timeout or an open circuit breaker) yield a 503 naming the service.
// Upstream 4xx and 5xx responses are relayed unchanged.
package proxy
