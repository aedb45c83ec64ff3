package middleware

import (
	"net"
	"net/http"
)

// ClientIP returns the peer address of the request without the port.
// Forwarding headers are not trusted.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
