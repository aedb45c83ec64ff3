package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const infoMessage = "Fitness Tracker API Gateway"

// InfoResponse is the body of GET /. Endpoints maps each service key to
// its path prefix and Documentation to its informational docs URL.
type InfoResponse struct {
	Message       string            `json:"message"`
	Version       string            `json:"version"`
	Endpoints     map[string]string `json:"endpoints"`
	Documentation map[string]string `json:"documentation"`
}

// Info describes the gateway and its route table.
func (g *Gateway) Info() InfoResponse {
	routes := g.router.Routes()
	info := InfoResponse{
		Message:       infoMessage,
		Version:       g.version,
		Endpoints:     make(map[string]string, len(routes)),
		Documentation: make(map[string]string, len(routes)),
	}

	for _, route := range routes {
		info.Endpoints[route.Name] = route.PathPrefix
		info.Documentation[route.Name] = route.DocsURL
	}

	return info
}

func (g *Gateway) infoHandler() gin.HandlerFunc {
	info := g.Info()
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	}
}
