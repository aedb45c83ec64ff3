package router

import (
	"fmt"

	"github.com/fittrack/apigw/internal/config"
)

type serviceSpec struct {
	prefix string
}

func toServiceConfigs(specs []serviceSpec) []config.ServiceConfig {
	services := make([]config.ServiceConfig, len(specs))
	for i, s := range specs {
		services[i] = config.ServiceConfig{
			Name:   fmt.Sprintf("svc%d", i),
			Prefix: s.prefix,
			URL:    fmt.Sprintf("http://upstream-%d:80", i),
		}
	}
	return services
}

func mustDefaultRouter() *Router {
	r, err := New(config.DefaultServices())
	if err != nil {
		panic(err)
	}
	return r
}
