package router

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fittrack/apigw/internal/config"
	"github.com/fittrack/apigw/internal/observability"
)

func newDefaultRouter(t *testing.T) *Router {
	t.Helper()

	r, err := New(config.DefaultServices())
	require.NoError(t, err)
	return r
}

func TestNew_DefaultServices(t *testing.T) {
	t.Parallel()

	r := newDefaultRouter(t)

	assert.Equal(t, []string{
		"/api/auth",
		"/api/workouts",
		"/api/nutrition",
		"/api/pr",
		"/api/templates",
		"/api/chatbot",
	}, r.Prefixes())

	routes := r.Routes()
	require.Len(t, routes, 6)
	assert.Equal(t, "auth", routes[0].Name)
	assert.Equal(t, "Auth", routes[0].ServiceName)
	assert.Equal(t, "localhost:3001", routes[0].Upstream.Host)
	assert.True(t, routes[0].StripPrefix)
	assert.Equal(t, "http://localhost:3001/api-docs", routes[0].DocsURL)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		services []config.ServiceConfig
		target   error
		contains string
	}{
		{
			name:   "empty table",
			target: ErrEmptyRouteTable,
		},
		{
			name: "duplicate prefix",
			services: []config.ServiceConfig{
				{Name: "A", Prefix: "/api/a", URL: "http://a"},
				{Name: "B", Prefix: "/api/a", URL: "http://b"},
			},
			target: config.ErrDuplicatePrefix,
		},
		{
			name: "relative prefix",
			services: []config.ServiceConfig{
				{Name: "A", Prefix: "api/a", URL: "http://a"},
			},
			contains: "must start with /",
		},
		{
			name: "unparseable url",
			services: []config.ServiceConfig{
				{Name: "A", Prefix: "/a", URL: "http://[::1"},
			},
			contains: "invalid upstream URL",
		},
		{
			name: "non http scheme",
			services: []config.ServiceConfig{
				{Name: "A", Prefix: "/a", URL: "ws://a"},
			},
			contains: "must use http or https",
		},
		{
			name: "missing host",
			services: []config.ServiceConfig{
				{Name: "A", Prefix: "/a", URL: "http:///path"},
			},
			contains: "must include a host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := New(tt.services)
			require.Error(t, err)
			assert.Nil(t, r)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target))
			}
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestRouter_Match(t *testing.T) {
	t.Parallel()

	r := newDefaultRouter(t)

	tests := []struct {
		path    string
		service string
		found   bool
	}{
		{path: "/api/auth", service: "Auth", found: true},
		{path: "/api/auth/login", service: "Auth", found: true},
		{path: "/api/pr", service: "PR", found: true},
		{path: "/api/pr/pr", service: "PR", found: true},
		{path: "/api/prx", found: false},
		{path: "/api/workouts/123/sets", service: "Workouts", found: true},
		{path: "/api/chatbot/", service: "Chatbot", found: true},
		{path: "/unknown/path", found: false},
		{path: "/api", found: false},
		{path: "/", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			route, err := r.Match(tt.path)
			if !tt.found {
				assert.ErrorIs(t, err, ErrRouteNotFound)
				assert.Nil(t, route)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.service, route.ServiceName)
		})
	}
}

func TestRouter_Match_LongestPrefixWins(t *testing.T) {
	t.Parallel()

	r, err := New([]config.ServiceConfig{
		{Name: "API", Prefix: "/api", URL: "http://api"},
		{Name: "Nested", Prefix: "/api/nested", URL: "http://nested"},
	})
	require.NoError(t, err)

	route, err := r.Match("/api/nested/x")
	require.NoError(t, err)
	assert.Equal(t, "Nested", route.ServiceName)

	route, err = r.Match("/api/nestedx")
	require.NoError(t, err)
	assert.Equal(t, "API", route.ServiceName)

	// Listing keeps configuration order.
	assert.Equal(t, []string{"/api", "/api/nested"}, r.Prefixes())
}

func TestNew_WarnsOnOverlap(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)

	_, err := New([]config.ServiceConfig{
		{Name: "API", Prefix: "/api", URL: "http://api"},
		{Name: "Nested", Prefix: "/api/nested", URL: "http://nested"},
		{Name: "Other", Prefix: "/other", URL: "http://other"},
	}, WithLogger(observability.NewLoggerFromZap(zap.New(core))))
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/api", fields["prefix"])
	assert.Equal(t, "/api/nested", fields["shadowed_by"])
}

func TestRoute_RewritePath(t *testing.T) {
	t.Parallel()

	r := newDefaultRouter(t)
	auth, err := r.Match("/api/auth")
	require.NoError(t, err)

	assert.Equal(t, "/", auth.RewritePath("/api/auth"))
	assert.Equal(t, "/login", auth.RewritePath("/api/auth/login"))
	assert.Equal(t, "/", auth.RewritePath("/api/auth/"))

	keep := false
	r, err = New([]config.ServiceConfig{
		{Name: "Legacy", Prefix: "/legacy", URL: "http://legacy", StripPrefix: &keep},
	})
	require.NoError(t, err)
	legacy, err := r.Match("/legacy/a")
	require.NoError(t, err)
	assert.Equal(t, "/legacy/a", legacy.RewritePath("/legacy/a"))

	u := &url.URL{Path: "/legacy/a"}
	legacy.RewriteURL(u)
	assert.Equal(t, "/legacy/a", u.Path)
}

func TestRoute_RewriteURL_RawPath(t *testing.T) {
	t.Parallel()

	r := newDefaultRouter(t)
	route, err := r.Match("/api/templates/a b")
	require.NoError(t, err)

	u, err := url.Parse("/api/templates/a%2Fb?x=1")
	require.NoError(t, err)
	route.RewriteURL(u)

	assert.Equal(t, "/a/b", u.Path)
	assert.Equal(t, "/a%2Fb", u.RawPath)
	assert.Equal(t, "/a%2Fb", u.EscapedPath())
	assert.Equal(t, "x=1", u.RawQuery)
}

func TestRewriteURL_RawPathWithoutPrefix(t *testing.T) {
	t.Parallel()

	u := &url.URL{Path: "/api/x/y", RawPath: "/%61pi/x/y"}
	rewriteURL(u, "/api")

	assert.Equal(t, "/x/y", u.Path)
	assert.Empty(t, u.RawPath)
}

func TestRoute_String(t *testing.T) {
	t.Parallel()

	r := newDefaultRouter(t)
	route, err := r.Match("/api/pr")
	require.NoError(t, err)

	assert.Equal(t, "/api/pr -> http://localhost:3004 (PR)", route.String())
}

func TestPrefixMatcher(t *testing.T) {
	t.Parallel()

	m := NewPrefixMatcher("/api/pr")
	assert.Equal(t, "/api/pr", m.Pattern())
	assert.True(t, m.Match("/api/pr"))
	assert.True(t, m.Match("/api/pr/"))
	assert.False(t, m.Match("/api/prx"))
	assert.False(t, m.Match("/api/p"))

	root := NewPrefixMatcher("/")
	assert.True(t, root.Match("/anything"))
	assert.Equal(t, "/anything", root.Strip("/anything"))
}
