package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fittrack/apigw/internal/config"
	"github.com/fittrack/apigw/internal/observability"
	"github.com/fittrack/apigw/internal/router"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// testConfig returns the default configuration with some upstream URLs
// replaced, keyed by service name.
func testConfig(urls map[string]string) *config.Config {
	cfg := config.DefaultConfig()
	for i := range cfg.Services {
		if u, ok := urls[cfg.Services[i].Name]; ok {
			cfg.Services[i].URL = u
		}
	}
	return cfg
}

// closedPortURL returns an http URL nothing listens on.
func closedPortURL(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	return "http://" + addr
}

func serve(t *testing.T, g *Gateway, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, body))
	return rec
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "stopped"},
		{StateStarting, "starting"},
		{StateRunning, "running"},
		{StateStopping, "stopping"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	dup := config.DefaultConfig()
	dup.Services[1].Prefix = dup.Services[0].Prefix
	_, err = New(dup)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, config.ErrDuplicatePrefix)

	empty := config.DefaultConfig()
	empty.Services = nil
	_, err = New(empty)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, router.ErrEmptyRouteTable)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	g, err := New(config.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, StateStopped, g.State())
	assert.False(t, g.IsRunning())
	assert.Nil(t, g.Addr())
	assert.Zero(t, g.Uptime())
	assert.Equal(t, config.DefaultShutdownTimeout, g.shutdownTimeout)
	assert.Len(t, g.Router().Routes(), 6)
	assert.NotNil(t, g.Engine())
	assert.NotNil(t, g.Checker())
	assert.Same(t, g.config, g.Config())
}

func TestGateway_ForwardsAndRelays(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath, gotBody, gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"abc123","message":"created"}`)
	}))
	defer upstream.Close()

	g, err := New(testConfig(map[string]string{"PR": upstream.URL}))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/pr/pr", strings.NewReader(`{"exercise":"squat","weight":140}`))
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"id":"abc123","message":"created"}`, rec.Body.String())
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/pr", gotPath)
	assert.Equal(t, `{"exercise":"squat","weight":140}`, gotBody)
	assert.Equal(t, "Bearer token", gotAuth)
}

func TestGateway_RelaysUpstreamHeadersVerbatim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		clientRequestID string
	}{
		{name: "client without request ID"},
		{name: "client with request ID", clientRequestID: "client-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var upstreamSaw []string
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				upstreamSaw = r.Header.Values("X-Request-ID")
				w.Header().Set("X-Request-ID", "upstream-id")
				w.Header().Set("X-Upstream", "workouts")
				w.WriteHeader(http.StatusOK)
				_, _ = io.WriteString(w, `[]`)
			}))
			defer upstream.Close()

			g, err := New(testConfig(map[string]string{"Workouts": upstream.URL}))
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/api/workouts/", nil)
			if tt.clientRequestID != "" {
				req.Header.Set("X-Request-ID", tt.clientRequestID)
			}
			rec := httptest.NewRecorder()
			g.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, []string{"upstream-id"}, rec.Header().Values("X-Request-ID"))
			assert.Equal(t, []string{"workouts"}, rec.Header().Values("X-Upstream"))
			if tt.clientRequestID != "" {
				assert.Equal(t, []string{tt.clientRequestID}, upstreamSaw)
			} else {
				assert.Empty(t, upstreamSaw)
			}
		})
	}
}

// httptest.NewRequest carries a context that is never canceled, which makes
// the reverse proxy fall back to close notification on the response writer.
func TestGateway_ForwardsWithoutCancelableContext(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, r.Method)
	}))
	defer upstream.Close()

	tracer, err := observability.NewTracer(observability.TracerConfig{ServiceName: "api-gateway"})
	require.NoError(t, err)

	g, err := New(testConfig(map[string]string{"Nutrition": upstream.URL}),
		WithMetrics(observability.NewMetrics("closenotify")), WithTracer(tracer))
	require.NoError(t, err)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		rec := serve(t, g, method, "/api/nutrition/meals", nil)
		assert.Equal(t, http.StatusAccepted, rec.Code, method)
		assert.Equal(t, method, rec.Body.String(), method)
	}
}

func TestGateway_UnknownRoute(t *testing.T) {
	t.Parallel()

	g, err := New(config.DefaultConfig())
	require.NoError(t, err)

	rec := serve(t, g, http.MethodGet, "/unknown/path", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t,
		`{"error":"Not Found","message":"Route /unknown/path not found","availableRoutes":`+
			`["/api/auth","/api/workouts","/api/nutrition","/api/pr","/api/templates","/api/chatbot"]}`,
		rec.Body.String())
}

func TestGateway_NoRedirects(t *testing.T) {
	t.Parallel()

	g, err := New(config.DefaultConfig())
	require.NoError(t, err)

	for _, target := range []string{"/health/", "/HEALTH", "/api/prx"} {
		rec := serve(t, g, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Empty(t, rec.Header().Get("Location"), target)
	}
}

func TestGateway_UpstreamUnavailable(t *testing.T) {
	t.Parallel()

	g, err := New(testConfig(map[string]string{"Workouts": closedPortURL(t)}))
	require.NoError(t, err)

	rec := serve(t, g, http.MethodGet, "/api/workouts/anything", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Workouts Service unavailable", body["error"])
	assert.NotEmpty(t, body["message"])
}

func TestGateway_EmptyUpstream404IsRelayed(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	g, err := New(testConfig(map[string]string{"Templates": upstream.URL}))
	require.NoError(t, err)

	rec := serve(t, g, http.MethodGet, "/api/templates/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestGateway_Health(t *testing.T) {
	t.Parallel()

	g, err := New(config.DefaultConfig())
	require.NoError(t, err)

	rec := serve(t, g, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "API Gateway", body["service"])
	assert.Contains(t, body, "timestamp")
	assert.Contains(t, body, "uptimeSeconds")
}

func TestGateway_LiveAndReady(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.NotFoundHandler())
	defer upstream.Close()

	urls := map[string]string{}
	for _, svc := range config.DefaultServices() {
		urls[svc.Name] = upstream.URL
	}
	g, err := New(testConfig(urls))
	require.NoError(t, err)

	rec := serve(t, g, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(t, g, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string                     `json:"status"`
		Checks map[string]json.RawMessage `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Len(t, body.Checks, 6)
}

func TestGateway_Info(t *testing.T) {
	t.Parallel()

	g, err := New(config.DefaultConfig(), WithVersion("1.2.3"))
	require.NoError(t, err)

	rec := serve(t, g, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var info InfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "Fitness Tracker API Gateway", info.Message)
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, map[string]string{
		"auth":      "/api/auth",
		"workouts":  "/api/workouts",
		"nutrition": "/api/nutrition",
		"pr":        "/api/pr",
		"templates": "/api/templates",
		"chatbot":   "/api/chatbot",
	}, info.Endpoints)
	assert.Equal(t, "http://localhost:3001/api-docs", info.Documentation["auth"])
	assert.Equal(t, "http://localhost:3006/api-docs", info.Documentation["chatbot"])
}

func TestGateway_InfoOnlyAnswersGET(t *testing.T) {
	t.Parallel()

	g, err := New(config.DefaultConfig())
	require.NoError(t, err)

	rec := serve(t, g, http.MethodPost, "/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Route / not found"`)
}

func TestGateway_MetricsSeeMatchedService(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "[]")
	}))
	defer upstream.Close()

	metrics := observability.NewMetrics("fittest")
	g, err := New(testConfig(map[string]string{"Workouts": upstream.URL}), WithMetrics(metrics))
	require.NoError(t, err)

	rec := serve(t, g, http.MethodGet, "/api/workouts/list", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	serve(t, g, http.MethodGet, "/nowhere", nil)

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := scrape.Body.String()

	assert.Contains(t, out, `fittest_requests_total{method="GET",service="Workouts",status="200"} 1`)
	assert.Contains(t, out, `fittest_requests_total{method="GET",service="gateway",status="404"} 1`)
	assert.Contains(t, out, `gateway_proxy_upstream_requests_total{service="Workouts",status="200"} 1`)
}

func TestGateway_RateLimit(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}

	g, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serve(t, g, http.MethodGet, "/live", nil).Code)

	rec := serve(t, g, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestGateway_CORSPreflight(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.CORS.Enabled = true

	g, err := New(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGateway_StartStop(t *testing.T) {
	t.Parallel()

	g, err := New(config.DefaultConfig(), WithAddress("127.0.0.1:0"), WithShutdownTimeout(5*time.Second))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, g.Start(ctx))
	assert.Equal(t, StateRunning, g.State())
	assert.True(t, g.IsRunning())
	require.NotNil(t, g.Addr())
	assert.ErrorIs(t, g.Start(ctx), ErrGatewayNotStopped)

	resp, err := http.Get("http://" + g.Addr().String() + "/live")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Positive(t, g.Uptime())

	require.NoError(t, g.Stop(ctx))
	assert.Equal(t, StateStopped, g.State())
	assert.ErrorIs(t, g.Stop(ctx), ErrGatewayNotRunning)
}

func TestGateway_StartFailsOnBusyAddress(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	g, err := New(config.DefaultConfig(), WithAddress(ln.Addr().String()))
	require.NoError(t, err)

	assert.Error(t, g.Start(context.Background()))
	assert.Equal(t, StateStopped, g.State())
}
