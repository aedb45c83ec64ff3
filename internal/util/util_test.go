package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.True(t, StartTimeFromContext(ctx).IsZero())
	assert.Zero(t, ElapsedTime(ctx))

	start := time.Now().Add(-time.Second)
	ctx = ContextWithStartTime(ctx, start)

	assert.Equal(t, start, StartTimeFromContext(ctx))
	assert.GreaterOrEqual(t, ElapsedTime(ctx), time.Second)
}

func TestRequestInfo(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/pr/pr", nil)

	// Without a holder, recording is a no-op.
	RecordRoute(req.Context(), "/api/pr", "PR")
	assert.Empty(t, RouteFromContext(req.Context()))
	assert.Empty(t, ServiceFromContext(req.Context()))

	req, info := EnsureRequestInfo(req)
	require.NotNil(t, info)

	again, sameInfo := EnsureRequestInfo(req)
	assert.Same(t, req, again)
	assert.Same(t, info, sameInfo)

	// A derived context still writes to the shared holder.
	inner := context.WithValue(req.Context(), ctxKey("other"), "x")
	RecordRoute(inner, "/api/pr", "PR")

	assert.Equal(t, "/api/pr", RouteFromContext(req.Context()))
	assert.Equal(t, "PR", ServiceFromContext(req.Context()))
	assert.Equal(t, "PR", info.Service)
}

func TestConfigError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ConfigError
		expected string
	}{
		{
			name:     "with field",
			err:      NewConfigError("services[0].prefix", "must start with /"),
			expected: "config error at services[0].prefix: must start with /",
		},
		{
			name:     "without field",
			err:      NewConfigError("", "no services configured"),
			expected: "config error: no services configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.ErrorIs(t, tt.err, ErrConfigInvalid)
		})
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("parse failure")
	err := NewConfigErrorWithCause("services[1].url", "invalid URL", cause)
	wrapped := fmt.Errorf("load: %w", err)

	assert.ErrorIs(t, wrapped, cause)

	var cfgErr *ConfigError
	require.ErrorAs(t, wrapped, &cfgErr)
	assert.Equal(t, "services[1].url", cfgErr.Field)
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusServiceUnavailable, map[string]string{"error": "down"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"error":"down"}`, rec.Body.String())
	assert.Equal(t, "16", rec.Header().Get("Content-Length"))
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]interface{}{"ch": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusCapturingResponseWriter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := NewStatusCapturingResponseWriter(rec)

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusTeapot)
	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)
	rw.Flush()

	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusCreated, rw.StatusCode)
	assert.Equal(t, 5, rw.Size)
	assert.True(t, rw.HeaderWritten)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, rec.Flushed)
	assert.Same(t, rec, rw.Unwrap())
}

func TestStatusCapturingResponseWriter_HijackUnsupported(t *testing.T) {
	t.Parallel()

	rw := NewStatusCapturingResponseWriter(httptest.NewRecorder())

	_, _, err := rw.Hijack()
	assert.ErrorIs(t, err, http.ErrNotSupported)
	assert.False(t, rw.HeaderWritten)
}

// closeNotifyRecorder is a recorder that supports close notification.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestStatusCapturingResponseWriter_CloseNotify(t *testing.T) {
	t.Parallel()

	t.Run("delegates to the wrapped writer", func(t *testing.T) {
		t.Parallel()

		inner := &closeNotifyRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
		rw := NewStatusCapturingResponseWriter(inner)

		inner.closed <- true
		assert.True(t, <-rw.CloseNotify())
	})

	t.Run("never fires without support", func(t *testing.T) {
		t.Parallel()

		rw := NewStatusCapturingResponseWriter(httptest.NewRecorder())

		select {
		case <-rw.CloseNotify():
			t.Fatal("close notification fired without a connection")
		default:
		}
	})
}
