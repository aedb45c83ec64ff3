package util

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
)

// WriteJSON writes v as a JSON response with the given status code.
// The body carries no trailing newline.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// StatusCapturingResponseWriter wraps http.ResponseWriter to track status code
// and bytes written. Unwrap exposes the underlying writer to
// http.ResponseController so flushing and hijacking keep working.
type StatusCapturingResponseWriter struct {
	http.ResponseWriter
	StatusCode    int
	Size          int
	HeaderWritten bool
}

// NewStatusCapturingResponseWriter creates a new StatusCapturingResponseWriter
// wrapping the provided http.ResponseWriter with a default status of 200 OK.
func NewStatusCapturingResponseWriter(w http.ResponseWriter) *StatusCapturingResponseWriter {
	return &StatusCapturingResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code and writes it to the underlying ResponseWriter.
func (w *StatusCapturingResponseWriter) WriteHeader(code int) {
	if w.HeaderWritten {
		return
	}
	w.StatusCode = code
	w.HeaderWritten = true
	w.ResponseWriter.WriteHeader(code)
}

// Write writes data to the underlying ResponseWriter and marks header as written.
func (w *StatusCapturingResponseWriter) Write(b []byte) (int, error) {
	if !w.HeaderWritten {
		w.HeaderWritten = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.Size += n
	return n, err
}

// Flush implements http.Flusher interface for streaming support.
func (w *StatusCapturingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		if !w.HeaderWritten {
			w.HeaderWritten = true
		}
		f.Flush()
	}
}

// Hijack lets connection upgrades pass through the wrapper.
func (w *StatusCapturingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := http.NewResponseController(w.ResponseWriter).Hijack()
	if err == nil {
		w.HeaderWritten = true
	}
	return conn, rw, err
}

// CloseNotify implements http.CloseNotifier.
func (w *StatusCapturingResponseWriter) CloseNotify() <-chan bool {
	return CloseNotify(w.ResponseWriter)
}

// Unwrap returns the wrapped ResponseWriter.
func (w *StatusCapturingResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// CloseNotify returns w's close notification channel, or a channel that
// never fires when w does not provide one. gin's response writer asserts
// http.CloseNotifier on the writer it wraps without checking, and
// httputil.ReverseProxy calls it for requests without a cancelable
// context.
func CloseNotify(w http.ResponseWriter) <-chan bool {
	if cn, ok := w.(http.CloseNotifier); ok { //nolint:staticcheck // required by gin
		return cn.CloseNotify()
	}
	return make(chan bool)
}

// Compile-time interface assertions.
var (
	_ http.Flusher       = (*StatusCapturingResponseWriter)(nil)
	_ http.Hijacker      = (*StatusCapturingResponseWriter)(nil)
	_ http.CloseNotifier = (*StatusCapturingResponseWriter)(nil) //nolint:staticcheck // required by gin
)
