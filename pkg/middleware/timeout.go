package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/logger"
)

// Timeout bounds each request to timeout. When the deadline passes before
// the handler has written anything, the client receives 503 and later writes
// from the handler are discarded.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			done := make(chan struct{})
			tw := &timeoutWriter{ResponseWriter: w, header: make(http.Header)}
			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()
			select {
			case <-done:
				tw.flush()
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.timedOut = true
				if !tw.wroteHeader {
					logger.FromContext(r.Context()).Warn("request timed out",
						"method", r.Method, "path", r.URL.Path, "timeout", timeout)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusServiceUnavailable)
					w.Write([]byte(`{"error":"request timeout","code":"TIMEOUT"}` + "\n"))
					return
				}
				tw.flushLocked()
			}
		})
	}
}

// timeoutWriter buffers the handler's response so that only one of the
// handler and the timeout path ever writes to the real ResponseWriter.
type timeoutWriter struct {
	http.ResponseWriter
	mu          sync.Mutex
	header      http.Header
	body        []byte
	status      int
	wroteHeader bool
	timedOut    bool
	flushed     bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.header }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wroteHeader {
		return
	}
	tw.status = code
	tw.wroteHeader = true
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wroteHeader {
		tw.status = http.StatusOK
		tw.wroteHeader = true
	}
	tw.body = append(tw.body, b...)
	return len(b), nil
}

func (tw *timeoutWriter) flush() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.flushLocked()
}

func (tw *timeoutWriter) flushLocked() {
	if tw.flushed {
		return
	}
	tw.flushed = true
	dst := tw.ResponseWriter.Header()
	for k, v := range tw.header {
		dst[k] = v
	}
	if !tw.wroteHeader {
		tw.status = http.StatusOK
	}
	tw.ResponseWriter.WriteHeader(tw.status)
	tw.ResponseWriter.Write(tw.body)
}
