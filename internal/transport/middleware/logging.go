package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/expense-approval/pkg/logger"
)

// maxLoggedBody caps how much of a request or response body lands in the log.
const maxLoggedBody = 4 << 10

const redacted = "[FILTERED]"

// sensitiveKeys are matched as substrings against lower-cased header and JSON keys.
var sensitiveKeys = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"api_key",
	"session",
	"credential",
	"cookie",
}

// quietPaths are probed constantly; only failures are logged for them.
var quietPaths = map[string]bool{
	"/api/v1/health": true,
	"/api/v1/ping":   true,
}

// LoggingMiddleware writes one access line per request and attaches
// request_id to the context logger so downstream logs carry it.
func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			ctx := logger.With(r.Context(), "request_id", reqID)

			reqBody := peekBody(r)

			var respBody bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&limitedWriter{buf: &respBody, max: maxLoggedBody})

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if quietPaths[r.URL.Path] && status < http.StatusBadRequest {
				return
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			attrs := []any{
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", ww.BytesWritten(),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", redactHeaders(r.Header),
			}
			if key := r.Header.Get(IdempotencyKeyHeader); key != "" {
				attrs = append(attrs, "idempotency_key", key)
			}
			if reqBody != "" {
				attrs = append(attrs, "request_body", reqBody)
			}
			if level > slog.LevelInfo {
				attrs = append(attrs, "response_body", redactBody(respBody.Bytes()))
			}

			base.Log(ctx, level, "http request", attrs...)
		})
	}
}

// peekBody reads the request body and puts an equivalent reader back.
func peekBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	raw, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	if len(raw) > maxLoggedBody {
		return "[TRUNCATED]"
	}
	return redactBody(raw)
}

type limitedWriter struct {
	buf *bytes.Buffer
	max int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if room := l.max - l.buf.Len(); room > 0 {
		if len(p) > room {
			l.buf.Write(p[:room])
		} else {
			l.buf.Write(p)
		}
	}
	return len(p), nil
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	if k == "idempotency-key" {
		return false
	}
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSensitive(name) {
			out[name] = redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		// Not JSON; refuse to echo anything that smells like a credential.
		lower := strings.ToLower(string(body))
		for _, s := range sensitiveKeys {
			if strings.Contains(lower, s) {
				return redacted
			}
		}
		return string(body)
	}
	out, err := json.Marshal(redactJSON(doc))
	if err != nil {
		return redacted
	}
	return string(out)
}

func redactJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if isSensitive(k) {
				out[k] = redacted
				continue
			}
			out[k] = redactJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = redactJSON(item)
		}
		return out
	default:
		return v
	}
}
