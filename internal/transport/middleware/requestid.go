package middleware

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/frahmantamala/expense-approval/pkg/tracing"
)

const TraceIDHeader = "X-Trace-ID"

// RequestID opens the request span and settles the trace id: an inbound
// X-Trace-ID wins, then the span's own trace id, then a fresh uuid. The id
// is echoed back and bound to the context logger as "traceID".
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.StartSpan(r.Context(), "http "+r.Method,
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
		)

		traceID := r.Header.Get(TraceIDHeader)
		if !validTraceID(traceID) {
			traceID = span.TraceID()
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}
		span.SetAttributes(attribute.String("trace.external_id", traceID))

		ctx = logger.With(ctx, "traceID", traceID)
		w.Header().Set(TraceIDHeader, traceID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		var spanErr error
		if status >= http.StatusInternalServerError {
			spanErr = fmt.Errorf("http status %d", status)
		}
		tracing.EndSpan(span, spanErr)
	})
}

func validTraceID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
