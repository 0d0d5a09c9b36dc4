package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/solvewatch/solvewatch/internal/clientip"
)

// SpanEnricher is a middleware that enriches the current span with request
// metadata: the real client IP and, once routing has happened, the chi route
// pattern. The span itself is opened by the otelhttp handler wrapping the
// router, so it is still live after next returns.
func SpanEnricher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := trace.SpanFromContext(r.Context())

		if ip := clientip.FromRequest(r).Primary; ip != "" {
			span.SetAttributes(attribute.String("client.ip", ip))
		}

		next.ServeHTTP(w, r)

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				span.SetAttributes(attribute.String("http.route", pattern))
			}
		}
	})
}
