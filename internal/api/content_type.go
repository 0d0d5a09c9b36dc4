package api

import (
	"net/http"
	"strings"

	"github.com/solvewatch/solvewatch/internal/logger"
)

// validateContentType rejects body-carrying requests that do not declare a
// JSON payload. Media type parameters like charset are ignored.
func validateContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				logger.Ctx(r.Context()).Info("request missing Content-Type header",
					"method", r.Method, "path", r.URL.Path)
				http.Error(w, "Content-Type header required", http.StatusUnsupportedMediaType)
				return
			}

			mediaType, _, _ := strings.Cut(contentType, ";")
			if strings.TrimSpace(mediaType) != "application/json" {
				logger.Ctx(r.Context()).Info("request with invalid Content-Type",
					"method", r.Method, "path", r.URL.Path, "content_type", mediaType)
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
