package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rt0111/onayformukontrol/internal/api/response"
	"github.com/rt0111/onayformukontrol/internal/logging"
	"go.uber.org/zap"
)

func Recovery(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error(r.Context(), "panic recovered",
						zap.String("error", fmt.Sprint(err)),
						zap.String("stack", string(debug.Stack())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
					)
					response.Error(w, http.StatusInternalServerError,
						"INTERNAL_ERROR", "An unexpected error occurred", nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
