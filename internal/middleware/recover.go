package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/dukerupert/tasklist/internal/handler"
)

// Recoverer turns a panic in next into a 500 response. Outside production
// the panic value is included in the body.
func Recoverer(logger *slog.Logger, production bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				logger.Error("panic serving request",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", v,
					"stack", string(debug.Stack()),
				)
				if production {
					handler.WriteError(w, http.StatusInternalServerError, "Server Error")
					return
				}
				handler.WriteErrorWithStack(w, http.StatusInternalServerError, "Server Error", fmt.Sprint(v))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
