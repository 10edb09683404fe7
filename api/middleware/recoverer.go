package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/lojinha-app/lojinha-backend/api/responses"
	pkgerrors "github.com/lojinha-app/lojinha-backend/pkg/errors"
	"github.com/lojinha-app/lojinha-backend/pkg/logger"
)

// Recoverer turns handler panics into 500 responses. The panic value,
// route, and stack go to the log; the storefront client only sees the
// generic internal error envelope.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err := fmt.Errorf("panic: %v", rec)
					ctx := r.Context()
					if logg != nil {
						ctx = logg.WithFields(ctx, map[string]any{
							"panic":  fmt.Sprintf("%v", rec),
							"method": r.Method,
							"path":   r.URL.Path,
							"stack":  string(debug.Stack()),
						})
						logg.Error(ctx, "panic recovered while serving request", err)
					}
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
