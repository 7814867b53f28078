package middleware

import (
	"net/http"
	"strings"

	"github.com/cartrescue/cartrescue-backend/api/responses"
	pkgerrors "github.com/cartrescue/cartrescue-backend/pkg/errors"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
)

const sessionIDHeader = "X-Session-Id"

const maxSessionIDLen = 64

// Session requires the storefront session header and seeds the context with it.
// The storefront mints the identifier client-side; the service only needs it to
// be present and bounded.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader))
			if sessionID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing session header").WithDetails(map[string]any{"header": sessionIDHeader}))
				return
			}
			if len(sessionID) > maxSessionIDLen {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session header too long").WithDetails(map[string]any{"header": sessionIDHeader, "max": maxSessionIDLen}))
				return
			}

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
