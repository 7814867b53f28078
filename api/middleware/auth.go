package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cartrescue/cartrescue-backend/api/responses"
	pkgAuth "github.com/cartrescue/cartrescue-backend/pkg/auth"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
	pkgerrors "github.com/cartrescue/cartrescue-backend/pkg/errors"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
// Every rejection answers 403 with a typed code so the caller can tell a
// missing header from an expired or forged token.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeAuthNoHeader, ""))
				return
			}

			parts := strings.Fields(raw)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeAuthMalformedHeader, ""))
				return
			}

			if cfg.Secret == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeAuthConfigError, ""))
				return
			}

			claims, err := pkgAuth.ParseReportToken(cfg, parts[1])
			if err != nil {
				responses.WriteError(r.Context(), logg, w, classifyTokenError(err))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			ctx = WithUsername(ctx, claims.Username)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":  claims.UserID,
					"username": claims.Username,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func classifyTokenError(err error) *pkgerrors.Error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return pkgerrors.Wrap(pkgerrors.CodeAuthExpiredToken, err, "")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return pkgerrors.Wrap(pkgerrors.CodeAuthInvalidKey, err, "")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeAuthInvalidToken, err, "")
	}
}
