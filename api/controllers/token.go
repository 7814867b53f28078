package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/cartrescue/cartrescue-backend/api/responses"
	"github.com/cartrescue/cartrescue-backend/api/validators"
	authsvc "github.com/cartrescue/cartrescue-backend/internal/auth"
	pkgerrors "github.com/cartrescue/cartrescue-backend/pkg/errors"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
)

type tokenIssuer interface {
	IssueToken(ctx context.Context, username, password string) (*authsvc.TokenResult, error)
}

type getTokenRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

type getTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// GetToken exchanges admin credentials for a short-lived report token.
func GetToken(svc tokenIssuer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload getTokenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.IssueToken(r.Context(), payload.Username, payload.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, getTokenResponse{
			Token:     result.Token,
			ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}
