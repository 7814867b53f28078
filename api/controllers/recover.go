package controllers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cartrescue/cartrescue-backend/api/middleware"
	"github.com/cartrescue/cartrescue-backend/api/responses"
	"github.com/cartrescue/cartrescue-backend/internal/recovery"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
	pkgerrors "github.com/cartrescue/cartrescue-backend/pkg/errors"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
)

type recoverer interface {
	Recover(ctx context.Context, sessionID, checkoutUUID string) (*recovery.Result, error)
}

// RecoverCheckout rebuilds the cart from a saved record and redirects the
// visitor to the cart page. A dead token redirects home without touching the
// live cart. Notices cannot ride a redirect, so the outcome travels as query
// parameters for the storefront to render.
func RecoverCheckout(svc recoverer, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())

		token := strings.TrimSpace(r.URL.Query().Get(cfg.Checkouts.RecoveryParam))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "recovery token required"))
			return
		}

		result, err := svc.Recover(r.Context(), sessionID, token)
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
				http.Redirect(w, r, withQuery(cfg.Store.HomeURL, url.Values{"checkout_recovered": {"0"}}), http.StatusFound)
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := url.Values{"checkout_recovered": {"1"}}
		if result.Unavailable > 0 {
			params.Set("unavailable_items", strconv.Itoa(result.Unavailable))
		}
		http.Redirect(w, r, withQuery(result.RedirectURL, params), http.StatusFound)
	}
}

func withQuery(base string, params url.Values) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + params.Encode()
}
