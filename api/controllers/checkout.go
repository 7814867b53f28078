package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/cartrescue/cartrescue-backend/api/middleware"
	"github.com/cartrescue/cartrescue-backend/api/responses"
	"github.com/cartrescue/cartrescue-backend/api/validators"
	"github.com/cartrescue/cartrescue-backend/internal/checkouts"
	"github.com/cartrescue/cartrescue-backend/internal/marketing"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
)

type checkoutService interface {
	EnsureCheckoutToken(ctx context.Context, sessionID string, userID int64, userEmail string) (string, error)
	SaveCheckoutData(ctx context.Context, input checkouts.SaveInput) (*checkouts.CheckoutRecord, error)
	CaptureGuestEmail(ctx context.Context, sessionID, email, nonce string) error
	ClearPurchasedData(ctx context.Context, sessionID string) (string, error)
	IssueGuestNonce(ctx context.Context, sessionID string) (string, error)
}

type marketingStore interface {
	UpsertPreference(ctx context.Context, email string, optIn bool, now time.Time) error
	CreateOrderMeta(ctx context.Context, meta *marketing.OrderMeta) error
}

type checkoutViewResponse struct {
	CheckoutUUID string `json:"checkout_uuid"`
	CaptureNonce string `json:"capture_nonce,omitempty"`
}

// CheckoutView marks the session as having reached checkout: the token is
// minted (or reused), the current cart is captured, and guests get a one-time
// nonce for the email capture endpoint.
func CheckoutView(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		userID, userEmail := storefrontIdentity(r)

		checkoutUUID, err := svc.EnsureCheckoutToken(r.Context(), sessionID, userID, userEmail)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := svc.SaveCheckoutData(r.Context(), checkouts.SaveInput{
			SessionID: sessionID,
			UserID:    userID,
			UserEmail: userEmail,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := checkoutViewResponse{CheckoutUUID: checkoutUUID}
		if userID == 0 && userEmail == "" {
			nonce, err := svc.IssueGuestNonce(r.Context(), sessionID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			resp.CaptureNonce = nonce
		}
		responses.WriteSuccess(w, resp)
	}
}

type updateCheckoutRequest struct {
	Email string `json:"email" validate:"omitempty,email,max=254"`
}

// UpdateCheckout re-captures the cart with the billing email typed on the
// checkout page taking precedence over any stored address.
func UpdateCheckout(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		userID, userEmail := storefrontIdentity(r)

		var payload updateCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.SaveCheckoutData(r.Context(), checkouts.SaveInput{
			SessionID:   sessionID,
			UserID:      userID,
			UserEmail:   userEmail,
			PostedEmail: payload.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := map[string]any{"captured": record != nil}
		if record != nil {
			resp["checkout_uuid"] = record.CheckoutUUID
		}
		responses.WriteSuccess(w, resp)
	}
}

type guestEmailRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Nonce string `json:"nonce" validate:"required,uuid4"`
}

// CaptureGuestEmail stores the typed email against the guest session. The
// nonce issued with the checkout page is single use.
func CaptureGuestEmail(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())

		var payload guestEmailRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CaptureGuestEmail(r.Context(), sessionID, payload.Email, payload.Nonce); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"captured": true})
	}
}

type orderCompleteRequest struct {
	OrderID         string `json:"order_id" validate:"required,max=64"`
	Email           string `json:"email" validate:"omitempty,email,max=254"`
	NewsletterOptIn bool   `json:"newsletter_opt_in"`
}

// OrderComplete finalizes a purchase: the newsletter choice is recorded, the
// order is linked to its checkout, and the captured record is deleted so it
// never reports as abandoned.
func OrderComplete(svc checkoutService, store marketingStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		_, userEmail := storefrontIdentity(r)

		var payload orderCompleteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkoutUUID, err := svc.ClearPurchasedData(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		email := payload.Email
		if email == "" {
			email = userEmail
		}

		now := time.Now().UTC()
		if store != nil {
			if email != "" {
				if err := store.UpsertPreference(r.Context(), email, payload.NewsletterOptIn, now); err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
			}
			if err := store.CreateOrderMeta(r.Context(), &marketing.OrderMeta{
				OrderID:         payload.OrderID,
				CheckoutUUID:    checkoutUUID,
				NewsletterOptIn: payload.NewsletterOptIn,
				CreatedAt:       now,
			}); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		responses.WriteSuccess(w, map[string]any{"order_id": payload.OrderID})
	}
}
