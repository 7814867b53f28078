package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cartrescue/cartrescue-backend/api/middleware"
	"github.com/cartrescue/cartrescue-backend/api/responses"
	"github.com/cartrescue/cartrescue-backend/api/validators"
	"github.com/cartrescue/cartrescue-backend/internal/carts"
	"github.com/cartrescue/cartrescue-backend/internal/checkouts"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
	pkgerrors "github.com/cartrescue/cartrescue-backend/pkg/errors"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
	"github.com/cartrescue/cartrescue-backend/pkg/money"
)

type cartService interface {
	Get(ctx context.Context, sessionID string) (*carts.Cart, error)
	AddItem(ctx context.Context, sessionID string, productID, qty int64) (*carts.Cart, error)
	RemoveItem(ctx context.Context, sessionID string, productID int64) (*carts.Cart, error)
	ApplyCoupon(ctx context.Context, sessionID, code string) (*carts.Cart, error)
	PriceCart(ctx context.Context, cart *carts.Cart) (carts.Totals, error)
}

type checkoutRefresher interface {
	RefreshIfStarted(ctx context.Context, input checkouts.SaveInput) (*checkouts.CheckoutRecord, error)
}

type cartItemView struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Qty       int64  `json:"qty"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type cartView struct {
	Items    []cartItemView `json:"items"`
	Coupons  []string       `json:"coupons,omitempty"`
	Subtotal string         `json:"subtotal"`
	Discount string         `json:"discount"`
	Total    string         `json:"total"`
}

// storefrontIdentity reads the shopper identity the storefront proxy attaches.
// Both headers are absent for guests.
func storefrontIdentity(r *http.Request) (int64, string) {
	var userID int64
	if raw := strings.TrimSpace(r.Header.Get("X-User-Id")); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			userID = parsed
		}
	}
	return userID, strings.TrimSpace(r.Header.Get("X-User-Email"))
}

func presentCart(cart *carts.Cart, totals carts.Totals, currency string) cartView {
	items := make([]cartItemView, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemView{
			ProductID: item.ProductID,
			Title:     item.Title,
			Qty:       item.Qty,
			UnitPrice: money.FormatCents(item.PriceCents, currency),
			LineTotal: money.FormatCents(item.LineTotalCents(), currency),
		})
	}
	return cartView{
		Items:    items,
		Coupons:  cart.Coupons,
		Subtotal: money.FormatCents(totals.SubtotalCents, currency),
		Discount: money.FormatCents(totals.DiscountCents, currency),
		Total:    money.FormatCents(totals.TotalCents, currency),
	}
}

// GetCart returns the session's live cart with priced totals.
func GetCart(svc cartService, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		cart, err := svc.Get(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		totals, err := svc.PriceCart(r.Context(), cart)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, presentCart(cart, totals, cfg.Store.CurrencyCode))
	}
}

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Qty       int64 `json:"qty" validate:"required,gt=0"`
}

// AddCartItem merges a product line into the cart and, when a checkout already
// started, re-captures the record so the report stays current.
func AddCartItem(svc cartService, refresher checkoutRefresher, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.AddItem(r.Context(), sessionID, payload.ProductID, payload.Qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := refreshStartedCheckout(r, refresher, sessionID, logg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		totals, err := svc.PriceCart(r.Context(), cart)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, presentCart(cart, totals, cfg.Store.CurrencyCode))
	}
}

func RemoveCartItem(svc cartService, refresher checkoutRefresher, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())

		productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
		if err != nil || productID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id must be a positive integer"))
			return
		}

		cart, err := svc.RemoveItem(r.Context(), sessionID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := refreshStartedCheckout(r, refresher, sessionID, logg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		totals, err := svc.PriceCart(r.Context(), cart)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, presentCart(cart, totals, cfg.Store.CurrencyCode))
	}
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

func ApplyCartCoupon(svc cartService, refresher checkoutRefresher, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())

		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.ApplyCoupon(r.Context(), sessionID, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := refreshStartedCheckout(r, refresher, sessionID, logg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		totals, err := svc.PriceCart(r.Context(), cart)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, presentCart(cart, totals, cfg.Store.CurrencyCode))
	}
}

func refreshStartedCheckout(r *http.Request, refresher checkoutRefresher, sessionID string, logg *logger.Logger) error {
	if refresher == nil {
		return nil
	}
	userID, userEmail := storefrontIdentity(r)
	_, err := refresher.RefreshIfStarted(r.Context(), checkouts.SaveInput{
		SessionID: sessionID,
		UserID:    userID,
		UserEmail: userEmail,
	})
	return err
}
