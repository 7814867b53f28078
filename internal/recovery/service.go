package recovery

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cartrescue/cartrescue-backend/internal/carts"
	"github.com/cartrescue/cartrescue-backend/internal/checkouts"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
	pkgerrors "github.com/cartrescue/cartrescue-backend/pkg/errors"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
)

type recordFinder interface {
	FindByUUID(ctx context.Context, checkoutUUID string) (*checkouts.CheckoutRecord, error)
}

type sessionBinder interface {
	SetCheckoutUUID(ctx context.Context, sessionID, checkoutUUID string) error
	SetBillingEmail(ctx context.Context, sessionID, email string) error
}

type cartMutator interface {
	Empty(ctx context.Context, sessionID string) error
	AddItem(ctx context.Context, sessionID string, productID, qty int64) (*carts.Cart, error)
	ApplyCoupon(ctx context.Context, sessionID, code string) (*carts.Cart, error)
}

// Result summarizes a recovery attempt for the redirect response.
type Result struct {
	RedirectURL  string
	RestoredQty  int64
	Unavailable  int
	Notices      []string
	CheckoutUUID string
}

// Service rebuilds a visitor's cart from a saved checkout record.
type Service struct {
	records  recordFinder
	sessions sessionBinder
	carts    cartMutator
	cartURL  string
	logg     *logger.Logger
}

func NewService(records recordFinder, sessions sessionBinder, cartMutator cartMutator, cfg config.StoreConfig, logg *logger.Logger) (*Service, error) {
	if records == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if cartMutator == nil {
		return nil, fmt.Errorf("cart service required")
	}
	return &Service{
		records:  records,
		sessions: sessions,
		carts:    cartMutator,
		cartURL:  cfg.CartURL,
		logg:     logg,
	}, nil
}

// Recover loads the record first and touches nothing when it is gone, so a
// dead link never destroys whatever the visitor has in their cart right now.
// Otherwise the live cart is replaced: every saved line re-adds independently,
// unavailable ones collapse into a single notice, and coupons re-apply on a
// best-effort basis.
func (s *Service) Recover(ctx context.Context, sessionID, checkoutUUID string) (*Result, error) {
	record, err := s.records.FindByUUID(ctx, checkoutUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout")
	}

	if err := s.sessions.SetCheckoutUUID(ctx, sessionID, record.CheckoutUUID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind session token")
	}
	if record.UserEmail != "" {
		if err := s.sessions.SetBillingEmail(ctx, sessionID, record.UserEmail); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore billing email")
		}
	}

	if err := s.carts.Empty(ctx, sessionID); err != nil {
		return nil, err
	}

	result := &Result{
		RedirectURL:  s.cartURL,
		CheckoutUUID: record.CheckoutUUID,
	}

	for _, item := range record.CheckoutContents.Items {
		if _, err := s.carts.AddItem(ctx, sessionID, item.ProductID, item.Qty); err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) || pkgerrors.Is(err, pkgerrors.CodeValidation) {
				result.Unavailable++
				continue
			}
			return nil, err
		}
		result.RestoredQty += item.Qty
	}

	if result.Unavailable > 0 {
		result.Notices = append(result.Notices, unavailableNotice(result.Unavailable))
	}

	for _, code := range record.CheckoutContents.Coupons {
		if _, err := s.carts.ApplyCoupon(ctx, sessionID, code); err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) || pkgerrors.Is(err, pkgerrors.CodeValidation) {
				result.Notices = append(result.Notices, fmt.Sprintf("Coupon %q could not be re-applied.", code))
				continue
			}
			return nil, err
		}
	}

	if s.logg != nil {
		fields := map[string]any{
			"restored_qty": result.RestoredQty,
			"unavailable":  result.Unavailable,
		}
		logCtx := s.logg.WithFields(s.logg.WithCheckoutUUID(s.logg.WithSessionID(ctx, sessionID), checkoutUUID), fields)
		s.logg.Info(logCtx, "checkout.recovered")
	}
	return result, nil
}

func unavailableNotice(count int) string {
	if count == 1 {
		return "1 item from your saved cart is no longer available."
	}
	return fmt.Sprintf("%d items from your saved cart are no longer available.", count)
}
