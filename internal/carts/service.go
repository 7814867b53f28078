package carts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cartrescue/cartrescue-backend/internal/coupons"
	"github.com/cartrescue/cartrescue-backend/internal/products"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
	pkgerrors "github.com/cartrescue/cartrescue-backend/pkg/errors"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
	redispkg "github.com/cartrescue/cartrescue-backend/pkg/redis"
)

type productCatalog interface {
	FindByID(ctx context.Context, id int64) (*products.Product, error)
}

type couponCatalog interface {
	FindActiveByCode(ctx context.Context, code string) (*coupons.Coupon, error)
	FindActiveByCodes(ctx context.Context, codes []string) (map[string]coupons.Coupon, error)
}

// Service manages the visitor's live cart in Redis.
type Service struct {
	redis    *redispkg.Client
	products productCatalog
	coupons  couponCatalog
	ttl      time.Duration
	logg     *logger.Logger
}

func NewService(client *redispkg.Client, productRepo productCatalog, couponRepo couponCatalog, cfg config.CheckoutsConfig, logg *logger.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if couponRepo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &Service{
		redis:    client,
		products: productRepo,
		coupons:  couponRepo,
		ttl:      cfg.SessionTTL,
		logg:     logg,
	}, nil
}

// Get loads the session's cart, returning an empty cart when none exists.
func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	raw, err := s.redis.Get(ctx, s.redis.CartKey(sessionID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return &Cart{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		// a corrupt cart is unrecoverable; start fresh rather than wedging the visitor
		if s.logg != nil {
			s.logg.Warn(s.logg.WithSessionID(ctx, sessionID), "cart.corrupt_payload")
		}
		return &Cart{}, nil
	}
	return &cart, nil
}

// AddItem validates the product and merges the quantity into the cart.
func (s *Service) AddItem(ctx context.Context, sessionID string, productID, qty int64) (*Cart, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	requested := qty
	for _, item := range cart.Items {
		if item.ProductID == productID {
			requested += item.Qty
		}
	}
	if !product.Purchasable(requested) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product unavailable").WithDetails(map[string]any{
			"product_id": productID,
			"requested":  requested,
			"in_stock":   product.StockQty,
		})
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Qty += qty
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, Item{
			ProductID:  product.ID,
			Title:      product.Title,
			Qty:        qty,
			PriceCents: product.PriceCents,
		})
	}

	if err := s.save(ctx, sessionID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem drops the product line from the cart. Removing an absent product
// is a no-op.
func (s *Service) RemoveItem(ctx context.Context, sessionID string, productID int64) (*Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept

	if err := s.save(ctx, sessionID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// ApplyCoupon validates and attaches the code to the cart.
func (s *Service) ApplyCoupon(ctx context.Context, sessionID, code string) (*Cart, error) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}

	coupon, err := s.coupons.FindActiveByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	stored := strings.ToLower(coupon.Code)
	if cart.HasCoupon(stored) {
		return cart, nil
	}
	cart.Coupons = append(cart.Coupons, stored)

	if err := s.save(ctx, sessionID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Empty discards the cart entirely.
func (s *Service) Empty(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.redis.CartKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "empty cart")
	}
	return nil
}

// PriceCart resolves the applied coupons and computes totals.
func (s *Service) PriceCart(ctx context.Context, cart *Cart) (Totals, error) {
	if cart.IsEmpty() {
		return Totals{}, nil
	}
	byCode, err := s.coupons.FindActiveByCodes(ctx, cart.Coupons)
	if err != nil {
		return Totals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupons")
	}
	percentByCode := make(map[string]decimal.Decimal, len(byCode))
	for code, coupon := range byCode {
		percentByCode[code] = coupon.PercentOff
	}
	return ComputeTotals(cart, percentByCode), nil
}

func (s *Service) save(ctx context.Context, sessionID string, cart *Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.redis.Set(ctx, s.redis.CartKey(sessionID), string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}
