package checkouts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cartrescue/cartrescue-backend/internal/carts"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
	pkgerrors "github.com/cartrescue/cartrescue-backend/pkg/errors"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
)

type recordStore interface {
	Upsert(ctx context.Context, record *CheckoutRecord) error
	FindUUIDByUser(ctx context.Context, userID int64, email string) (string, error)
	DeleteByUUID(ctx context.Context, checkoutUUID string) error
}

type sessionStore interface {
	CheckoutUUID(ctx context.Context, sessionID string) (string, error)
	SetCheckoutUUID(ctx context.Context, sessionID, checkoutUUID string) error
	ClearCheckoutUUID(ctx context.Context, sessionID string) error
	BillingEmail(ctx context.Context, sessionID string) (string, error)
	SetBillingEmail(ctx context.Context, sessionID, email string) error
	IssueGuestNonce(ctx context.Context, sessionID string) (string, error)
	ConsumeGuestNonce(ctx context.Context, sessionID, nonce string) (bool, error)
}

type cartReader interface {
	Get(ctx context.Context, sessionID string) (*carts.Cart, error)
	PriceCart(ctx context.Context, cart *carts.Cart) (carts.Totals, error)
}

// SaveInput describes one capture request from the storefront.
type SaveInput struct {
	SessionID   string
	UserID      int64  // 0 for guests
	UserEmail   string // account email when authenticated
	PostedEmail string // billing email typed on the checkout page
}

// Service captures and maintains checkout records.
type Service struct {
	records         recordStore
	sessions        sessionStore
	carts           cartReader
	deleteOnEmptied bool
	logg            *logger.Logger
	now             func() time.Time
}

func NewService(records recordStore, sessions sessionStore, cartReader cartReader, cfg config.CheckoutsConfig, logg *logger.Logger) (*Service, error) {
	if records == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if cartReader == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	return &Service{
		records:         records,
		sessions:        sessions,
		carts:           cartReader,
		deleteOnEmptied: cfg.DeleteOnEmptied,
		logg:            logg,
		now:             time.Now,
	}, nil
}

// EnsureCheckoutToken returns the session's checkout uuid, minting one when
// the visitor reaches checkout for the first time. An authenticated visitor
// with an older capture gets that row's uuid back, so their record keeps
// updating in place across sessions.
func (s *Service) EnsureCheckoutToken(ctx context.Context, sessionID string, userID int64, userEmail string) (string, error) {
	existing, err := s.sessions.CheckoutUUID(ctx, sessionID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session token")
	}
	if existing != "" {
		return existing, nil
	}

	if userID > 0 || userEmail != "" {
		prior, err := s.records.FindUUIDByUser(ctx, userID, normalizeEmail(userEmail))
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find prior checkout")
		}
		if prior != "" {
			if err := s.sessions.SetCheckoutUUID(ctx, sessionID, prior); err != nil {
				return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind session token")
			}
			return prior, nil
		}
	}

	minted := uuid.NewString()
	if err := s.sessions.SetCheckoutUUID(ctx, sessionID, minted); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind session token")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithCheckoutUUID(s.logg.WithSessionID(ctx, sessionID), minted), "checkout.token_minted")
	}
	return minted, nil
}

// SaveCheckoutData captures the session's cart into its checkout record. An
// emptied cart deletes the record instead, when configured to, and a visitor
// with no resolvable email is never written at all: a row nobody can be
// contacted about is useless to the poller. The returned record is nil when
// nothing was persisted.
func (s *Service) SaveCheckoutData(ctx context.Context, input SaveInput) (*CheckoutRecord, error) {
	cart, err := s.carts.Get(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	if cart.IsEmpty() {
		return nil, s.handleEmptiedCart(ctx, input.SessionID)
	}

	email, err := s.resolveEmail(ctx, input)
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, nil
	}

	checkoutUUID, err := s.EnsureCheckoutToken(ctx, input.SessionID, input.UserID, input.UserEmail)
	if err != nil {
		return nil, err
	}

	totals, err := s.carts.PriceCart(ctx, cart)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &CheckoutRecord{
		UserID:            input.UserID,
		UserEmail:         email,
		CheckoutContents:  snapshotFromCart(cart, totals),
		CheckoutUpdated:   now,
		CheckoutUpdatedTS: now.Unix(),
		CheckoutCreated:   now,
		CheckoutCreatedTS: now.Unix(),
		CheckoutUUID:      checkoutUUID,
	}
	if err := s.records.Upsert(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist checkout")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithCheckoutUUID(s.logg.WithSessionID(ctx, input.SessionID), checkoutUUID), "checkout.captured")
	}
	return record, nil
}

// RefreshIfStarted re-captures the cart only when the session already holds a
// checkout token. Cart edits before the visitor ever reaches checkout stay
// out of the table.
func (s *Service) RefreshIfStarted(ctx context.Context, input SaveInput) (*CheckoutRecord, error) {
	checkoutUUID, err := s.sessions.CheckoutUUID(ctx, input.SessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session token")
	}
	if checkoutUUID == "" {
		return nil, nil
	}
	return s.SaveCheckoutData(ctx, input)
}

// CaptureGuestEmail binds a typed email to a guest session, gated by a
// one-time nonce issued with the checkout page, then captures the cart. This
// is usually the moment a guest's checkout first becomes persistable: until
// the email lands, SaveCheckoutData has nothing to address the row with.
func (s *Service) CaptureGuestEmail(ctx context.Context, sessionID, email, nonce string) error {
	ok, err := s.sessions.ConsumeGuestNonce(ctx, sessionID, nonce)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate nonce")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "invalid or expired capture nonce")
	}

	normalized := normalizeEmail(email)
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}

	if err := s.sessions.SetBillingEmail(ctx, sessionID, normalized); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store billing email")
	}

	_, err = s.SaveCheckoutData(ctx, SaveInput{SessionID: sessionID})
	return err
}

// ClearPurchasedData removes the session's record after a completed order so
// a finished purchase never reports as abandoned. It returns the uuid that was
// cleared, empty when the session never reached checkout.
func (s *Service) ClearPurchasedData(ctx context.Context, sessionID string) (string, error) {
	checkoutUUID, err := s.sessions.CheckoutUUID(ctx, sessionID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session token")
	}
	if checkoutUUID == "" {
		return "", nil
	}
	if err := s.records.DeleteByUUID(ctx, checkoutUUID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete checkout")
	}
	if err := s.sessions.ClearCheckoutUUID(ctx, sessionID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear session token")
	}
	return checkoutUUID, nil
}

// IssueGuestNonce exposes the session nonce for the checkout page payload.
func (s *Service) IssueGuestNonce(ctx context.Context, sessionID string) (string, error) {
	nonce, err := s.sessions.IssueGuestNonce(ctx, sessionID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue nonce")
	}
	return nonce, nil
}

func (s *Service) handleEmptiedCart(ctx context.Context, sessionID string) error {
	if !s.deleteOnEmptied {
		return nil
	}
	checkoutUUID, err := s.sessions.CheckoutUUID(ctx, sessionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session token")
	}
	if checkoutUUID == "" {
		return nil
	}
	if err := s.records.DeleteByUUID(ctx, checkoutUUID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete emptied checkout")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithCheckoutUUID(s.logg.WithSessionID(ctx, sessionID), checkoutUUID), "checkout.deleted_on_empty")
	}
	return nil
}

// resolveEmail picks the best known address: the one typed this request, then
// the account email, then whatever the session captured earlier.
func (s *Service) resolveEmail(ctx context.Context, input SaveInput) (string, error) {
	if posted := normalizeEmail(input.PostedEmail); posted != "" {
		if err := s.sessions.SetBillingEmail(ctx, input.SessionID, posted); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store billing email")
		}
		return posted, nil
	}
	if account := normalizeEmail(input.UserEmail); account != "" {
		return account, nil
	}
	stored, err := s.sessions.BillingEmail(ctx, input.SessionID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load billing email")
	}
	return normalizeEmail(stored), nil
}

func normalizeEmail(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

func snapshotFromCart(cart *carts.Cart, totals carts.Totals) Snapshot {
	items := make([]SnapshotItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, SnapshotItem{
			ProductID:  item.ProductID,
			Title:      item.Title,
			Qty:        item.Qty,
			PriceCents: item.PriceCents,
		})
	}
	return Snapshot{
		Version: SnapshotVersion,
		Items:   items,
		Coupons: cart.Coupons,
		Totals: SnapshotTotals{
			SubtotalCents: totals.SubtotalCents,
			DiscountCents: totals.DiscountCents,
			TotalCents:    totals.TotalCents,
		},
	}
}
