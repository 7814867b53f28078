package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cartrescue/cartrescue-backend/pkg/config"
	redispkg "github.com/cartrescue/cartrescue-backend/pkg/redis"
)

const (
	fieldCheckoutUUID = "checkout_uuid"
	fieldBillingEmail = "billing_email"
)

// Store keeps per-visitor state in Redis: the checkout row a session writes
// to, the billing email the visitor last typed, and one-time nonces guarding
// the guest email capture endpoint. Everything expires with the session TTL
// so stale visitors cost nothing.
type Store struct {
	redis      *redispkg.Client
	sessionTTL time.Duration
	nonceTTL   time.Duration
}

func NewStore(client *redispkg.Client, cfg config.CheckoutsConfig) *Store {
	return &Store{
		redis:      client,
		sessionTTL: cfg.SessionTTL,
		nonceTTL:   cfg.GuestNonceTTL,
	}
}

// CheckoutUUID returns the checkout identifier bound to the session, or the
// empty string when the session has not started a checkout yet.
func (s *Store) CheckoutUUID(ctx context.Context, sessionID string) (string, error) {
	return s.getField(ctx, sessionID, fieldCheckoutUUID)
}

func (s *Store) SetCheckoutUUID(ctx context.Context, sessionID, checkoutUUID string) error {
	key := s.redis.SessionKey(sessionID, fieldCheckoutUUID)
	if err := s.redis.Set(ctx, key, checkoutUUID, s.sessionTTL); err != nil {
		return fmt.Errorf("set session checkout uuid: %w", err)
	}
	return nil
}

func (s *Store) ClearCheckoutUUID(ctx context.Context, sessionID string) error {
	key := s.redis.SessionKey(sessionID, fieldCheckoutUUID)
	if err := s.redis.Del(ctx, key); err != nil {
		return fmt.Errorf("clear session checkout uuid: %w", err)
	}
	return nil
}

// BillingEmail returns the billing email captured for the session, or the
// empty string when none was seen.
func (s *Store) BillingEmail(ctx context.Context, sessionID string) (string, error) {
	return s.getField(ctx, sessionID, fieldBillingEmail)
}

func (s *Store) SetBillingEmail(ctx context.Context, sessionID, email string) error {
	key := s.redis.SessionKey(sessionID, fieldBillingEmail)
	if err := s.redis.Set(ctx, key, email, s.sessionTTL); err != nil {
		return fmt.Errorf("set session billing email: %w", err)
	}
	return nil
}

// IssueGuestNonce mints a short-lived one-time value the storefront embeds in
// its guest capture call. Issuing a new nonce replaces any prior one.
func (s *Store) IssueGuestNonce(ctx context.Context, sessionID string) (string, error) {
	nonce := newNonce()
	key := s.redis.GuestNonceKey(sessionID)
	if err := s.redis.Set(ctx, key, nonce, s.nonceTTL); err != nil {
		return "", fmt.Errorf("issue guest nonce: %w", err)
	}
	return nonce, nil
}

// ConsumeGuestNonce validates and burns the nonce. A second call with the
// same value reports false.
func (s *Store) ConsumeGuestNonce(ctx context.Context, sessionID, nonce string) (bool, error) {
	if nonce == "" {
		return false, nil
	}
	key := s.redis.GuestNonceKey(sessionID)
	stored, err := s.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("read guest nonce: %w", err)
	}
	if stored != nonce {
		return false, nil
	}
	if err := s.redis.Del(ctx, key); err != nil {
		return false, fmt.Errorf("burn guest nonce: %w", err)
	}
	return true, nil
}

func newNonce() string {
	return uuid.NewString()
}

func (s *Store) getField(ctx context.Context, sessionID, field string) (string, error) {
	key := s.redis.SessionKey(sessionID, field)
	value, err := s.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("read session %s: %w", field, err)
	}
	return value, nil
}
