package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cartrescue/cartrescue-backend/internal/users"
	pkgAuth "github.com/cartrescue/cartrescue-backend/pkg/auth"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
	pkgerrors "github.com/cartrescue/cartrescue-backend/pkg/errors"
	"github.com/cartrescue/cartrescue-backend/pkg/logger"
	"github.com/cartrescue/cartrescue-backend/pkg/security"
)

type userFinder interface {
	FindByUsername(ctx context.Context, username string) (*users.APIUser, error)
}

// TokenResult is the issued credential for the reporting API.
type TokenResult struct {
	Token     string
	ExpiresAt time.Time
}

// Service exchanges admin credentials for short-lived report tokens.
type Service struct {
	users userFinder
	jwt   config.JWTConfig
	logg  *logger.Logger
	now   func() time.Time
}

func NewService(userRepo userFinder, jwtCfg config.JWTConfig, logg *logger.Logger) (*Service, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &Service{
		users: userRepo,
		jwt:   jwtCfg,
		logg:  logg,
		now:   time.Now,
	}, nil
}

// IssueToken verifies the credential pair and mints a report token. Bad
// username, bad password, and non-admin role all answer the same way so the
// endpoint leaks nothing about which part failed.
func (s *Service) IssueToken(ctx context.Context, username, password string) (*TokenResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidCredentials()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		s.warnRejected(ctx, username, "bad_password")
		return nil, invalidCredentials()
	}

	if !user.IsAdmin() {
		s.warnRejected(ctx, username, "not_admin")
		return nil, invalidCredentials()
	}

	now := s.now()
	token, err := pkgAuth.MintReportToken(s.jwt, now, pkgAuth.ReportTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "username", user.Username), "auth.token_issued")
	}
	return &TokenResult{
		Token:     token,
		ExpiresAt: now.Add(s.jwt.TokenTTL()),
	}, nil
}

func (s *Service) warnRejected(ctx context.Context, username, reason string) {
	if s.logg == nil {
		return
	}
	fields := map[string]any{"username": username, "reason": reason}
	s.logg.Warn(s.logg.WithFields(ctx, fields), "auth.token_rejected")
}

func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "invalid credentials")
}
