package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cartrescue/cartrescue-backend/internal/users"
	pkgAuth "github.com/cartrescue/cartrescue-backend/pkg/auth"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
	pkgerrors "github.com/cartrescue/cartrescue-backend/pkg/errors"
	"github.com/cartrescue/cartrescue-backend/pkg/security"
)

type fakeUserFinder struct {
	byUsername map[string]*users.APIUser
}

func (f *fakeUserFinder) FindByUsername(_ context.Context, username string) (*users.APIUser, error) {
	user, ok := f.byUsername[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "https://store.example.com",
		ExpirationMinutes: 15,
	}
}

func newAuthFixture(t *testing.T) (*Service, *fakeUserFinder) {
	t.Helper()
	hash, err := security.HashPassword("correct-horse", config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	require.NoError(t, err)

	finder := &fakeUserFinder{byUsername: map[string]*users.APIUser{
		"admin":  {ID: 1, Username: "admin", PasswordHash: hash, Role: users.RoleAdmin},
		"viewer": {ID: 2, Username: "viewer", PasswordHash: hash, Role: users.RoleViewer},
	}}

	service, err := NewService(finder, jwtTestConfig(), nil)
	require.NoError(t, err)
	return service, finder
}

func TestIssueTokenHappyPath(t *testing.T) {
	ctx := context.Background()
	service, _ := newAuthFixture(t)

	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return issuedAt }

	result, err := service.IssueToken(ctx, "admin", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, issuedAt.Add(15*time.Minute), result.ExpiresAt)
}

func TestIssueTokenClaims(t *testing.T) {
	ctx := context.Background()
	service, _ := newAuthFixture(t)

	result, err := service.IssueToken(ctx, "admin", "correct-horse")
	require.NoError(t, err)

	claims, err := pkgAuth.ParseReportToken(jwtTestConfig(), result.Token)
	require.NoError(t, err)
	assert.EqualValues(t, 1, claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "https://store.example.com", claims.Issuer)
}

func TestIssueTokenRejectsUnknownUser(t *testing.T) {
	service, _ := newAuthFixture(t)
	_, err := service.IssueToken(context.Background(), "ghost", "correct-horse")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestIssueTokenRejectsBadPassword(t *testing.T) {
	service, _ := newAuthFixture(t)
	_, err := service.IssueToken(context.Background(), "admin", "wrong")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestIssueTokenRejectsNonAdmin(t *testing.T) {
	service, _ := newAuthFixture(t)
	_, err := service.IssueToken(context.Background(), "viewer", "correct-horse")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}
