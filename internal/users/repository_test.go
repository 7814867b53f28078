package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&APIUser{}))
	t.Cleanup(func() {
		db.Exec("DELETE FROM api_users")
	})
	return db
}

func TestFindByUsernameIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, &APIUser{
		Username:     "Reporter",
		PasswordHash: "hash",
		Role:         RoleAdmin,
	}))

	user, err := repo.FindByUsername(ctx, "  reporter ")
	require.NoError(t, err)
	assert.Equal(t, "Reporter", user.Username)
	assert.True(t, user.IsAdmin())

	_, err = repo.FindByUsername(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestViewerIsNotAdmin(t *testing.T) {
	user := APIUser{Role: RoleViewer}
	assert.False(t, user.IsAdmin())
}
