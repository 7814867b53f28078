package users

import "time"

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// APIUser is a reporting credential. Only admins may mint report tokens.
type APIUser struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Username     string    `gorm:"column:username;uniqueIndex:idx_api_users_username"`
	PasswordHash string    `gorm:"column:password_hash"`
	Role         string    `gorm:"column:role;default:viewer"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (APIUser) TableName() string {
	return "api_users"
}

// IsAdmin reports whether the user may request report tokens.
func (u APIUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}
