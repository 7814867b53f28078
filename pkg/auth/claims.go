package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// ReportTokenPayload captures the data available when minting a JWT for the
// reporting API.
type ReportTokenPayload struct {
	UserID   int64
	Username string
}

// ReportTokenClaims represents the typed JWT issued to the marketing platform.
type ReportTokenClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}
