package types

import "github.com/golang-jwt/jwt/v5"

// Claims represents the JWT claims. The same token authenticates HTTP
// requests and realtime connections.
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
