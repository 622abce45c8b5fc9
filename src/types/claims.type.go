package types

import "github.com/golang-jwt/jwt/v5"

// Claims are issued by the external auth service; the subject carries the numeric user id.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

const ROLE_ADMIN = "admin"
