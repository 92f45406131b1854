package models

import "github.com/golang-jwt/jwt/v5"

// AccessClaims represents the JWT claims carried by SAMVIT API tokens.
// It embeds the standard jwt.RegisteredClaims and adds the tenant and token
// type fields issued alongside them.
type AccessClaims struct {
	jwt.RegisteredClaims

	// TenantID is the identifier of the tenant the token was issued for.
	TenantID string `json:"tenant_id,omitempty"`

	// TokenType distinguishes access tokens from refresh tokens.
	TokenType string `json:"type,omitempty"`
}

// UserID returns the authenticated user identifier, which is carried in the
// standard subject claim.
func (c *AccessClaims) UserID() string {
	return c.Subject
}

// IssuedAtUnix returns the iat claim as a Unix timestamp, or 0 when the
// token carries none.
func (c *AccessClaims) IssuedAtUnix() int64 {
	if c.IssuedAt == nil {
		return 0
	}
	return c.IssuedAt.Unix()
}
