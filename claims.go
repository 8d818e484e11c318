package anonauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Audience tags restrict which verification path accepts a token. Checking
// the tag on every verification is the primary defense against
// token-confusion attacks.
const (
	AudienceSession = "session"
	AudienceRefresh = "refresh"
	AudienceWebAuth = "web-auth"
)

// TokenClaims is the claim set carried by every token the library mints.
type TokenClaims struct {
	jwt.RegisteredClaims
	// Email is present once the subject has verified an address.
	Email string `json:"email,omitempty"`
	// SessionID is a fresh instance id minted with every session token,
	// never reused across issuances.
	SessionID string `json:"sid,omitempty"`
	// Transient marks refresh tokens meant for response-body transport.
	Transient bool `json:"transient,omitempty"`
}

// SubjectID returns the subject the token asserts ownership of.
func (c *TokenClaims) SubjectID() string {
	return c.RegisteredClaims.Subject
}

// Audience returns the single audience tag the token was minted for.
func (c *TokenClaims) Audience() string {
	if len(c.RegisteredClaims.Audience) == 0 {
		return ""
	}
	return c.RegisteredClaims.Audience[0]
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Verified reports whether an email is attached; there is no separate user
// entity, an identity is verified purely by carrying one.
func (c *TokenClaims) Verified() bool {
	return c.Email != ""
}
