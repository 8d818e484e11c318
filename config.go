package anonauth

import (
	"time"
)

// Default lifetimes. Session tokens are deliberately short; everything a
// client loses on expiry is recoverable through the refresh token.
const (
	DefaultSessionTokenExpiration     = 15 * time.Minute
	DefaultRefreshTokenExpiration     = 7 * 24 * time.Hour
	DefaultTransientRefreshExpiration = time.Hour
	DefaultWebCodeExpiration          = 5 * time.Minute
	DefaultVerificationCodeExpiration = 10 * time.Minute
)

// SimpleConfig is a concrete Config with sensible defaults for every
// duration. A zero value for any field falls back to the package default.
type SimpleConfig struct {
	SigningKey                 string        `json:"signing_key"`
	Issuer                     string        `json:"issuer"`
	SessionTokenExpiration     time.Duration `json:"session_token_expiration"`
	RefreshTokenExpiration     time.Duration `json:"refresh_token_expiration"`
	TransientRefreshExpiration time.Duration `json:"transient_refresh_expiration"`
	WebCodeExpiration          time.Duration `json:"web_code_expiration"`
	VerificationCodeExpiration time.Duration `json:"verification_code_expiration"`
	CookieDomain               string        `json:"cookie_domain"`
}

var _ Config = SimpleConfig{}

func (c SimpleConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c SimpleConfig) GetIssuer() string {
	return c.Issuer
}

func (c SimpleConfig) GetSessionTokenExpiration() time.Duration {
	if c.SessionTokenExpiration > 0 {
		return c.SessionTokenExpiration
	}
	return DefaultSessionTokenExpiration
}

func (c SimpleConfig) GetRefreshTokenExpiration() time.Duration {
	if c.RefreshTokenExpiration > 0 {
		return c.RefreshTokenExpiration
	}
	return DefaultRefreshTokenExpiration
}

func (c SimpleConfig) GetTransientRefreshExpiration() time.Duration {
	if c.TransientRefreshExpiration > 0 {
		return c.TransientRefreshExpiration
	}
	return DefaultTransientRefreshExpiration
}

func (c SimpleConfig) GetWebCodeExpiration() time.Duration {
	if c.WebCodeExpiration > 0 {
		return c.WebCodeExpiration
	}
	return DefaultWebCodeExpiration
}

func (c SimpleConfig) GetVerificationCodeExpiration() time.Duration {
	if c.VerificationCodeExpiration > 0 {
		return c.VerificationCodeExpiration
	}
	return DefaultVerificationCodeExpiration
}

func (c SimpleConfig) GetCookieDomain() string {
	return c.CookieDomain
}
