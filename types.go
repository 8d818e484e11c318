package anonauth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Hooks is the storage and delivery contract the embedding application
// implements. The library persists nothing itself: email to subject id
// mappings and one-time codes live behind these four methods.
type Hooks interface {
	// GetUserIDByEmail returns the subject id mapped to email, or "" when
	// no mapping exists. An error means the store is unreachable, not that
	// the email is unknown.
	GetUserIDByEmail(ctx context.Context, email string) (string, error)
	// StoreVerificationCode persists a one-time code for later matching.
	// The ttl is advisory; stores that cannot expire should record it.
	StoreVerificationCode(ctx context.Context, email, code string, ttl time.Duration) error
	// VerifyVerificationCode reports whether code matches the stored value
	// for email. A false result must not be distinguishable from an
	// expired code by the caller.
	VerifyVerificationCode(ctx context.Context, email, code string) (bool, error)
	// SendVerificationCode delivers the code out of band.
	SendVerificationCode(ctx context.Context, email, code string) error
}

// Optional lifecycle callbacks. Implement them on the same value passed as
// Hooks; the library discovers them through type assertions.

// NewUserHook fires exactly once per newly minted subject id, before the
// first token pair for that subject is returned. Failure aborts the request.
type NewUserHook interface {
	OnNewUser(ctx context.Context, subjectID string) error
}

// AuthenticateHook fires after a successful code exchange.
type AuthenticateHook interface {
	OnAuthenticate(ctx context.Context, subjectID, email string) error
}

// EmailVerifiedHook fires after a successful code exchange, following
// AuthenticateHook.
type EmailVerifiedHook interface {
	OnEmailVerified(ctx context.Context, subjectID, email string) error
}

// IdentitySwitchHook fires when verification resolves to a pre-existing
// subject different from the caller's current one, letting the store merge
// or discard state recorded under the abandoned subject id.
type IdentitySwitchHook interface {
	OnIdentitySwitch(ctx context.Context, fromSubjectID, toSubjectID string) error
}

// UserEmailProvider lets the library recover the email attached to a
// subject when the inbound session token predates verification.
type UserEmailProvider interface {
	GetUserEmail(ctx context.Context, subjectID string) (string, error)
}

// Config holds auth options
type Config interface {
	// GetSigningKey returns the shared symmetric secret. Rotating it is the
	// only revocation mechanism: every outstanding token becomes invalid.
	GetSigningKey() string
	GetIssuer() string
	GetSessionTokenExpiration() time.Duration
	GetRefreshTokenExpiration() time.Duration
	GetTransientRefreshExpiration() time.Duration
	GetWebCodeExpiration() time.Duration
	GetVerificationCodeExpiration() time.Duration
	// GetCookieDomain returns the registrable domain cookies should be
	// scoped to for cross-subdomain sharing, or "" to leave cookies
	// host-only.
	GetCookieDomain() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ANONAUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ANONAUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ANONAUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ANONAUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func hooksNewUser(ctx context.Context, hooks Hooks, subjectID string) error {
	if h, ok := hooks.(NewUserHook); ok {
		return h.OnNewUser(ctx, subjectID)
	}
	return nil
}

func hooksAuthenticate(ctx context.Context, hooks Hooks, subjectID, email string) error {
	if h, ok := hooks.(AuthenticateHook); ok {
		return h.OnAuthenticate(ctx, subjectID, email)
	}
	return nil
}

func hooksEmailVerified(ctx context.Context, hooks Hooks, subjectID, email string) error {
	if h, ok := hooks.(EmailVerifiedHook); ok {
		return h.OnEmailVerified(ctx, subjectID, email)
	}
	return nil
}

func hooksIdentitySwitch(ctx context.Context, hooks Hooks, from, to string) error {
	if h, ok := hooks.(IdentitySwitchHook); ok {
		return h.OnIdentitySwitch(ctx, from, to)
	}
	return nil
}

func hooksUserEmail(ctx context.Context, hooks Hooks, subjectID string) (string, bool) {
	if h, ok := hooks.(UserEmailProvider); ok {
		email, err := h.GetUserEmail(ctx, subjectID)
		if err != nil {
			return "", false
		}
		return email, email != ""
	}
	return "", false
}
