package anonauth

import (
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Cookie names for the dual-transport pair. Clients that cannot hold
// HttpOnly cookies carry the same tokens in response bodies instead.
const (
	SessionCookieName = "auth_session_token"
	RefreshCookieName = "auth_refresh_token"
)

// SetAuthCookies attaches a freshly minted pair to the outbound response.
func SetAuthCookies(c *fiber.Ctx, cfg Config, pair *TokenPair) {
	if pair == nil {
		return
	}

	domain := cookieDomain(cfg.GetCookieDomain(), c.Hostname())

	refreshTTL := cfg.GetRefreshTokenExpiration()
	if pair.Transient {
		refreshTTL = cfg.GetTransientRefreshExpiration()
	}

	setAuthCookie(c, SessionCookieName, pair.SessionToken, domain, cfg.GetSessionTokenExpiration())
	setAuthCookie(c, RefreshCookieName, pair.RefreshToken, domain, refreshTTL)
}

// ClearAuthCookies expires both cookies regardless of whether a session
// previously existed.
func ClearAuthCookies(c *fiber.Ctx, cfg Config) {
	domain := cookieDomain(cfg.GetCookieDomain(), c.Hostname())
	clearAuthCookie(c, SessionCookieName, domain)
	clearAuthCookie(c, RefreshCookieName, domain)
}

func setAuthCookie(c *fiber.Ctx, name, val, domain string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    val,
		Path:     "/",
		Domain:   domain,
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func clearAuthCookie(c *fiber.Ctx, name, domain string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		MaxAge:   -1,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// cookieDomain decides whether the configured cross-subdomain scope
// applies. Bare hostnames and IP literals never get a Domain attribute:
// browsers reject those cookies outright.
func cookieDomain(configured, host string) string {
	if configured == "" {
		return ""
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if net.ParseIP(host) != nil {
		return ""
	}

	if !strings.Contains(host, ".") {
		return ""
	}

	if host != configured && !strings.HasSuffix(host, "."+configured) {
		return ""
	}

	return configured
}

// RegistrableDomain derives the last two labels of a dotted hostname, the
// usual cookie scope for cross-subdomain sharing. It is a heuristic, not a
// public-suffix lookup; hosts under multi-label registries should configure
// the domain explicitly.
func RegistrableDomain(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if net.ParseIP(host) != nil {
		return ""
	}

	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return ""
	}

	return strings.Join(parts[len(parts)-2:], ".")
}
