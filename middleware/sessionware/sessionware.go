// Package sessionware resolves every inbound request to an identity before
// the wrapped handler runs. Requests degrade to a fresh anonymous identity
// rather than failing; explicit rejection only happens on the dedicated
// auth endpoints.
package sessionware

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	anonauth "github.com/goliatone/go-anonauth"
)

// DefaultContextKey is the fiber locals key the resolved session is stored
// under.
const DefaultContextKey = "auth_session"

// WebCodeParam is the query parameter checked for cross-device handoff
// codes ahead of normal resolution.
const WebCodeParam = "code"

type Config struct {
	// Service performs resolution, rotation, and handoff redemption.
	Service *anonauth.Service
	// ContextKey overrides where the session lands in fiber locals.
	ContextKey string
	// Filter skips the middleware when it returns true. The default skips
	// the /auth/ route group, which manages credentials explicitly.
	Filter func(*fiber.Ctx) bool
	// ErrorHandler handles resolution failures, i.e. a fatal bootstrap
	// hook. Defaults to a 500 with a generic body.
	ErrorHandler fiber.ErrorHandler
	// DisableWebCodeRedeem turns off the ?code= handoff check for
	// applications that reserve the parameter.
	DisableWebCodeRedeem bool
}

// New returns the session resolver middleware.
func New(config ...Config) fiber.Handler {
	cfg := defaultConfig(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		// Cross-device handoff runs ahead of normal resolution: a valid
		// code bootstraps this device from another's session. A forged or
		// stale code falls through silently; it travels in a user-visible
		// URL and cannot be trusted to be fresh.
		if !cfg.DisableWebCodeRedeem {
			if code := c.Query(WebCodeParam); code != "" {
				if res, err := cfg.Service.RedeemWebCode(c.UserContext(), code); err == nil {
					anonauth.SetAuthCookies(c, cfg.Service.Config(), res.Minted)
					return c.Redirect(stripWebCodeParam(c.OriginalURL()), fiber.StatusFound)
				}
			}
		}

		sessionToken := SessionTokenFromRequest(c)
		refreshToken := c.Cookies(anonauth.RefreshCookieName)

		res, err := cfg.Service.Resolve(c.UserContext(), sessionToken, refreshToken)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if res.Minted != nil {
			anonauth.SetAuthCookies(c, cfg.Service.Config(), res.Minted)
		}

		c.Locals(cfg.ContextKey, res.Session)
		c.SetUserContext(anonauth.WithSessionContext(c.UserContext(), res.Session))

		return c.Next()
	}
}

// SessionFromCtx returns the session the middleware resolved for this
// request.
func SessionFromCtx(c *fiber.Ctx, key ...string) (anonauth.Session, bool) {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	session, ok := c.Locals(k).(anonauth.Session)
	return session, ok
}

// SessionTokenFromRequest extracts the raw session token from the bearer
// header, falling back to the session cookie.
func SessionTokenFromRequest(c *fiber.Ctx) string {
	if token := bearerToken(c); token != "" {
		return token
	}
	return c.Cookies(anonauth.SessionCookieName)
}

// RefreshTokenFromRequest extracts the raw refresh token from the bearer
// header, falling back to the refresh cookie. Body-managed clients send
// the token as a bearer; browser clients rely on the cookie.
func RefreshTokenFromRequest(c *fiber.Ctx) string {
	if token := bearerToken(c); token != "" {
		return token
	}
	return c.Cookies(anonauth.RefreshCookieName)
}

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if auth == "" {
		return ""
	}
	const scheme = "Bearer "
	if len(auth) <= len(scheme) || !strings.EqualFold(auth[:len(scheme)], scheme) {
		return ""
	}
	return strings.TrimSpace(auth[len(scheme):])
}

// stripWebCodeParam removes only the code parameter, preserving the path
// and every other query parameter, so the handoff code never lingers in
// browser history.
func stripWebCodeParam(original string) string {
	u, err := url.Parse(original)
	if err != nil {
		return "/"
	}

	q := u.Query()
	q.Del(WebCodeParam)
	u.RawQuery = q.Encode()

	return u.String()
}

func defaultConfig(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Service == nil {
		panic("ANONAUTH: sessionware configuration: Service is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.Filter == nil {
		cfg.Filter = func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/auth/")
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "unable to resolve session",
			})
		}
	}

	return cfg
}
