package anonauth

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// AuthControllerRoutes names the endpoints the controller registers.
type AuthControllerRoutes struct {
	Anonymous   string
	RequestCode string
	Verify      string
	Refresh     string
	Logout      string
	WebCode     string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Service      *Service
	Routes       *AuthControllerRoutes
	ErrorHandler fiber.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerService(service *Service) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Service = service
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Anonymous:   "/auth/anonymous",
			RequestCode: "/auth/request-code",
			Verify:      "/auth/verify",
			Refresh:     "/auth/refresh",
			Logout:      "/auth/logout",
			WebCode:     "/auth/web-code",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Service == nil {
		panic("Missing Service in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.defaultErrHandler
	}

	return c
}

// RegisterAuthRoutes mounts the credential endpoints on the app.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Anonymous, controller.AnonymousPost)
	app.Post(controller.Routes.RequestCode, controller.RequestCodePost)
	app.Post(controller.Routes.Verify, controller.VerifyPost)
	app.Post(controller.Routes.Refresh, controller.RefreshPost)
	app.Post(controller.Routes.Logout, controller.LogoutPost)
	app.Post(controller.Routes.WebCode, controller.WebCodePost)

	return controller
}

// AnonymousPayload optionally overrides token lifetimes, in seconds.
// Supplying a refresh lifetime selects the transient variant meant for
// clients that manage their own storage.
type AnonymousPayload struct {
	RefreshTokenExpiresIn int `json:"refreshTokenExpiresIn"`
	SessionTokenExpiresIn int `json:"sessionTokenExpiresIn"`
}

// Validate will run validation rules
func (r AnonymousPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshTokenExpiresIn, validation.Min(0)),
		validation.Field(&r.SessionTokenExpiresIn, validation.Min(0)),
	)
}

func (a *AuthController) AnonymousPost(c *fiber.Ctx) error {
	payload := new(AnonymousPayload)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(payload); err != nil {
			return a.badRequest(c, "invalid request body")
		}
		if err := payload.Validate(); err != nil {
			return a.badRequest(c, err.Error())
		}
	}

	cfg := a.Service.Config()

	sessionTTL := clampTTL(payload.SessionTokenExpiresIn, cfg.GetSessionTokenExpiration())
	transient := payload.RefreshTokenExpiresIn > 0
	refreshTTL := time.Duration(0)
	if transient {
		refreshTTL = clampTTL(payload.RefreshTokenExpiresIn, cfg.GetTransientRefreshExpiration())
	}

	res, err := a.Service.Bootstrap(c.UserContext(), sessionTTL, refreshTTL, transient)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	if a.Debug {
		a.Logger.Debug("anonymous bootstrap %s", print.MaybePrettyJSON(res.Session))
	}

	SetAuthCookies(c, cfg, res.Minted)

	return c.JSON(fiber.Map{
		"subjectId":    res.Session.SubjectID,
		"sessionToken": res.Minted.SessionToken,
		"refreshToken": res.Minted.RefreshToken,
	})
}

// RequestCodePayload carries the address a verification code is sent to.
type RequestCodePayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r RequestCodePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) RequestCodePost(c *fiber.Ctx) error {
	payload := new(RequestCodePayload)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err.Error())
	}

	resp, err := a.Service.RequestCode(c.UserContext(), payload.Email)
	if err != nil {
		a.Logger.Error("request code error", "error", err)
		return a.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   resp.Success,
		"message":   resp.Message,
		"expiresIn": int(resp.ExpiresIn.Seconds()),
	})
}

// VerifyCodePayload is the code exchange payload.
type VerifyCodePayload struct {
	Email string `form:"email" json:"email"`
	Code  string `form:"code" json:"code"`
}

// Validate will run validation rules
func (r VerifyCodePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Code,
			validation.Required,
			validation.Length(6, 6),
			is.Digit,
		),
	)
}

func (a *AuthController) VerifyPost(c *fiber.Ctx) error {
	payload := new(VerifyCodePayload)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err.Error())
	}

	// The caller's current subject, when its session still verifies. Used
	// only to report an identity switch to the hooks.
	currentSubjectID := ""
	if token := sessionTokenFromRequest(c); token != "" {
		if claims, err := a.Service.Tokens().Verify(token, AudienceSession); err == nil {
			currentSubjectID = claims.SubjectID()
		}
	}

	resp, err := a.Service.VerifyCode(c.UserContext(), payload.Email, payload.Code, currentSubjectID)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	if a.Debug {
		a.Logger.Debug("verified %s as %s", payload.Email, resp.SubjectID)
	}

	if usedCookieTransport(c) {
		SetAuthCookies(c, a.Service.Config(), resp.Pair)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"subjectId":    resp.SubjectID,
		"sessionToken": resp.Pair.SessionToken,
		"refreshToken": resp.Pair.RefreshToken,
	})
}

func (a *AuthController) RefreshPost(c *fiber.Ctx) error {
	token := bearerToken(c)
	fromCookie := false
	if token == "" {
		token = c.Cookies(RefreshCookieName)
		fromCookie = token != ""
	}

	res, err := a.Service.Refresh(c.UserContext(), token)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	if fromCookie {
		SetAuthCookies(c, a.Service.Config(), res.Minted)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"sessionToken": res.Minted.SessionToken,
		"refreshToken": res.Minted.RefreshToken,
	})
}

// LogoutPost always succeeds: clearing credentials that were never set is
// not an error worth reporting.
func (a *AuthController) LogoutPost(c *fiber.Ctx) error {
	ClearAuthCookies(c, a.Service.Config())
	return c.JSON(fiber.Map{
		"success": true,
	})
}

func (a *AuthController) WebCodePost(c *fiber.Ctx) error {
	token := sessionTokenFromRequest(c)

	code, ttl, err := a.Service.WebCode(c.UserContext(), token)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{
		"code":      code,
		"expiresIn": int(ttl.Seconds()),
	})
}

func (a *AuthController) badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func (a *AuthController) defaultErrHandler(c *fiber.Ctx, err error) error {
	if err == ErrUnauthorized || IsTokenInvalid(err) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "missing or invalid credential",
		})
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := richErr.Code
		if status < fiber.StatusBadRequest || status > 599 {
			status = fiber.StatusInternalServerError
		}

		a.Logger.Error(
			"auth controller error",
			"error", richErr.Message,
			"category", fmt.Sprintf("%v", richErr.Category),
		)

		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"message": richErr.Message,
		})
	}

	a.Logger.Error("auth controller error", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "internal error",
	})
}

// usedCookieTransport reports whether the inbound request carried either
// auth cookie; only then are rotated cookies attached on the way out.
func usedCookieTransport(c *fiber.Ctx) bool {
	return c.Cookies(SessionCookieName) != "" || c.Cookies(RefreshCookieName) != ""
}

func sessionTokenFromRequest(c *fiber.Ctx) string {
	if token := bearerToken(c); token != "" {
		return token
	}
	return c.Cookies(SessionCookieName)
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

func clampTTL(seconds int, max time.Duration) time.Duration {
	if seconds <= 0 {
		return max
	}
	ttl := time.Duration(seconds) * time.Second
	if ttl > max {
		return max
	}
	return ttl
}
