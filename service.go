package anonauth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Service wires the token codec, the hook contract, and the configuration
// into the request-facing operations: anonymous bootstrap, resolution,
// rotation, code exchange, and cross-device handoff. It is stateless;
// everything lives in the tokens and behind the hooks.
type Service struct {
	hooks  Hooks
	cfg    Config
	tokens TokenService
	logger Logger
	events *SessionEvents
}

// NewService returns a Service backed by the given hooks and config.
func NewService(hooks Hooks, cfg Config) *Service {
	return &Service{
		hooks:  hooks,
		cfg:    cfg,
		tokens: NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetIssuer(), defLogger{}),
		logger: defLogger{},
	}
}

func (s *Service) WithLogger(logger Logger) *Service {
	s.logger = logger
	s.tokens = NewTokenService([]byte(s.cfg.GetSigningKey()), s.cfg.GetIssuer(), logger)
	return s
}

// WithTokenService swaps the token codec, mainly for tests that need
// controlled clocks or canned failures.
func (s *Service) WithTokenService(tokens TokenService) *Service {
	s.tokens = tokens
	return s
}

// WithEvents attaches an observer list notified whenever a request resolves
// to a different identity than the last one seen.
func (s *Service) WithEvents(events *SessionEvents) *Service {
	s.events = events
	return s
}

// Tokens returns the TokenService instance used by this Service
func (s *Service) Tokens() TokenService {
	return s.tokens
}

func (s *Service) Config() Config {
	return s.cfg
}

// Resolution is the outcome of running the per-request state machine.
type Resolution struct {
	Session Session
	// Minted holds the freshly minted pair when rotation or bootstrap
	// occurred; nil means the inbound session token was used as-is and
	// nothing should be attached to the response.
	Minted *TokenPair
	// NewSubject is true when the resolution minted a brand-new anonymous
	// subject id.
	NewSubject bool
}

// Resolve runs the session state machine over the inbound credentials:
//
//  1. session token verifies as SESSION: identity resolved, no rotation.
//  2. session token unusable, refresh token verifies as REFRESH: mint a new
//     pair for that subject and proceed with it.
//  3. neither usable: mint a brand-new anonymous subject.
//
// Requests never fail for missing or invalid credentials; they degrade to
// anonymous. Rejection happens only on the explicit verify/refresh
// endpoints.
func (s *Service) Resolve(ctx context.Context, sessionToken, refreshToken string) (*Resolution, error) {
	if sessionToken != "" {
		if claims, err := s.tokens.Verify(sessionToken, AudienceSession); err == nil {
			session := sessionFromClaims(claims, sessionToken)
			s.emit(session)
			return &Resolution{Session: session}, nil
		}
	}

	if refreshToken != "" {
		if claims, err := s.tokens.Verify(refreshToken, AudienceRefresh); err == nil {
			return s.rotate(ctx, claims)
		}
	}

	return s.Bootstrap(ctx, 0, 0, false)
}

// rotate mints a replacement pair for the subject carried by verified
// REFRESH claims. The new-identity hook never fires here.
func (s *Service) rotate(ctx context.Context, claims *TokenClaims) (*Resolution, error) {
	email, _ := hooksUserEmail(ctx, s.hooks, claims.SubjectID())

	refreshTTL := s.cfg.GetRefreshTokenExpiration()
	if claims.Transient {
		refreshTTL = s.cfg.GetTransientRefreshExpiration()
	}

	return s.mintPair(ctx, claims.SubjectID(), email, s.cfg.GetSessionTokenExpiration(), refreshTTL, claims.Transient, false)
}

// Bootstrap mints a brand-new anonymous subject with a fresh token pair.
// Zero TTLs select the configured defaults; transient selects the
// short-lived body-transport refresh variant. The new-identity hook fires
// exactly once, before any token for the subject exists; its failure is
// fatal because continuing would hand out tokens for a subject the store
// never saw.
func (s *Service) Bootstrap(ctx context.Context, sessionTTL, refreshTTL time.Duration, transient bool) (*Resolution, error) {
	subjectID := uuid.NewString()

	if err := hooksNewUser(ctx, s.hooks, subjectID); err != nil {
		s.logger.Error("Bootstrap new user hook failed", "subject", subjectID, "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "new identity hook failed")
	}

	if sessionTTL <= 0 {
		sessionTTL = s.cfg.GetSessionTokenExpiration()
	}
	if refreshTTL <= 0 {
		refreshTTL = s.cfg.GetRefreshTokenExpiration()
		if transient {
			refreshTTL = s.cfg.GetTransientRefreshExpiration()
		}
	}

	return s.mintPair(ctx, subjectID, "", sessionTTL, refreshTTL, transient, true)
}

// Refresh exchanges a refresh token for a fresh pair. Unlike Resolve this
// is an explicit credential check: an unusable token is rejected rather
// than degraded.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Resolution, error) {
	if refreshToken == "" {
		return nil, ErrUnauthorized
	}

	claims, err := s.tokens.Verify(refreshToken, AudienceRefresh)
	if err != nil {
		return nil, ErrUnauthorized
	}

	return s.rotate(ctx, claims)
}

// WebCode mints a short-lived cross-device handoff code for the subject
// behind a valid SESSION bearer token.
func (s *Service) WebCode(ctx context.Context, sessionToken string) (string, time.Duration, error) {
	if sessionToken == "" {
		return "", 0, ErrUnauthorized
	}

	claims, err := s.tokens.Verify(sessionToken, AudienceSession)
	if err != nil {
		return "", 0, ErrUnauthorized
	}

	ttl := s.cfg.GetWebCodeExpiration()
	code, _, err := s.tokens.IssueWebCode(claims.SubjectID(), claims.Email, ttl)
	if err != nil {
		return "", 0, err
	}

	return code, ttl, nil
}

// RedeemWebCode exchanges a WEB_AUTH code for a fresh pair. Failures are
// returned as ErrTokenInvalid; callers are expected to degrade to normal
// resolution since the code travels in a user-visible URL and may be stale.
func (s *Service) RedeemWebCode(ctx context.Context, code string) (*Resolution, error) {
	claims, err := s.tokens.Verify(code, AudienceWebAuth)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return s.mintPair(ctx, claims.SubjectID(), claims.Email, s.cfg.GetSessionTokenExpiration(), s.cfg.GetRefreshTokenExpiration(), false, false)
}

// RequestCode runs the verification code issuance flow.
func (s *Service) RequestCode(ctx context.Context, email string) (*RequestCodeResponse, error) {
	var resp *RequestCodeResponse

	handler := RequestCodeHandler{hooks: s.hooks, cfg: s.cfg, logger: s.logger}
	err := handler.Execute(ctx, RequestCodeMessage{
		Email: email,
		OnResponse: func(r *RequestCodeResponse) {
			resp = r
		},
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// VerifyCode runs the code exchange, upgrading or switching the caller's
// identity on success. currentSubjectID may be empty when the caller had no
// resolvable session.
func (s *Service) VerifyCode(ctx context.Context, email, code, currentSubjectID string) (*VerifyCodeResponse, error) {
	var resp *VerifyCodeResponse

	handler := VerifyCodeHandler{service: s}
	err := handler.Execute(ctx, VerifyCodeMessage{
		Email:            email,
		Code:             code,
		CurrentSubjectID: currentSubjectID,
		OnResponse: func(r *VerifyCodeResponse) {
			resp = r
		},
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// mintPair issues the session and refresh token for one subject as a unit.
func (s *Service) mintPair(ctx context.Context, subjectID, email string, sessionTTL, refreshTTL time.Duration, transient, newSubject bool) (*Resolution, error) {
	sessionToken, sessionClaims, err := s.tokens.IssueSession(subjectID, email, sessionTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, _, err := s.tokens.IssueRefresh(subjectID, refreshTTL, transient)
	if err != nil {
		return nil, err
	}

	session := sessionFromClaims(sessionClaims, sessionToken)
	s.emit(session)

	return &Resolution{
		Session: session,
		Minted: &TokenPair{
			SessionToken: sessionToken,
			RefreshToken: refreshToken,
			Transient:    transient,
		},
		NewSubject: newSubject,
	}, nil
}

func (s *Service) emit(session Session) {
	if s.events != nil {
		s.events.Notify(session)
	}
}
