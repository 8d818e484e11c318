package anonauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService mints and verifies the signed, time-bound, audience-tagged
// tokens that carry every identity in the system.
type TokenService interface {
	IssueSession(subjectID, email string, ttl time.Duration) (string, *TokenClaims, error)
	IssueRefresh(subjectID string, ttl time.Duration, transient bool) (string, *TokenClaims, error)
	IssueWebCode(subjectID, email string, ttl time.Duration) (string, *TokenClaims, error)
	// Verify atomically checks signature, expiry, and audience before
	// trusting any claim. Every failure mode returns ErrTokenInvalid.
	Verify(token, expectedAudience string) (*TokenClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, issuer string, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		issuer:     issuer,
		logger:     logger,
	}
}

// IssueSession mints a SESSION token. Each issuance carries a fresh session
// instance id.
func (ts *TokenServiceImpl) IssueSession(subjectID, email string, ttl time.Duration) (string, *TokenClaims, error) {
	claims := ts.newClaims(subjectID, AudienceSession, ttl)
	claims.Email = email
	claims.SessionID = uuid.NewString()
	token, err := ts.sign(claims)
	return token, claims, err
}

// IssueRefresh mints a REFRESH token. Transient variants differ only in the
// lifetime the caller passes and the transport marker; verification treats
// both identically.
func (ts *TokenServiceImpl) IssueRefresh(subjectID string, ttl time.Duration, transient bool) (string, *TokenClaims, error) {
	claims := ts.newClaims(subjectID, AudienceRefresh, ttl)
	claims.Transient = transient
	token, err := ts.sign(claims)
	return token, claims, err
}

// IssueWebCode mints a short-lived WEB_AUTH token for cross-device handoff.
func (ts *TokenServiceImpl) IssueWebCode(subjectID, email string, ttl time.Duration) (string, *TokenClaims, error) {
	claims := ts.newClaims(subjectID, AudienceWebAuth, ttl)
	claims.Email = email
	token, err := ts.sign(claims)
	return token, claims, err
}

func (ts *TokenServiceImpl) newClaims(subjectID, audience string, ttl time.Duration) *TokenClaims {
	now := time.Now()
	return &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   subjectID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (ts *TokenServiceImpl) sign(claims *TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify parses and validates a token string against the expected audience.
// Malformed tokens, bad signatures, wrong audiences, and expired tokens all
// collapse into ErrTokenInvalid so the caller cannot be used as an oracle.
func (ts *TokenServiceImpl) Verify(tokenString, expectedAudience string) (*TokenClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithAudience(expectedAudience),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Debug("TokenService verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
