package anonauth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is the identity a request resolved to. Every request carries one
// by the time the wrapped handler runs; anonymous and verified sessions
// differ only in whether an email is attached.
type Session struct {
	SubjectID string     `json:"subject_id"`
	SessionID string     `json:"session_id"`
	Email     string     `json:"email,omitempty"`
	Token     string     `json:"-"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// TokenPair is a session and refresh token minted together for the same
// subject. The two are never minted independently.
type TokenPair struct {
	SessionToken string `json:"sessionToken"`
	RefreshToken string `json:"refreshToken"`
	// Transient marks a refresh token meant for response-body transport
	// rather than a long-lived cookie.
	Transient bool `json:"-"`
}

func (s Session) GetSubjectID() string {
	return s.SubjectID
}

func (s Session) GetSubjectUUID() (uuid.UUID, error) {
	return uuid.Parse(s.SubjectID)
}

// Verified reports whether the session belongs to a subject with a
// verified email.
func (s Session) Verified() bool {
	return s.Email != ""
}

func (s Session) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"subject=%s sid=%s verified=%t iat=%s",
		s.SubjectID,
		s.SessionID,
		s.Verified(),
		issuedAt,
	)
}

// sessionFromClaims builds a Session value from verified SESSION claims.
func sessionFromClaims(claims *TokenClaims, raw string) Session {
	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()
	return Session{
		SubjectID: claims.SubjectID(),
		SessionID: claims.SessionID,
		Email:     claims.Email,
		Token:     raw,
		IssuedAt:  &issuedAt,
		ExpiresAt: &expiresAt,
	}
}
