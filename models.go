package anonauth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Identity maps a subject id to its verified email, when one exists. This
// model backs the reference hooks store only; the core never touches it.
type Identity struct {
	bun.BaseModel   `bun:"table:auth_identities,alias:idn"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SubjectID       string     `bun:"subject_id,notnull,unique" json:"subject_id,omitempty"`
	Email           string     `bun:"email,unique,nullzero" json:"email,omitempty"`
	EmailVerifiedAt *time.Time `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Verified reports whether an email has been attached to the subject.
func (i *Identity) Verified() bool {
	return i.Email != "" && i.EmailVerifiedAt != nil
}

// VerificationCode is a stored one-time code. The code itself is kept as a
// bcrypt hash; the plaintext only ever travels over the delivery hook.
type VerificationCode struct {
	bun.BaseModel `bun:"table:auth_verification_codes,alias:avc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	CodeHash      string     `bun:"code_hash,notnull" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Expired reports whether the code is past its advisory TTL.
func (v *VerificationCode) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
