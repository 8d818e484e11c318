package anonauth

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// ErrTokenInvalid is the single outcome for every token verification
// failure: malformed, bad signature, wrong audience, or expired. Callers
// are never told which check failed.
var ErrTokenInvalid = errors.New("invalid token")

// ErrHooksRequired is returned when a Service is built without a Hooks
// implementation.
var ErrHooksRequired = errors.New("hooks implementation required")

// ErrCodeMismatch is the generic failure for the code exchange. It covers
// unknown emails, wrong codes, and expired codes alike.
var ErrCodeMismatch = goerrors.New("invalid or expired code", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode("CODE_MISMATCH")

// ErrUnauthorized is returned when a protected operation is attempted
// without a usable credential.
var ErrUnauthorized = goerrors.New("missing or invalid credential", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("UNAUTHORIZED")

// IsTokenInvalid reports whether err collapses to the opaque token failure.
func IsTokenInvalid(err error) bool {
	return errors.Is(err, ErrTokenInvalid)
}
