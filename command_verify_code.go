package anonauth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// VerifyCodeMessage carries a code exchange attempt. CurrentSubjectID is
// the caller's resolved subject before verification, when one exists.
type VerifyCodeMessage struct {
	Email            string `json:"email"`
	Code             string `json:"code"`
	CurrentSubjectID string `json:"-"`
	OnResponse       func(resp *VerifyCodeResponse)
}

func (p VerifyCodeMessage) Type() string { return "auth.code_verify" }

type VerifyCodeResponse struct {
	Success   bool
	SubjectID string
	Pair      *TokenPair
	NewUser   bool
}

type VerifyCodeHandler struct {
	service *Service
}

func (h *VerifyCodeHandler) Execute(ctx context.Context, event VerifyCodeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during code verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyCodeHandler) execute(ctx context.Context, event VerifyCodeMessage) error {
	s := h.service

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	ok, err := s.hooks.VerifyVerificationCode(ctx, event.Email, event.Code)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check verification code")
	}
	if !ok {
		// Generic by design: the caller learns nothing about whether the
		// email is known or the code merely stale.
		return ErrCodeMismatch
	}

	subjectID, err := s.hooks.GetUserIDByEmail(ctx, event.Email)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve subject for email")
	}

	newUser := subjectID == ""
	if newUser {
		// A fresh subject, never the caller's current anonymous id: the
		// email owns its identity from the first verification on, and
		// repeated verification keeps resolving to it.
		subjectID = uuid.NewString()
		if err := hooksNewUser(ctx, s.hooks, subjectID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "new identity hook failed")
		}
	} else if event.CurrentSubjectID != "" && event.CurrentSubjectID != subjectID {
		// Identity switch: the prior anonymous subject is abandoned. The
		// optional hook gives the store a chance to merge or discard it.
		if err := hooksIdentitySwitch(ctx, s.hooks, event.CurrentSubjectID, subjectID); err != nil {
			s.logger.Warn("identity switch hook failed", "from", event.CurrentSubjectID, "to", subjectID, "error", err)
		}
	}

	if err := hooksAuthenticate(ctx, s.hooks, subjectID, event.Email); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "authenticate hook failed")
	}

	if err := hooksEmailVerified(ctx, s.hooks, subjectID, event.Email); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verified hook failed")
	}

	resolution, err := s.mintPair(
		ctx,
		subjectID,
		event.Email,
		s.cfg.GetSessionTokenExpiration(),
		s.cfg.GetRefreshTokenExpiration(),
		false,
		newUser,
	)
	if err != nil {
		return err
	}

	event.OnResponse(&VerifyCodeResponse{
		Success:   true,
		SubjectID: subjectID,
		Pair:      resolution.Minted,
		NewUser:   newUser,
	})

	return nil
}
