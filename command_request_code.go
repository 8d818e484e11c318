package anonauth

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// RequestCodeMessage asks for a 6-digit verification code to be stored and
// delivered for an email address.
type RequestCodeMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Address the code is delivered to."`
	OnResponse func(resp *RequestCodeResponse)
}

func (p RequestCodeMessage) Type() string { return "auth.code_request" }

// RequestCodeResponse reports delivery outcome only. The code itself never
// appears in any response.
type RequestCodeResponse struct {
	Success   bool
	Message   string
	ExpiresIn time.Duration
}

type RequestCodeHandler struct {
	hooks  Hooks
	cfg    Config
	logger Logger
}

func (h *RequestCodeHandler) Execute(ctx context.Context, event RequestCodeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during code request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestCodeHandler) execute(ctx context.Context, event RequestCodeMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	code, err := generateVerificationCode()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}

	ttl := h.cfg.GetVerificationCodeExpiration()

	if err := h.hooks.StoreVerificationCode(ctx, event.Email, code, ttl); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification code")
	}

	resp := &RequestCodeResponse{ExpiresIn: ttl}

	// Delivery failure is a structured outcome, not a crash: the store
	// accepted the code, the transport did not.
	if err := h.hooks.SendVerificationCode(ctx, event.Email, code); err != nil {
		h.logger.Warn("code delivery failed", "error", err)
		resp.Message = "failed to deliver verification code"
	} else {
		resp.Success = true
		resp.Message = "verification code sent"
	}

	event.OnResponse(resp)
	return nil
}

// generateVerificationCode returns a uniformly random 6-digit code,
// zero-padded.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}

	digits := []byte("000000")
	v := n.Int64()
	for i := len(digits) - 1; i >= 0 && v > 0; i-- {
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return string(digits), nil
}
