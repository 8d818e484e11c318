package anonauth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"golang.org/x/crypto/bcrypt"
)

// RepositoryHooks is a reference Hooks implementation backed by bun
// repositories. The core never requires it; it exists so integrators have
// a working store without writing one, and so the optional lifecycle
// callbacks have a concrete example.
type RepositoryHooks struct {
	repo   RepositoryManager
	sender CodeSender
	logger Logger
}

// CodeSender delivers a verification code out of band. Email transport is
// not the library's concern; the embedding app supplies it.
type CodeSender func(ctx context.Context, email, code string) error

func NewRepositoryHooks(repo RepositoryManager, sender CodeSender) *RepositoryHooks {
	return &RepositoryHooks{
		repo:   repo,
		sender: sender,
		logger: defLogger{},
	}
}

func (h *RepositoryHooks) WithLogger(logger Logger) *RepositoryHooks {
	h.logger = logger
	return h
}

var (
	_ Hooks              = (*RepositoryHooks)(nil)
	_ NewUserHook        = (*RepositoryHooks)(nil)
	_ EmailVerifiedHook  = (*RepositoryHooks)(nil)
	_ UserEmailProvider  = (*RepositoryHooks)(nil)
	_ IdentitySwitchHook = (*RepositoryHooks)(nil)
)

func (h *RepositoryHooks) GetUserIDByEmail(ctx context.Context, email string) (string, error) {
	record, err := h.repo.Identities().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return record.SubjectID, nil
}

func (h *RepositoryHooks) StoreVerificationCode(ctx context.Context, email, code string, ttl time.Duration) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	record := &VerificationCode{
		Email:     normalizeEmail(email),
		CodeHash:  string(hash),
		ExpiresAt: time.Now().Add(ttl),
	}

	// Deterministic row id per email: issuing a new code upserts over the
	// previous one, so only the latest code can match.
	if id, err := hashid.NewUUID(normalizeEmail(email)); err == nil {
		record.ID = id
	}

	_, err = h.repo.VerificationCodes().Upsert(ctx, record)
	return err
}

func (h *RepositoryHooks) VerifyVerificationCode(ctx context.Context, email, code string) (bool, error) {
	record, err := h.repo.VerificationCodes().GetActiveByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return false, nil
		}
		return false, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)); err != nil {
		return false, nil
	}

	// Single use: a matched code is gone before the response leaves.
	if err := h.repo.VerificationCodes().DeleteByEmail(ctx, email); err != nil {
		h.logger.Warn("failed to delete consumed code", "email", email, "error", err)
	}

	return true, nil
}

func (h *RepositoryHooks) SendVerificationCode(ctx context.Context, email, code string) error {
	if h.sender == nil {
		h.logger.Warn("no code sender configured, dropping code", "email", email)
		return nil
	}
	return h.sender(ctx, email, code)
}

func (h *RepositoryHooks) OnNewUser(ctx context.Context, subjectID string) error {
	record := &Identity{SubjectID: subjectID}

	if id, err := hashid.NewUUID(subjectID); err == nil {
		record.ID = id
	}

	_, err := h.repo.Identities().Create(ctx, record)
	return err
}

func (h *RepositoryHooks) OnEmailVerified(ctx context.Context, subjectID, email string) error {
	_, err := h.repo.Identities().AttachEmail(ctx, subjectID, email)
	return err
}

func (h *RepositoryHooks) OnIdentitySwitch(ctx context.Context, fromSubjectID, toSubjectID string) error {
	// Discard policy: the abandoned anonymous identity row is removed.
	// Apps that need merging implement their own hooks.
	record, err := h.repo.Identities().GetBySubject(ctx, fromSubjectID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil
		}
		return err
	}

	if record.Verified() {
		// Never discard a verified identity on a switch.
		return nil
	}

	return h.repo.Identities().Delete(ctx, record)
}

func (h *RepositoryHooks) GetUserEmail(ctx context.Context, subjectID string) (string, error) {
	record, err := h.repo.Identities().GetBySubject(ctx, subjectID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return record.Email, nil
}
