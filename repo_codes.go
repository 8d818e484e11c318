package anonauth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VerificationCodes stores at most one active code per email; issuing a
// new code replaces the previous one.
type VerificationCodes interface {
	repository.Repository[*VerificationCode]

	GetActiveByEmail(ctx context.Context, email string) (*VerificationCode, error)
	GetActiveByEmailTx(ctx context.Context, tx bun.IDB, email string) (*VerificationCode, error)
	DeleteByEmail(ctx context.Context, email string) error
	DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) error
}

type verificationCodes struct {
	repository.Repository[*VerificationCode]
	db *bun.DB
}

var (
	_ VerificationCodes                        = (*verificationCodes)(nil)
	_ repository.Repository[*VerificationCode] = (*verificationCodes)(nil)
)

func NewVerificationCodesRepository(db *bun.DB) VerificationCodes {
	repo := repository.NewRepository[*VerificationCode](db, repository.ModelHandlers[*VerificationCode]{
		NewRecord: func() *VerificationCode {
			return &VerificationCode{}
		},
		GetID: func(record *VerificationCode) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *VerificationCode, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &verificationCodes{
		Repository: repo,
		db:         db,
	}
}

func (a *verificationCodes) GetActiveByEmail(ctx context.Context, email string) (*VerificationCode, error) {
	return a.GetActiveByEmailTx(ctx, a.db, email)
}

func (a *verificationCodes) GetActiveByEmailTx(ctx context.Context, tx bun.IDB, email string) (*VerificationCode, error) {
	record := &VerificationCode{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Where("?TableAlias.expires_at > ?", time.Now()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *verificationCodes) DeleteByEmail(ctx context.Context, email string) error {
	return a.DeleteByEmailTx(ctx, a.db, email)
}

func (a *verificationCodes) DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) error {
	_, err := tx.NewDelete().Model((*VerificationCode)(nil)).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Exec(ctx)
	return err
}
