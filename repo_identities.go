package anonauth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Identities is the repository behind the reference hooks store.
type Identities interface {
	repository.Repository[*Identity]

	GetByEmail(ctx context.Context, email string) (*Identity, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Identity, error)
	GetBySubject(ctx context.Context, subjectID string) (*Identity, error)
	GetBySubjectTx(ctx context.Context, tx bun.IDB, subjectID string) (*Identity, error)
	AttachEmail(ctx context.Context, subjectID, email string) (*Identity, error)
	AttachEmailTx(ctx context.Context, tx bun.IDB, subjectID, email string) (*Identity, error)
}

type identities struct {
	repository.Repository[*Identity]
	db *bun.DB
}

var (
	_ Identities                       = (*identities)(nil)
	_ repository.Repository[*Identity] = (*identities)(nil)
)

func NewIdentitiesRepository(db *bun.DB) Identities {
	repo := repository.NewRepository[*Identity](db, repository.ModelHandlers[*Identity]{
		NewRecord: func() *Identity { return &Identity{} },
		GetID: func(i *Identity) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Identity, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
		GetIdentifier: func() string {
			return "subject_id"
		},
	})

	return &identities{
		Repository: repo,
		db:         db,
	}
}

func (a *identities) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *identities) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Identity, error) {
	record := &Identity{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
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

func (a *identities) GetBySubject(ctx context.Context, subjectID string) (*Identity, error) {
	return a.GetBySubjectTx(ctx, a.db, subjectID)
}

func (a *identities) GetBySubjectTx(ctx context.Context, tx bun.IDB, subjectID string) (*Identity, error) {
	record := &Identity{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.subject_id = ?", subjectID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"subject_id": subjectID})
		}
		return nil, err
	}

	return record, nil
}

func (a *identities) AttachEmail(ctx context.Context, subjectID, email string) (*Identity, error) {
	return a.AttachEmailTx(ctx, a.db, subjectID, email)
}

// AttachEmailTx records the email to subject mapping at verification time.
// Verified identity is monotonic: once an email maps to a subject, repeated
// verification keeps resolving to it.
func (a *identities) AttachEmailTx(ctx context.Context, tx bun.IDB, subjectID, email string) (*Identity, error) {
	now := time.Now()
	record := &Identity{
		SubjectID:       subjectID,
		Email:           normalizeEmail(email),
		EmailVerifiedAt: &now,
	}

	existing, err := a.GetBySubjectTx(ctx, tx, subjectID)
	if err == nil {
		existing.Email = record.Email
		existing.EmailVerifiedAt = &now
		return a.UpsertTx(ctx, tx, existing)
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.CreateTx(ctx, tx, record)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
