package anonauth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes the repositories the reference hooks store
// runs on.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Identities() Identities
	VerificationCodes() VerificationCodes
}

type mngr struct {
	db                *bun.DB
	identities        Identities
	verificationCodes VerificationCodes
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:                db,
		identities:        NewIdentitiesRepository(db),
		verificationCodes: NewVerificationCodesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.identities == nil {
		return errors.New("repository identities should be initialized")
	}

	if m.verificationCodes == nil {
		return errors.New("repository verificationCodes should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Identities() Identities {
	return m.identities
}

func (m mngr) VerificationCodes() VerificationCodes {
	return m.verificationCodes
}
