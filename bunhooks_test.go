package anonauth

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	sqliteCreateIdentities = `CREATE TABLE auth_identities (
		id TEXT NOT NULL PRIMARY KEY,
		subject_id TEXT NOT NULL UNIQUE,
		email TEXT UNIQUE,
		email_verified_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	sqliteCreateVerificationCodes = `CREATE TABLE auth_verification_codes (
		id TEXT NOT NULL PRIMARY KEY,
		email TEXT NOT NULL,
		code_hash TEXT NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
)

func setupRepositoryHooks(t *testing.T, sender CodeSender) (*RepositoryHooks, RepositoryManager) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateIdentities)
	require.NoError(t, err)

	_, err = bunDB.Exec(sqliteCreateVerificationCodes)
	require.NoError(t, err)

	t.Cleanup(func() {
		bunDB.Close()
	})

	repo := NewRepositoryManager(bunDB)
	repo.MustValidate()

	return NewRepositoryHooks(repo, sender), repo
}

func TestRepositoryHooksCodes(t *testing.T) {
	ctx := context.Background()

	t.Run("store then verify", func(t *testing.T) {
		hooks, _ := setupRepositoryHooks(t, nil)

		require.NoError(t, hooks.StoreVerificationCode(ctx, "user@example.com", "123456", 10*time.Minute))

		ok, err := hooks.VerifyVerificationCode(ctx, "user@example.com", "123456")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("matched code is single use", func(t *testing.T) {
		hooks, _ := setupRepositoryHooks(t, nil)

		require.NoError(t, hooks.StoreVerificationCode(ctx, "user@example.com", "123456", 10*time.Minute))

		ok, err := hooks.VerifyVerificationCode(ctx, "user@example.com", "123456")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = hooks.VerifyVerificationCode(ctx, "user@example.com", "123456")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("wrong code does not match and survives", func(t *testing.T) {
		hooks, _ := setupRepositoryHooks(t, nil)

		require.NoError(t, hooks.StoreVerificationCode(ctx, "user@example.com", "123456", 10*time.Minute))

		ok, err := hooks.VerifyVerificationCode(ctx, "user@example.com", "654321")
		require.NoError(t, err)
		require.False(t, ok)

		// A failed attempt does not consume the stored code.
		ok, err = hooks.VerifyVerificationCode(ctx, "user@example.com", "123456")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired code does not match", func(t *testing.T) {
		hooks, _ := setupRepositoryHooks(t, nil)

		require.NoError(t, hooks.StoreVerificationCode(ctx, "user@example.com", "123456", -time.Minute))

		ok, err := hooks.VerifyVerificationCode(ctx, "user@example.com", "123456")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown email does not match", func(t *testing.T) {
		hooks, _ := setupRepositoryHooks(t, nil)

		ok, err := hooks.VerifyVerificationCode(ctx, "nobody@example.com", "123456")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("reissuing replaces the previous code", func(t *testing.T) {
		hooks, _ := setupRepositoryHooks(t, nil)

		require.NoError(t, hooks.StoreVerificationCode(ctx, "user@example.com", "111111", 10*time.Minute))
		require.NoError(t, hooks.StoreVerificationCode(ctx, "user@example.com", "222222", 10*time.Minute))

		ok, err := hooks.VerifyVerificationCode(ctx, "user@example.com", "111111")
		require.NoError(t, err)
		assert.False(t, ok, "superseded code must stop matching")

		ok, err = hooks.VerifyVerificationCode(ctx, "user@example.com", "222222")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("email is matched case insensitively", func(t *testing.T) {
		hooks, _ := setupRepositoryHooks(t, nil)

		require.NoError(t, hooks.StoreVerificationCode(ctx, "User@Example.COM", "123456", 10*time.Minute))

		ok, err := hooks.VerifyVerificationCode(ctx, "user@example.com", "123456")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRepositoryHooksIdentities(t *testing.T) {
	ctx := context.Background()

	t.Run("new subject has no email mapping", func(t *testing.T) {
		hooks, _ := setupRepositoryHooks(t, nil)

		require.NoError(t, hooks.OnNewUser(ctx, "subject-1"))

		subject, err := hooks.GetUserIDByEmail(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Empty(t, subject)

		email, err := hooks.GetUserEmail(ctx, "subject-1")
		require.NoError(t, err)
		assert.Empty(t, email)
	})

	t.Run("verification attaches the email", func(t *testing.T) {
		hooks, repo := setupRepositoryHooks(t, nil)

		require.NoError(t, hooks.OnNewUser(ctx, "subject-1"))
		require.NoError(t, hooks.OnEmailVerified(ctx, "subject-1", "User@Example.com"))

		subject, err := hooks.GetUserIDByEmail(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, "subject-1", subject)

		email, err := hooks.GetUserEmail(ctx, "subject-1")
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", email, "email is stored normalized")

		record, err := repo.Identities().GetBySubject(ctx, "subject-1")
		require.NoError(t, err)
		assert.True(t, record.Verified())
	})

	t.Run("verification without a prior row creates one", func(t *testing.T) {
		hooks, _ := setupRepositoryHooks(t, nil)

		require.NoError(t, hooks.OnEmailVerified(ctx, "subject-2", "late@example.com"))

		subject, err := hooks.GetUserIDByEmail(ctx, "late@example.com")
		require.NoError(t, err)
		assert.Equal(t, "subject-2", subject)
	})

	t.Run("repeated verification keeps resolving to the same subject", func(t *testing.T) {
		hooks, _ := setupRepositoryHooks(t, nil)

		require.NoError(t, hooks.OnNewUser(ctx, "subject-1"))
		require.NoError(t, hooks.OnEmailVerified(ctx, "subject-1", "user@example.com"))
		require.NoError(t, hooks.OnEmailVerified(ctx, "subject-1", "user@example.com"))

		subject, err := hooks.GetUserIDByEmail(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, "subject-1", subject)
	})
}

func TestRepositoryHooksIdentitySwitch(t *testing.T) {
	ctx := context.Background()

	t.Run("abandoned anonymous identity is discarded", func(t *testing.T) {
		hooks, repo := setupRepositoryHooks(t, nil)

		require.NoError(t, hooks.OnNewUser(ctx, "anon-1"))
		require.NoError(t, hooks.OnNewUser(ctx, "user-42"))
		require.NoError(t, hooks.OnEmailVerified(ctx, "user-42", "user@example.com"))

		require.NoError(t, hooks.OnIdentitySwitch(ctx, "anon-1", "user-42"))

		_, err := repo.Identities().GetBySubject(ctx, "anon-1")
		assert.Error(t, err, "unverified identity row should be gone")

		subject, err := hooks.GetUserIDByEmail(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, "user-42", subject)
	})

	t.Run("verified identity is never discarded", func(t *testing.T) {
		hooks, repo := setupRepositoryHooks(t, nil)

		require.NoError(t, hooks.OnNewUser(ctx, "verified-1"))
		require.NoError(t, hooks.OnEmailVerified(ctx, "verified-1", "keep@example.com"))
		require.NoError(t, hooks.OnNewUser(ctx, "user-42"))

		require.NoError(t, hooks.OnIdentitySwitch(ctx, "verified-1", "user-42"))

		record, err := repo.Identities().GetBySubject(ctx, "verified-1")
		require.NoError(t, err)
		assert.True(t, record.Verified())
	})

	t.Run("unknown abandoned subject is a no-op", func(t *testing.T) {
		hooks, _ := setupRepositoryHooks(t, nil)

		assert.NoError(t, hooks.OnIdentitySwitch(ctx, "never-existed", "user-42"))
	})
}

func TestRepositoryHooksSender(t *testing.T) {
	ctx := context.Background()

	t.Run("nil sender drops the code without error", func(t *testing.T) {
		hooks, _ := setupRepositoryHooks(t, nil)

		assert.NoError(t, hooks.SendVerificationCode(ctx, "user@example.com", "123456"))
	})

	t.Run("sender receives email and code", func(t *testing.T) {
		var gotEmail, gotCode string
		hooks, _ := setupRepositoryHooks(t, func(ctx context.Context, email, code string) error {
			gotEmail = email
			gotCode = code
			return nil
		})

		require.NoError(t, hooks.SendVerificationCode(ctx, "user@example.com", "123456"))
		assert.Equal(t, "user@example.com", gotEmail)
		assert.Equal(t, "123456", gotCode)
	})
}

// End to end against the reference store: the full request-code then
// verify-code exchange, twice, resolving to the same subject both times.
func TestServiceWithRepositoryHooks(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var delivered string
	hooks, _ := setupRepositoryHooks(t, func(ctx context.Context, email, code string) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = code
		return nil
	})

	svc := NewService(hooks, testConfig())

	// Device starts anonymous.
	boot, err := svc.Bootstrap(ctx, 0, 0, false)
	require.NoError(t, err)

	// First exchange: the email is new, so it gets its own fresh subject.
	resp, err := svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)
	require.True(t, resp.Success)

	mu.Lock()
	code := delivered
	mu.Unlock()
	require.Len(t, code, 6)

	verified, err := svc.VerifyCode(ctx, "user@example.com", code, boot.Session.SubjectID)
	require.NoError(t, err)
	require.True(t, verified.NewUser)

	firstSubject := verified.SubjectID
	assert.NotEqual(t, boot.Session.SubjectID, firstSubject)

	email, err := hooks.GetUserEmail(ctx, firstSubject)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)

	// Second exchange from a fresh anonymous device resolves to the
	// established subject and discards the new anonymous row.
	boot2, err := svc.Bootstrap(ctx, 0, 0, false)
	require.NoError(t, err)
	require.NotEqual(t, firstSubject, boot2.Session.SubjectID)

	resp, err = svc.RequestCode(ctx, "user@example.com")
	require.NoError(t, err)
	require.True(t, resp.Success)

	mu.Lock()
	code = delivered
	mu.Unlock()

	verified2, err := svc.VerifyCode(ctx, "user@example.com", code, boot2.Session.SubjectID)
	require.NoError(t, err)
	assert.Equal(t, firstSubject, verified2.SubjectID)
	assert.False(t, verified2.NewUser)

	email, err = hooks.GetUserEmail(ctx, boot2.Session.SubjectID)
	require.NoError(t, err)
	assert.Empty(t, email, "abandoned anonymous row is discarded")
}
