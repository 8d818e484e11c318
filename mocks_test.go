package anonauth

import (
	"context"
	"sync"
	"time"
)

// recorderHooks is a full-featured in-memory Hooks implementation that
// records every lifecycle call so tests can assert on firing order and
// counts.
type recorderHooks struct {
	mu sync.Mutex

	subjectsByEmail map[string]string
	storedCodes     map[string]string
	userEmails      map[string]string

	storeErr   error
	sendErr    error
	verifyErr  error
	lookupErr  error
	newUserErr error

	newUsers      []string
	authenticated []string
	verified      []string
	switches      [][2]string
	sent          []string
}

func newRecorderHooks() *recorderHooks {
	return &recorderHooks{
		subjectsByEmail: map[string]string{},
		storedCodes:     map[string]string{},
		userEmails:      map[string]string{},
	}
}

func (h *recorderHooks) GetUserIDByEmail(ctx context.Context, email string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lookupErr != nil {
		return "", h.lookupErr
	}
	return h.subjectsByEmail[email], nil
}

func (h *recorderHooks) StoreVerificationCode(ctx context.Context, email, code string, ttl time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.storeErr != nil {
		return h.storeErr
	}
	h.storedCodes[email] = code
	return nil
}

func (h *recorderHooks) VerifyVerificationCode(ctx context.Context, email, code string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.verifyErr != nil {
		return false, h.verifyErr
	}
	stored, ok := h.storedCodes[email]
	return ok && stored == code, nil
}

func (h *recorderHooks) SendVerificationCode(ctx context.Context, email, code string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sendErr != nil {
		return h.sendErr
	}
	h.sent = append(h.sent, email)
	return nil
}

func (h *recorderHooks) OnNewUser(ctx context.Context, subjectID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.newUserErr != nil {
		return h.newUserErr
	}
	h.newUsers = append(h.newUsers, subjectID)
	return nil
}

func (h *recorderHooks) OnAuthenticate(ctx context.Context, subjectID, email string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.authenticated = append(h.authenticated, subjectID)
	return nil
}

func (h *recorderHooks) OnEmailVerified(ctx context.Context, subjectID, email string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.verified = append(h.verified, subjectID)
	return nil
}

func (h *recorderHooks) OnIdentitySwitch(ctx context.Context, from, to string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.switches = append(h.switches, [2]string{from, to})
	return nil
}

func (h *recorderHooks) GetUserEmail(ctx context.Context, subjectID string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.userEmails[subjectID], nil
}

func (h *recorderHooks) newUserCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.newUsers)
}

// minimalHooks implements only the required contract; none of the optional
// lifecycle callbacks exist on it.
type minimalHooks struct {
	subjectsByEmail map[string]string
	storedCodes     map[string]string
}

func newMinimalHooks() *minimalHooks {
	return &minimalHooks{
		subjectsByEmail: map[string]string{},
		storedCodes:     map[string]string{},
	}
}

func (h *minimalHooks) GetUserIDByEmail(ctx context.Context, email string) (string, error) {
	return h.subjectsByEmail[email], nil
}

func (h *minimalHooks) StoreVerificationCode(ctx context.Context, email, code string, ttl time.Duration) error {
	h.storedCodes[email] = code
	return nil
}

func (h *minimalHooks) VerifyVerificationCode(ctx context.Context, email, code string) (bool, error) {
	stored, ok := h.storedCodes[email]
	return ok && stored == code, nil
}

func (h *minimalHooks) SendVerificationCode(ctx context.Context, email, code string) error {
	return nil
}

func testConfig() SimpleConfig {
	return SimpleConfig{
		SigningKey: "test-signing-key-for-anonauth",
		Issuer:     "anonauth-test",
	}
}
