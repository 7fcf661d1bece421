package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/app/service"
	"github.com/vibast-solutions/ms-go-account/app/token"
	"github.com/vibast-solutions/ms-go-account/app/types"
	"github.com/vibast-solutions/ms-go-account/config"

	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Secret1!"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	verify map[string]string
	reset  map[string]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{verify: map[string]string{}, reset: map[string]string{}}
}

func (n *recordingNotifier) SendVerification(_ context.Context, to, verifyToken string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verify[to] = verifyToken
	return nil
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, to, resetToken string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset[to] = resetToken
	return nil
}

func (n *recordingNotifier) verifyTokenFor(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verify[email]
}

func (n *recordingNotifier) resetTokenFor(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reset[email]
}

func testPolicy() config.PasswordPolicy {
	return config.PasswordPolicy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
		RequireSpecial:   true,
	}
}

func testCodec(t *testing.T, clock *testClock) *token.Codec {
	t.Helper()

	reg, err := token.NewRegistry(map[token.Purpose]token.Domain{
		token.PurposeVerify:  {Secret: []byte("verify-secret"), Lifetime: 120 * 24 * time.Hour},
		token.PurposeAuth:    {Secret: []byte("auth-secret"), Lifetime: 15 * time.Minute},
		token.PurposeRefresh: {Secret: []byte("refresh-secret"), Lifetime: 90 * 24 * time.Hour},
		token.PurposeReset:   {Secret: []byte("reset-secret"), Lifetime: time.Hour},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return token.NewCodec(reg, token.WithClock(clock.Now))
}

func syncRunner(task func()) {
	task()
}

type harness struct {
	svc      service.AccountService
	store    *repository.MemoryAccountRepository
	codec    *token.Codec
	clock    *testClock
	notifier *recordingNotifier
}

func newHarness(t *testing.T, opts ...service.AccountServiceOption) *harness {
	t.Helper()

	h := &harness{
		store:    repository.NewMemoryAccountRepository(),
		clock:    newTestClock(),
		notifier: newRecordingNotifier(),
	}
	h.codec = testCodec(t, h.clock)

	base := []service.AccountServiceOption{
		service.WithAsyncRunner(syncRunner),
		service.WithClock(h.clock.Now),
		service.WithNotifier(h.notifier),
		service.WithExposedTokens(true),
	}
	h.svc = service.NewAccountService(
		h.store,
		h.codec,
		service.NewBcryptHasher(bcrypt.MinCost),
		testPolicy(),
		append(base, opts...)...,
	)
	return h
}

func (h *harness) register(t *testing.T, username, email string) *types.RegisterResponse {
	t.Helper()

	resp, err := h.svc.Register(context.Background(), &types.RegisterRequest{
		Username: username,
		Email:    email,
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return resp
}

// verified registers and verifies an account.
func (h *harness) verified(t *testing.T, email string) string {
	t.Helper()

	resp := h.register(t, "user", email)
	if _, err := h.svc.Verify(context.Background(), &types.VerifyRequest{Token: resp.GetVerifyToken()}); err != nil {
		t.Fatalf("verify %s: %v", email, err)
	}
	return resp.GetAccountId()
}

func (h *harness) login(t *testing.T, email string) *types.LoginResponse {
	t.Helper()

	resp, err := h.svc.Login(context.Background(), &types.LoginRequest{Email: email, Password: testPassword})
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return resp
}
