package grpc_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	accountgrpc "github.com/vibast-solutions/ms-go-account/app/grpc"
	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/app/service"
	"github.com/vibast-solutions/ms-go-account/app/token"
	"github.com/vibast-solutions/ms-go-account/config"

	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const testPassword = "Secret1!"

type testClock struct {
	mu  sync.Mutex
	now time.Time
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

func newAccountService(t *testing.T, clock *testClock) service.AccountService {
	t.Helper()

	reg, err := token.NewRegistry(map[token.Purpose]token.Domain{
		token.PurposeVerify:  {Secret: []byte("verify-secret"), Lifetime: time.Hour},
		token.PurposeAuth:    {Secret: []byte("auth-secret"), Lifetime: 15 * time.Minute},
		token.PurposeRefresh: {Secret: []byte("refresh-secret"), Lifetime: 24 * time.Hour},
		token.PurposeReset:   {Secret: []byte("reset-secret"), Lifetime: time.Hour},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	return service.NewAccountService(
		repository.NewMemoryAccountRepository(),
		token.NewCodec(reg, token.WithClock(clock.Now)),
		service.NewBcryptHasher(bcrypt.MinCost),
		config.PasswordPolicy{MinLength: 8, RequireNumber: true},
		service.WithAsyncRunner(func(task func()) { task() }),
		service.WithExposedTokens(true),
		service.WithClock(clock.Now),
	)
}

func newClient(t *testing.T) *accountgrpc.AccountServiceClient {
	t.Helper()

	c, _ := newClientWithClock(t)
	return c
}

func newClientWithClock(t *testing.T) (*accountgrpc.AccountServiceClient, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Now()}
	accounts := newAccountService(t, clock)
	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(
		grpc.UnaryInterceptor(accountgrpc.AuthUnaryInterceptor(accounts)),
		grpc.StreamInterceptor(accountgrpc.AuthStreamInterceptor(accounts)),
	)
	accountgrpc.RegisterAccountServiceServer(server, accountgrpc.NewAccountServer(accounts))
	go func() {
		_ = server.Serve(listener)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})
	return accountgrpc.NewAccountServiceClient(conn), clock
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()

	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	return s
}

func call(t *testing.T, c *accountgrpc.AccountServiceClient, ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	t.Helper()

	return c.Call(ctx, method, mustStruct(t, fields))
}

func expectStatus(t *testing.T, err error, code codes.Code, reason string) {
	t.Helper()

	if status.Code(err) != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
	if reason != "" && accountgrpc.ErrorReason(err) != reason {
		t.Fatalf("expected reason %q, got %q", reason, accountgrpc.ErrorReason(err))
	}
}

func withBearer(authToken string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+authToken)
}

func session(t *testing.T, c *accountgrpc.AccountServiceClient, email string) string {
	t.Helper()

	ctx := context.Background()
	reg, err := call(t, c, ctx, "Register", map[string]any{"username": "bob", "email": email, "password": testPassword})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	verifyToken := reg.GetFields()["verify_token"].GetStringValue()
	if verifyToken == "" {
		t.Fatalf("expected exposed verify token")
	}
	if _, err = call(t, c, ctx, "Verify", map[string]any{"token": verifyToken}); err != nil {
		t.Fatalf("verify: %v", err)
	}
	login, err := call(t, c, ctx, "Login", map[string]any{"email": email, "password": testPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return login.GetFields()["auth_token"].GetStringValue()
}

func TestRegister_InvalidArgument(t *testing.T) {
	c := newClient(t)

	_, err := call(t, c, context.Background(), "Register", map[string]any{"email": "bob@x.com", "password": testPassword})
	expectStatus(t, err, codes.InvalidArgument, "")
}

func TestRegister_WeakPasswordCarriesReason(t *testing.T) {
	c := newClient(t)

	_, err := call(t, c, context.Background(), "Register", map[string]any{"username": "bob", "email": "bob@x.com", "password": "short"})
	expectStatus(t, err, codes.InvalidArgument, service.CodeWeakPassword)
}

func TestRegister_Duplicate(t *testing.T) {
	c := newClient(t)
	session(t, c, "bob@x.com")

	_, err := call(t, c, context.Background(), "Register", map[string]any{"username": "x", "email": "BOB@x.com", "password": testPassword})
	expectStatus(t, err, codes.AlreadyExists, service.CodeDuplicateEmail)
}

func TestLogin_NotVerified(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	if _, err := call(t, c, ctx, "Register", map[string]any{"username": "carol", "email": "carol@x.com", "password": testPassword}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := call(t, c, ctx, "Login", map[string]any{"email": "carol@x.com", "password": testPassword})
	expectStatus(t, err, codes.PermissionDenied, service.CodeNotVerified)
}

func TestProfile_RequiresAuth(t *testing.T) {
	c := newClient(t)

	_, err := call(t, c, context.Background(), "Profile", map[string]any{})
	expectStatus(t, err, codes.Unauthenticated, "")

	_, err = call(t, c, withBearer("garbage"), "Profile", map[string]any{})
	expectStatus(t, err, codes.InvalidArgument, service.CodeTokenMalformed)
}

func TestProfile_WithAuthToken(t *testing.T) {
	c := newClient(t)
	authToken := session(t, c, "bob@x.com")

	res, err := call(t, c, withBearer(authToken), "Profile", map[string]any{})
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if res.GetFields()["state"].GetStringValue() != "logged_in" {
		t.Fatalf("unexpected state: %v", res.GetFields()["state"])
	}
}

func TestChangePassword_RevokesSession(t *testing.T) {
	c := newClient(t)
	authToken := session(t, c, "bob@x.com")

	_, err := call(t, c, withBearer(authToken), "ChangePassword", map[string]any{"old_password": "wrong123", "new_password": "another123"})
	expectStatus(t, err, codes.Unauthenticated, service.CodeCredentialMismatch)

	if _, err = call(t, c, withBearer(authToken), "ChangePassword", map[string]any{"old_password": testPassword, "new_password": "another123"}); err != nil {
		t.Fatalf("change password: %v", err)
	}

	_, err = call(t, c, withBearer(authToken), "Profile", map[string]any{})
	expectStatus(t, err, codes.Unauthenticated, service.CodeTokenRevoked)
}

func TestValidateToken(t *testing.T) {
	c := newClient(t)
	authToken := session(t, c, "bob@x.com")

	res, err := call(t, c, context.Background(), "ValidateToken", map[string]any{"token": authToken})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !res.GetFields()["valid"].GetBoolValue() {
		t.Fatalf("expected valid token")
	}

	res, err = call(t, c, context.Background(), "ValidateToken", map[string]any{"token": "garbage"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.GetFields()["valid"].GetBoolValue() {
		t.Fatalf("expected invalid token")
	}
	if code := res.GetFields()["code"].GetStringValue(); code != service.CodeTokenMalformed {
		t.Fatalf("expected %q, got %q", service.CodeTokenMalformed, code)
	}
}

func TestValidateToken_DistinguishesExpiredFromRevoked(t *testing.T) {
	c, clock := newClientWithClock(t)
	session(t, c, "bob@x.com")
	ctx := context.Background()

	login, err := call(t, c, ctx, "Login", map[string]any{"email": "bob@x.com", "password": testPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	authToken := login.GetFields()["auth_token"].GetStringValue()
	refreshToken := login.GetFields()["refresh_token"].GetStringValue()

	clock.Advance(16 * time.Minute)
	res, err := call(t, c, ctx, "ValidateToken", map[string]any{"token": authToken})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.GetFields()["valid"].GetBoolValue() || res.GetFields()["code"].GetStringValue() != service.CodeTokenExpired {
		t.Fatalf("expected expired token, got %v", res)
	}

	refreshed, err := call(t, c, ctx, "RefreshAuth", map[string]any{"refresh_token": refreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err = call(t, c, ctx, "Logout", map[string]any{"refresh_token": refreshToken}); err != nil {
		t.Fatalf("logout: %v", err)
	}

	res, err = call(t, c, ctx, "ValidateToken", map[string]any{"token": refreshed.GetFields()["auth_token"].GetStringValue()})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.GetFields()["valid"].GetBoolValue() || res.GetFields()["code"].GetStringValue() != service.CodeTokenRevoked {
		t.Fatalf("expected revoked token, got %v", res)
	}
}

func TestDeleteAccount(t *testing.T) {
	c := newClient(t)
	authToken := session(t, c, "bob@x.com")

	if _, err := call(t, c, withBearer(authToken), "DeleteAccount", map[string]any{}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := call(t, c, context.Background(), "Login", map[string]any{"email": "bob@x.com", "password": testPassword})
	expectStatus(t, err, codes.NotFound, service.CodeNoSuchAccount)
}

func TestAccountServer_PrivateMethodWithoutInterceptor(t *testing.T) {
	server := accountgrpc.NewAccountServer(newAccountService(t, &testClock{now: time.Now()}))

	_, err := server.Profile(context.Background(), &structpb.Struct{})
	expectStatus(t, err, codes.Unauthenticated, "")
}

func TestGRPCCode(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{service.ErrTokenMalformed, codes.InvalidArgument},
		{service.ErrTokenExpired, codes.Unauthenticated},
		{service.ErrNoSuchSession, codes.Unauthenticated},
		{service.ErrNotVerified, codes.PermissionDenied},
		{service.ErrNoSuchAccount, codes.NotFound},
		{service.ErrAlreadyVerified, codes.AlreadyExists},
		{service.ErrInternal, codes.Internal},
	}
	for _, tc := range cases {
		if got := accountgrpc.GRPCCode(tc.err); got != tc.want {
			t.Fatalf("%v: expected %s, got %s", tc.err, tc.want, got)
		}
	}
}
