package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/notification"
	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/app/token"
	"github.com/vibast-solutions/ms-go-account/app/types"
	"github.com/vibast-solutions/ms-go-account/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const notifyTimeout = 10 * time.Second

// AccountService exposes one method per lifecycle transition. Every error it
// returns is one of the package Err* kinds.
type AccountService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*types.RegisterResponse, error)
	Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error)
	ResendVerification(ctx context.Context, req *types.EmailRequest) (*types.ResendVerificationResponse, error)
	Login(ctx context.Context, req *types.LoginRequest) (*types.LoginResponse, error)
	RefreshAuth(ctx context.Context, req *types.RefreshTokenRequest) (*types.RefreshAuthResponse, error)
	Authenticate(ctx context.Context, authToken string) (*types.ValidateTokenResponse, error)
	Logout(ctx context.Context, req *types.RefreshTokenRequest) error
	RequestPasswordReset(ctx context.Context, req *types.EmailRequest) (*types.RequestPasswordResetResponse, error)
	ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) error
	ChangePassword(ctx context.Context, accountID string, req *types.ChangePasswordRequest) error
	Profile(ctx context.Context, accountID string) (*types.ProfileResponse, error)
	Lookup(ctx context.Context, email string) (*types.ProfileResponse, error)
	DeleteAccount(ctx context.Context, accountID string) error
	RevokeSessions(ctx context.Context, accountID string) error
}

type AsyncRunner func(task func())

type AccountServiceOption func(*accountService)

func WithAsyncRunner(runner AsyncRunner) AccountServiceOption {
	return func(s *accountService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

// WithClock replaces time.Now for account timestamps. Token expiry follows
// the codec clock.
func WithClock(now func() time.Time) AccountServiceOption {
	return func(s *accountService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNotifier enables delivery of verify and reset links.
func WithNotifier(notifier notification.Notifier) AccountServiceOption {
	return func(s *accountService) {
		s.notifier = notifier
	}
}

// WithExposedTokens returns verify and reset tokens in responses. Meant for
// local runs and tests where no mail is delivered.
func WithExposedTokens(expose bool) AccountServiceOption {
	return func(s *accountService) {
		s.exposeTokens = expose
	}
}

type accountService struct {
	store         repository.Store
	codec         *token.Codec
	hasher        PasswordHasher
	authenticator *CredentialAuthenticator
	policy        config.PasswordPolicy
	notifier      notification.Notifier
	asyncRunner   AsyncRunner
	now           func() time.Time
	exposeTokens  bool
}

func NewAccountService(
	store repository.Store,
	codec *token.Codec,
	hasher PasswordHasher,
	policy config.PasswordPolicy,
	opts ...AccountServiceOption,
) AccountService {
	svc := &accountService{
		store:         store,
		codec:         codec,
		hasher:        hasher,
		authenticator: NewCredentialAuthenticator(store, hasher),
		policy:        policy,
		asyncRunner: func(task func()) {
			go task()
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *accountService) Register(ctx context.Context, req *types.RegisterRequest) (*types.RegisterResponse, error) {
	if err := s.policy.Validate(req.GetPassword()); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	email := req.GetEmail()
	canonicalEmail := CanonicalizeEmail(email)
	existing, err := s.store.FindByEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, boundary(err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hashed, err := s.hasher.Hash(req.GetPassword())
	if err != nil {
		return nil, boundary(err)
	}

	id := uuid.NewString()
	verifyToken, err := s.codec.Issue(id, token.PurposeVerify, 0)
	if err != nil {
		return nil, boundary(err)
	}

	now := s.now()
	account := &entity.Account{
		ID:             id,
		Username:       req.GetUsername(),
		Email:          email,
		CanonicalEmail: canonicalEmail,
		PasswordHash:   hashed,
		VerifyToken:    verifyToken,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err = s.store.Create(ctx, account); err != nil {
		return nil, boundary(err)
	}

	s.notify(account.Email, "verification", func(ctx context.Context, n notification.Notifier) error {
		return n.SendVerification(ctx, account.Email, verifyToken)
	})

	return &types.RegisterResponse{
		AccountId:   account.ID,
		Username:    account.Username,
		Email:       account.Email,
		VerifyToken: s.exposed(verifyToken),
		Message:     "registration successful, please verify your account",
	}, nil
}

func (s *accountService) Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error) {
	presented := req.GetToken()
	payload, err := s.codec.Validate(presented, token.PurposeVerify)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			// An unverified account whose verify token expired is treated as
			// abandoned: it is deleted so the email can be registered again.
			if purgeErr := s.purgeUnverified(ctx, presented); purgeErr != nil {
				return nil, purgeErr
			}
		}
		return nil, boundary(err)
	}

	var resp *types.VerifyResponse
	err = s.store.WithinTx(ctx, func(store repository.AccountStore) error {
		account, err := store.FindByIDForUpdate(ctx, payload.Subject)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrNoSuchAccount
		}
		if account.IsTokenEmpty(token.PurposeVerify) {
			resp = &types.VerifyResponse{
				AccountId:       account.ID,
				AlreadyVerified: true,
				Message:         "account is already verified",
			}
			return nil
		}
		if !IsLive(account, token.PurposeVerify, presented) {
			return ErrTokenRevoked
		}

		account.ClearToken(token.PurposeVerify)
		if err := store.Save(ctx, account); err != nil {
			return err
		}
		resp = &types.VerifyResponse{AccountId: account.ID, Message: "account verified"}
		return nil
	})
	if err != nil {
		return nil, boundary(err)
	}

	return resp, nil
}

// purgeUnverified deletes the account still holding the expired verify token.
// A token that was superseded or already consumed matches nothing and
// deletes nothing.
func (s *accountService) purgeUnverified(ctx context.Context, presented string) error {
	var purged *entity.Account
	err := s.store.WithinTx(ctx, func(store repository.AccountStore) error {
		account, err := store.FindByTokenForUpdate(ctx, token.PurposeVerify, presented)
		if err != nil || account == nil {
			return err
		}
		if err := store.Delete(ctx, account.ID); err != nil {
			return err
		}
		purged = account
		return nil
	})
	if err != nil {
		return boundary(err)
	}

	if purged != nil {
		logrus.WithFields(logrus.Fields{
			"account_id": purged.ID,
			"email":      purged.Email,
		}).Warn("Deleted unverified account with expired verify token")
	}
	return nil
}

func (s *accountService) ResendVerification(ctx context.Context, req *types.EmailRequest) (*types.ResendVerificationResponse, error) {
	var account *entity.Account
	var verifyToken string
	err := s.store.WithinTx(ctx, func(store repository.AccountStore) error {
		locked, err := lockByEmail(ctx, store, req.GetEmail())
		if err != nil {
			return err
		}
		if locked.IsVerified() {
			return ErrAlreadyVerified
		}
		if verifyToken, err = s.issue(locked, token.PurposeVerify, 0); err != nil {
			return err
		}
		account = locked
		return store.Save(ctx, locked)
	})
	if err != nil {
		return nil, boundary(err)
	}

	s.notify(account.Email, "verification", func(ctx context.Context, n notification.Notifier) error {
		return n.SendVerification(ctx, account.Email, verifyToken)
	})

	return &types.ResendVerificationResponse{
		VerifyToken: s.exposed(verifyToken),
		Message:     "verification email sent",
	}, nil
}

func (s *accountService) Login(ctx context.Context, req *types.LoginRequest) (*types.LoginResponse, error) {
	// Credentials are checked before verification so that only the password
	// holder learns the account is still pending.
	account, err := s.authenticator.Authenticate(ctx, req.GetEmail(), req.GetPassword())
	if err != nil {
		return nil, err
	}
	if !account.IsVerified() {
		return nil, ErrNotVerified
	}

	authLifetime, err := s.codec.DefaultLifetime(token.PurposeAuth)
	if err != nil {
		return nil, boundary(err)
	}
	refreshLifetime, err := s.refreshLifetime(req.GetRefreshTokenDuration())
	if err != nil {
		return nil, boundary(err)
	}

	resp := &types.LoginResponse{
		ExpiresIn:        int64(authLifetime.Seconds()),
		RefreshExpiresIn: int64(refreshLifetime.Seconds()),
	}
	err = s.store.WithinTx(ctx, func(store repository.AccountStore) error {
		locked, err := store.FindByIDForUpdate(ctx, account.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrNoSuchAccount
		}
		if !locked.IsVerified() {
			return ErrNotVerified
		}

		if resp.AuthToken, err = s.issue(locked, token.PurposeAuth, 0); err != nil {
			return err
		}
		if resp.RefreshToken, err = s.issue(locked, token.PurposeRefresh, refreshLifetime); err != nil {
			return err
		}
		return store.Save(ctx, locked)
	})
	if err != nil {
		return nil, boundary(err)
	}

	return resp, nil
}

// refreshLifetime honours a client-requested lifetime in minutes but never
// extends past the configured default.
func (s *accountService) refreshLifetime(minutes int64) (time.Duration, error) {
	ceiling, err := s.codec.DefaultLifetime(token.PurposeRefresh)
	if err != nil {
		return 0, err
	}
	if minutes <= 0 || minutes >= int64(ceiling/time.Minute) {
		return ceiling, nil
	}
	return time.Duration(minutes) * time.Minute, nil
}

func (s *accountService) RefreshAuth(ctx context.Context, req *types.RefreshTokenRequest) (*types.RefreshAuthResponse, error) {
	presented := req.GetRefreshToken()
	payload, err := s.codec.Validate(presented, token.PurposeRefresh)
	if err != nil {
		return nil, boundary(err)
	}

	authLifetime, err := s.codec.DefaultLifetime(token.PurposeAuth)
	if err != nil {
		return nil, boundary(err)
	}

	resp := &types.RefreshAuthResponse{ExpiresIn: int64(authLifetime.Seconds())}
	err = s.store.WithinTx(ctx, func(store repository.AccountStore) error {
		account, err := store.FindByIDForUpdate(ctx, payload.Subject)
		if err != nil {
			return err
		}
		if !IsLive(account, token.PurposeRefresh, presented) {
			return ErrTokenRevoked
		}

		if resp.AuthToken, err = s.issue(account, token.PurposeAuth, 0); err != nil {
			return err
		}
		return store.Save(ctx, account)
	})
	if err != nil {
		return nil, boundary(err)
	}

	return resp, nil
}

func (s *accountService) Authenticate(ctx context.Context, authToken string) (*types.ValidateTokenResponse, error) {
	payload, err := s.codec.Validate(authToken, token.PurposeAuth)
	if err != nil {
		return nil, boundary(err)
	}

	account, err := s.store.FindByID(ctx, payload.Subject)
	if err != nil {
		return nil, boundary(err)
	}
	if !IsLive(account, token.PurposeAuth, authToken) {
		return nil, ErrTokenRevoked
	}

	return &types.ValidateTokenResponse{
		Valid:     true,
		AccountId: account.ID,
		ExpiresAt: payload.ExpiresAt.Unix(),
	}, nil
}

// Logout matches the stored refresh token by value only. The token is not
// re-validated, so an expired but still stored token can end its session.
func (s *accountService) Logout(ctx context.Context, req *types.RefreshTokenRequest) error {
	err := s.store.WithinTx(ctx, func(store repository.AccountStore) error {
		account, err := store.FindByTokenForUpdate(ctx, token.PurposeRefresh, req.GetRefreshToken())
		if err != nil {
			return err
		}
		if account == nil {
			return ErrNoSuchSession
		}

		clearSessions(account)
		return store.Save(ctx, account)
	})
	return boundary(err)
}

func (s *accountService) RequestPasswordReset(ctx context.Context, req *types.EmailRequest) (*types.RequestPasswordResetResponse, error) {
	var account *entity.Account
	var resetToken string
	err := s.store.WithinTx(ctx, func(store repository.AccountStore) error {
		locked, err := lockByEmail(ctx, store, req.GetEmail())
		if err != nil {
			return err
		}
		if resetToken, err = s.issue(locked, token.PurposeReset, 0); err != nil {
			return err
		}
		account = locked
		return store.Save(ctx, locked)
	})
	if err != nil {
		return nil, boundary(err)
	}

	s.notify(account.Email, "password reset", func(ctx context.Context, n notification.Notifier) error {
		return n.SendPasswordReset(ctx, account.Email, resetToken)
	})

	return &types.RequestPasswordResetResponse{
		ResetToken: s.exposed(resetToken),
		Message:    "reset token generated successfully",
	}, nil
}

// ResetPassword replaces the credential and ends every session of the
// account.
func (s *accountService) ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) error {
	presented := req.GetToken()
	payload, err := s.codec.Validate(presented, token.PurposeReset)
	if err != nil {
		return boundary(err)
	}

	if err = s.policy.Validate(req.GetNewPassword()); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}
	hashed, err := s.hasher.Hash(req.GetNewPassword())
	if err != nil {
		return boundary(err)
	}

	err = s.store.WithinTx(ctx, func(store repository.AccountStore) error {
		account, err := store.FindByIDForUpdate(ctx, payload.Subject)
		if err != nil {
			return err
		}
		if !IsLive(account, token.PurposeReset, presented) {
			return ErrTokenRevoked
		}

		account.PasswordHash = hashed
		account.ClearToken(token.PurposeReset)
		clearSessions(account)
		return store.Save(ctx, account)
	})
	return boundary(err)
}

func (s *accountService) ChangePassword(ctx context.Context, accountID string, req *types.ChangePasswordRequest) error {
	if err := s.policy.Validate(req.GetNewPassword()); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}
	hashed, err := s.hasher.Hash(req.GetNewPassword())
	if err != nil {
		return boundary(err)
	}

	err = s.store.WithinTx(ctx, func(store repository.AccountStore) error {
		account, err := store.FindByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrNoSuchAccount
		}
		if !s.hasher.Matches(req.GetOldPassword(), account.PasswordHash) {
			return ErrCredentialMismatch
		}

		account.PasswordHash = hashed
		clearSessions(account)
		return store.Save(ctx, account)
	})
	return boundary(err)
}

func (s *accountService) Profile(ctx context.Context, accountID string) (*types.ProfileResponse, error) {
	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return nil, boundary(err)
	}
	if account == nil {
		return nil, ErrNoSuchAccount
	}
	return profileOf(account), nil
}

func (s *accountService) Lookup(ctx context.Context, email string) (*types.ProfileResponse, error) {
	account, err := s.store.FindByEmail(ctx, CanonicalizeEmail(email))
	if err != nil {
		return nil, boundary(err)
	}
	if account == nil {
		return nil, ErrNoSuchAccount
	}
	return profileOf(account), nil
}

func (s *accountService) DeleteAccount(ctx context.Context, accountID string) error {
	err := s.store.WithinTx(ctx, func(store repository.AccountStore) error {
		account, err := store.FindByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrNoSuchAccount
		}
		return store.Delete(ctx, account.ID)
	})
	return boundary(err)
}

func (s *accountService) RevokeSessions(ctx context.Context, accountID string) error {
	err := s.store.WithinTx(ctx, func(store repository.AccountStore) error {
		account, err := store.FindByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrNoSuchAccount
		}

		clearSessions(account)
		return store.Save(ctx, account)
	})
	return boundary(err)
}

// issue signs a token of purpose p for account and stores it, superseding the
// previous token of that purpose. The caller persists the account.
func (s *accountService) issue(account *entity.Account, p token.Purpose, lifetime time.Duration) (string, error) {
	signed, err := s.codec.Issue(account.ID, p, lifetime)
	if err != nil {
		return "", err
	}
	account.SetToken(p, signed)
	return signed, nil
}

func (s *accountService) exposed(tok string) string {
	if s.exposeTokens {
		return tok
	}
	return ""
}

func (s *accountService) notify(email, kind string, send func(ctx context.Context, n notification.Notifier) error) {
	if s.notifier == nil {
		return
	}

	notifier := s.notifier
	s.asyncRunner(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := send(sendCtx, notifier); err != nil {
			logrus.WithError(err).WithField("email", email).Errorf("failed to send %s email", kind)
		}
	})
}

func lockByEmail(ctx context.Context, store repository.AccountStore, email string) (*entity.Account, error) {
	found, err := store.FindByEmail(ctx, CanonicalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNoSuchAccount
	}

	locked, err := store.FindByIDForUpdate(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	if locked == nil {
		return nil, ErrNoSuchAccount
	}
	return locked, nil
}

func clearSessions(account *entity.Account) {
	account.ClearToken(token.PurposeAuth)
	account.ClearToken(token.PurposeRefresh)
}

func profileOf(account *entity.Account) *types.ProfileResponse {
	return &types.ProfileResponse{
		AccountId: account.ID,
		Username:  account.Username,
		Email:     account.Email,
		State:     string(account.State()),
		CreatedAt: account.CreatedAt.Unix(),
	}
}
