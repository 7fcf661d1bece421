package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-account/app/service"
	"github.com/vibast-solutions/ms-go-account/app/types"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const resetRequestedMessage = "if the account exists, a password reset link has been sent"

type validator interface {
	Validate() error
}

type AccountServer struct {
	accounts service.AccountService
}

func NewAccountServer(accounts service.AccountService) *AccountServer {
	return &AccountServer{accounts: accounts}
}

func decode[T any, PT interface {
	*T
	validator
}](in *structpb.Struct, op string) (PT, error) {
	req := PT(new(T))
	if err := types.DecodeStruct(in, req); err != nil {
		logrus.WithError(err).Debug("Failed to decode " + op + " request (grpc)")
		return nil, status.Error(codes.InvalidArgument, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		logrus.Debug(op + " validation failed (grpc)")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return req, nil
}

func encode(src any) (*structpb.Struct, error) {
	out, err := types.EncodeStruct(src)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode response (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

func fail(entry *logrus.Entry, op string, err error) error {
	if service.ErrorCode(err) == service.CodeInternal {
		entry.WithError(err).Error(op + " failed (grpc)")
	} else {
		entry.WithField("code", service.ErrorCode(err)).Warn(op + " failed: " + err.Error() + " (grpc)")
	}
	return statusError(err)
}

func callerID(ctx context.Context) (string, error) {
	accountID, ok := AccountIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "unauthorized")
	}
	return accountID, nil
}

func (s *AccountServer) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[types.RegisterRequest](in, "Register")
	if err != nil {
		return nil, err
	}

	entry := logrus.WithField("email", req.GetEmail())
	entry.Info("Register request received (grpc)")
	res, err := s.accounts.Register(ctx, req)
	if err != nil {
		return nil, fail(entry, "Register", err)
	}

	entry.WithField("account_id", res.GetAccountId()).Info("Account registered (grpc)")
	return encode(res)
}

func (s *AccountServer) Verify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[types.VerifyRequest](in, "Verify")
	if err != nil {
		return nil, err
	}

	res, err := s.accounts.Verify(ctx, req)
	if err != nil {
		return nil, fail(logrus.NewEntry(logrus.StandardLogger()), "Verify", err)
	}

	logrus.WithField("account_id", res.AccountId).Info("Account verified (grpc)")
	return encode(res)
}

func (s *AccountServer) ResendVerification(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[types.EmailRequest](in, "Resend verification")
	if err != nil {
		return nil, err
	}

	entry := logrus.WithField("email", req.GetEmail())
	res, err := s.accounts.ResendVerification(ctx, req)
	if err != nil {
		return nil, fail(entry, "Resend verification", err)
	}

	entry.Info("Verification token reissued (grpc)")
	return encode(res)
}

func (s *AccountServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[types.LoginRequest](in, "Login")
	if err != nil {
		return nil, err
	}

	entry := logrus.WithField("email", req.GetEmail())
	entry.Info("Login request received (grpc)")
	res, err := s.accounts.Login(ctx, req)
	if err != nil {
		return nil, fail(entry, "Login", err)
	}

	entry.Info("Login successful (grpc)")
	return encode(res)
}

func (s *AccountServer) RefreshAuth(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[types.RefreshTokenRequest](in, "Refresh auth")
	if err != nil {
		return nil, err
	}

	res, err := s.accounts.RefreshAuth(ctx, req)
	if err != nil {
		return nil, fail(logrus.NewEntry(logrus.StandardLogger()), "Refresh auth", err)
	}
	return encode(res)
}

func (s *AccountServer) Logout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[types.RefreshTokenRequest](in, "Logout")
	if err != nil {
		return nil, err
	}

	if err = s.accounts.Logout(ctx, req); err != nil {
		return nil, fail(logrus.NewEntry(logrus.StandardLogger()), "Logout", err)
	}

	logrus.Info("Logout successful (grpc)")
	return encode(types.MessageResponse{Message: "logged out successfully"})
}

func (s *AccountServer) RequestPasswordReset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[types.EmailRequest](in, "Request password reset")
	if err != nil {
		return nil, err
	}

	entry := logrus.WithField("email", req.GetEmail())
	entry.Info("Password reset requested (grpc)")
	res, err := s.accounts.RequestPasswordReset(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrNoSuchAccount) {
			entry.Debug("Password reset requested for unknown email (grpc)")
			return encode(types.RequestPasswordResetResponse{Message: resetRequestedMessage})
		}
		return nil, fail(entry, "Request password reset", err)
	}

	res.Message = resetRequestedMessage
	return encode(res)
}

func (s *AccountServer) ResetPassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[types.ResetPasswordRequest](in, "Reset password")
	if err != nil {
		return nil, err
	}

	if err = s.accounts.ResetPassword(ctx, req); err != nil {
		return nil, fail(logrus.NewEntry(logrus.StandardLogger()), "Reset password", err)
	}

	logrus.Info("Password reset completed (grpc)")
	return encode(types.MessageResponse{Message: "password reset successfully"})
}

func (s *AccountServer) ValidateToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[types.ValidateTokenRequest](in, "Validate token")
	if err != nil {
		return nil, err
	}

	res, err := s.accounts.Authenticate(ctx, req.GetToken())
	if err != nil {
		if errors.Is(err, service.ErrInternal) {
			return nil, fail(logrus.NewEntry(logrus.StandardLogger()), "Validate token", err)
		}
		code := service.ErrorCode(err)
		logrus.WithField("code", code).Debug("Token rejected (grpc)")
		return encode(types.ValidateTokenResponse{Valid: false, Code: code})
	}
	return encode(res)
}

func (s *AccountServer) Profile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.accounts.Profile(ctx, accountID)
	if err != nil {
		return nil, fail(logrus.WithField("account_id", accountID), "Profile", err)
	}
	return encode(res)
}

func (s *AccountServer) DeleteAccount(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	entry := logrus.WithField("account_id", accountID)
	entry.Info("Delete account request received (grpc)")
	if err = s.accounts.DeleteAccount(ctx, accountID); err != nil {
		return nil, fail(entry, "Delete account", err)
	}

	entry.Info("Account deleted (grpc)")
	return encode(types.MessageResponse{Message: "account deleted"})
}

func (s *AccountServer) ChangePassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	req, err := decode[types.ChangePasswordRequest](in, "Change password")
	if err != nil {
		return nil, err
	}

	entry := logrus.WithField("account_id", accountID)
	entry.Info("Change password request received (grpc)")
	if err = s.accounts.ChangePassword(ctx, accountID, req); err != nil {
		return nil, fail(entry, "Change password", err)
	}

	entry.Info("Password changed (grpc)")
	return encode(types.MessageResponse{Message: "password changed successfully"})
}
