package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-account/app/service"
	"github.com/vibast-solutions/ms-go-account/app/types"

	"github.com/sirupsen/logrus"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type accountIDKey struct{}

type authTokenValidator interface {
	Authenticate(ctx context.Context, authToken string) (*types.ValidateTokenResponse, error)
}

// AuthUnaryInterceptor authenticates calls to private methods and stores the
// account id in the handler context. Public methods pass through.
func AuthUnaryInterceptor(accounts authTokenValidator) gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		if !privateMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		accountID, err := authenticateIncoming(ctx, accounts)
		if err != nil {
			return nil, err
		}
		return handler(context.WithValue(ctx, accountIDKey{}, accountID), req)
	}
}

func AuthStreamInterceptor(accounts authTokenValidator) gogrpc.StreamServerInterceptor {
	return func(srv any, ss gogrpc.ServerStream, info *gogrpc.StreamServerInfo, handler gogrpc.StreamHandler) error {
		if !privateMethods[info.FullMethod] {
			return handler(srv, ss)
		}

		accountID, err := authenticateIncoming(ss.Context(), accounts)
		if err != nil {
			return err
		}
		ctx := context.WithValue(ss.Context(), accountIDKey{}, accountID)
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// AccountIDFromContext returns the account id set by the auth interceptors.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey{}).(string)
	return id, ok && id != ""
}

func authenticateIncoming(ctx context.Context, accounts authTokenValidator) (string, error) {
	authToken := incomingAuthToken(ctx)
	if authToken == "" {
		return "", status.Error(codes.Unauthenticated, "unauthorized")
	}

	res, err := accounts.Authenticate(ctx, authToken)
	if err != nil {
		if errors.Is(err, service.ErrInternal) {
			logrus.WithError(err).Error("Auth token check failed (grpc)")
		} else {
			logrus.WithField("code", service.ErrorCode(err)).Debug("Rejected auth token (grpc)")
		}
		return "", statusError(err)
	}

	return res.GetAccountId(), nil
}

func incomingAuthToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get("x-access-token"); len(values) > 0 && strings.TrimSpace(values[0]) != "" {
		return strings.TrimSpace(values[0])
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}
	parts := strings.Fields(values[0])
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

type wrappedServerStream struct {
	gogrpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
