package grpc

import (
	"errors"

	"github.com/vibast-solutions/ms-go-account/app/service"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "account.v1"

// GRPCCode maps a service error kind to its status code.
func GRPCCode(err error) codes.Code {
	switch {
	case errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrTokenMalformed),
		errors.Is(err, service.ErrInvalidPurpose):
		return codes.InvalidArgument
	case errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, service.ErrCredentialMismatch),
		errors.Is(err, service.ErrNoSuchSession):
		return codes.Unauthenticated
	case errors.Is(err, service.ErrNotVerified):
		return codes.PermissionDenied
	case errors.Is(err, service.ErrNoSuchAccount):
		return codes.NotFound
	case errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrAlreadyVerified):
		return codes.AlreadyExists
	default:
		return codes.Internal
	}
}

// statusError converts a service error into a status carrying the stable
// error code as ErrorInfo.Reason.
func statusError(err error) error {
	code := GRPCCode(err)
	msg := err.Error()
	if code == codes.Internal {
		msg = "internal server error"
	}

	st := status.New(code, msg)
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: service.ErrorCode(err),
		Domain: errorDomain,
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// ErrorReason extracts the stable error code from a status error, or "".
func ErrorReason(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}
