package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	httpdto "github.com/vibast-solutions/ms-go-account/app/dto"
	"github.com/vibast-solutions/ms-go-account/app/service"
	"github.com/vibast-solutions/ms-go-account/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// AccountIDKey is the echo context key holding the authenticated account id.
const AccountIDKey = "account_id"

const accessTokenHeader = "x-access-token"

type authTokenValidator interface {
	Authenticate(ctx context.Context, authToken string) (*types.ValidateTokenResponse, error)
}

type AuthMiddleware struct {
	accounts authTokenValidator
}

func NewAuthMiddleware(accounts authTokenValidator) *AuthMiddleware {
	return &AuthMiddleware{accounts: accounts}
}

// RequireAuth admits requests carrying a live auth token, either as a bearer
// credential or in the x-access-token header.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, err := authToken(c.Request())
		if err != nil {
			logrus.WithError(err).Debug("Rejected request without usable auth token")
			return c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{
				Error: err.Error(),
				Code:  service.CodeTokenMalformed,
			})
		}

		res, err := m.accounts.Authenticate(c.Request().Context(), tokenString)
		if err != nil {
			code := service.ErrorCode(err)
			if errors.Is(err, service.ErrInternal) {
				logrus.WithError(err).Error("Auth token check failed")
				return c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{
					Error: "internal server error",
					Code:  code,
				})
			}
			logrus.WithField("code", code).Debug("Rejected auth token")
			return c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{
				Error: err.Error(),
				Code:  code,
			})
		}

		c.Set(AccountIDKey, res.GetAccountId())

		return next(c)
	}
}

// AccountID returns the account id stored by RequireAuth.
func AccountID(c echo.Context) string {
	id, _ := c.Get(AccountIDKey).(string)
	return id
}

func authToken(r *http.Request) (string, error) {
	if raw := strings.TrimSpace(r.Header.Get(accessTokenHeader)); raw != "" {
		return raw, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("missing authorization header")
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
