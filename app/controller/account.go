package controller

import (
	"errors"
	"net/http"

	httpdto "github.com/vibast-solutions/ms-go-account/app/dto"
	"github.com/vibast-solutions/ms-go-account/app/middleware"
	"github.com/vibast-solutions/ms-go-account/app/service"
	"github.com/vibast-solutions/ms-go-account/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const resetRequestedMessage = "if the account exists, a password reset link has been sent"

type AccountController struct {
	accounts service.AccountService
}

func NewAccountController(accounts service.AccountService) *AccountController {
	return &AccountController{accounts: accounts}
}

// HTTPStatus maps a service error kind to its HTTP status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrTokenMalformed),
		errors.Is(err, service.ErrInvalidPurpose):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, service.ErrCredentialMismatch),
		errors.Is(err, service.ErrNoSuchSession):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotVerified):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNoSuchAccount):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrAlreadyVerified):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (c *AccountController) fail(ctx echo.Context, entry *logrus.Entry, op string, err error) error {
	code := service.ErrorCode(err)
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		entry.WithError(err).Error(op + " failed")
		return ctx.JSON(status, httpdto.ErrorResponse{Error: "internal server error", Code: service.CodeInternal})
	}

	entry.WithField("code", code).Warn(op + " failed: " + err.Error())
	return ctx.JSON(status, httpdto.ErrorResponse{Error: err.Error(), Code: code})
}

func badBody(ctx echo.Context, op string, err error) error {
	logrus.WithError(err).Debug("Failed to bind " + op + " request")
	return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
}

func invalid(ctx echo.Context, entry *logrus.Entry, op string, err error) error {
	entry.Debug(op + " validation failed")
	return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
}

func (c *AccountController) Register(ctx echo.Context) error {
	req, err := types.NewRegisterRequestFromContext(ctx)
	if err != nil {
		return badBody(ctx, "register", err)
	}

	entry := logrus.WithField("email", req.GetEmail())
	if err = req.Validate(); err != nil {
		return invalid(ctx, entry, "Register", err)
	}

	entry.Info("Register request received")
	res, err := c.accounts.Register(ctx.Request().Context(), req)
	if err != nil {
		return c.fail(ctx, entry, "Register", err)
	}

	entry.WithField("account_id", res.GetAccountId()).Info("Account registered")
	return ctx.JSON(http.StatusCreated, res)
}

func (c *AccountController) Verify(ctx echo.Context) error {
	req, err := types.NewVerifyRequestFromContext(ctx)
	if err != nil {
		return badBody(ctx, "verify", err)
	}

	entry := logrus.NewEntry(logrus.StandardLogger())
	if err = req.Validate(); err != nil {
		return invalid(ctx, entry, "Verify", err)
	}

	res, err := c.accounts.Verify(ctx.Request().Context(), req)
	if err != nil {
		return c.fail(ctx, entry, "Verify", err)
	}

	logrus.WithFields(logrus.Fields{
		"account_id":       res.AccountId,
		"already_verified": res.GetAlreadyVerified(),
	}).Info("Account verified")
	return ctx.JSON(http.StatusOK, res)
}

func (c *AccountController) ResendVerification(ctx echo.Context) error {
	req, err := types.NewEmailRequestFromContext(ctx)
	if err != nil {
		return badBody(ctx, "resend verification", err)
	}

	entry := logrus.WithField("email", req.GetEmail())
	if err = req.Validate(); err != nil {
		return invalid(ctx, entry, "Resend verification", err)
	}

	entry.Info("Resend verification request received")
	res, err := c.accounts.ResendVerification(ctx.Request().Context(), req)
	if err != nil {
		return c.fail(ctx, entry, "Resend verification", err)
	}

	entry.Info("Verification token reissued")
	return ctx.JSON(http.StatusOK, res)
}

func (c *AccountController) Login(ctx echo.Context) error {
	req, err := types.NewLoginRequestFromContext(ctx)
	if err != nil {
		return badBody(ctx, "login", err)
	}

	entry := logrus.WithField("email", req.GetEmail())
	if err = req.Validate(); err != nil {
		return invalid(ctx, entry, "Login", err)
	}

	entry.Info("Login request received")
	res, err := c.accounts.Login(ctx.Request().Context(), req)
	if err != nil {
		return c.fail(ctx, entry, "Login", err)
	}

	entry.Info("Login successful")
	return ctx.JSON(http.StatusOK, res)
}

func (c *AccountController) RefreshAuth(ctx echo.Context) error {
	req, err := types.NewRefreshTokenRequestFromContext(ctx)
	if err != nil {
		return badBody(ctx, "token", err)
	}

	entry := logrus.NewEntry(logrus.StandardLogger())
	if err = req.Validate(); err != nil {
		return invalid(ctx, entry, "Refresh auth", err)
	}

	res, err := c.accounts.RefreshAuth(ctx.Request().Context(), req)
	if err != nil {
		return c.fail(ctx, entry, "Refresh auth", err)
	}

	entry.Debug("Auth token refreshed")
	return ctx.JSON(http.StatusOK, res)
}

func (c *AccountController) Logout(ctx echo.Context) error {
	req, err := types.NewRefreshTokenRequestFromContext(ctx)
	if err != nil {
		return badBody(ctx, "logout", err)
	}

	entry := logrus.NewEntry(logrus.StandardLogger())
	if err = req.Validate(); err != nil {
		return invalid(ctx, entry, "Logout", err)
	}

	if err = c.accounts.Logout(ctx.Request().Context(), req); err != nil {
		return c.fail(ctx, entry, "Logout", err)
	}

	entry.Info("Logout successful")
	return ctx.JSON(http.StatusOK, types.MessageResponse{Message: "logged out successfully"})
}

func (c *AccountController) RequestPasswordReset(ctx echo.Context) error {
	req, err := types.NewEmailRequestFromContext(ctx)
	if err != nil {
		return badBody(ctx, "password reset", err)
	}

	entry := logrus.WithField("email", req.GetEmail())
	if err = req.Validate(); err != nil {
		return invalid(ctx, entry, "Password reset", err)
	}

	entry.Info("Password reset request received")
	res, err := c.accounts.RequestPasswordReset(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrNoSuchAccount) {
			entry.Debug("Password reset requested for unknown account")
			return ctx.JSON(http.StatusOK, types.RequestPasswordResetResponse{Message: resetRequestedMessage})
		}
		return c.fail(ctx, entry, "Password reset", err)
	}

	res.Message = resetRequestedMessage
	return ctx.JSON(http.StatusOK, res)
}

func (c *AccountController) ResetPassword(ctx echo.Context) error {
	req, err := types.NewResetPasswordRequestFromContext(ctx)
	if err != nil {
		return badBody(ctx, "reset password", err)
	}

	entry := logrus.NewEntry(logrus.StandardLogger())
	if err = req.Validate(); err != nil {
		return invalid(ctx, entry, "Reset password", err)
	}

	if err = c.accounts.ResetPassword(ctx.Request().Context(), req); err != nil {
		return c.fail(ctx, entry, "Reset password", err)
	}

	entry.Info("Password reset completed")
	return ctx.JSON(http.StatusOK, types.MessageResponse{Message: "password reset successfully"})
}

func (c *AccountController) ValidateToken(ctx echo.Context) error {
	req, err := types.NewValidateTokenRequestFromContext(ctx)
	if err != nil {
		return badBody(ctx, "validate token", err)
	}

	entry := logrus.NewEntry(logrus.StandardLogger())
	if err = req.Validate(); err != nil {
		return invalid(ctx, entry, "Validate token", err)
	}

	res, err := c.accounts.Authenticate(ctx.Request().Context(), req.GetToken())
	if err != nil {
		if errors.Is(err, service.ErrInternal) {
			return c.fail(ctx, entry, "Validate token", err)
		}
		code := service.ErrorCode(err)
		entry.WithField("code", code).Debug("Token rejected")
		return ctx.JSON(http.StatusOK, types.ValidateTokenResponse{Valid: false, Code: code})
	}

	return ctx.JSON(http.StatusOK, res)
}

func (c *AccountController) Me(ctx echo.Context) error {
	accountID := middleware.AccountID(ctx)
	entry := logrus.WithField("account_id", accountID)

	res, err := c.accounts.Profile(ctx.Request().Context(), accountID)
	if err != nil {
		return c.fail(ctx, entry, "Profile", err)
	}

	return ctx.JSON(http.StatusOK, res)
}

func (c *AccountController) DeleteMe(ctx echo.Context) error {
	accountID := middleware.AccountID(ctx)
	entry := logrus.WithField("account_id", accountID)

	entry.Info("Delete account request received")
	if err := c.accounts.DeleteAccount(ctx.Request().Context(), accountID); err != nil {
		return c.fail(ctx, entry, "Delete account", err)
	}

	entry.Info("Account deleted")
	return ctx.JSON(http.StatusOK, types.MessageResponse{Message: "account deleted"})
}

func (c *AccountController) ChangePassword(ctx echo.Context) error {
	req, err := types.NewChangePasswordRequestFromContext(ctx)
	if err != nil {
		return badBody(ctx, "change password", err)
	}

	accountID := middleware.AccountID(ctx)
	entry := logrus.WithField("account_id", accountID)
	if err = req.Validate(); err != nil {
		return invalid(ctx, entry, "Change password", err)
	}

	entry.Info("Change password request received")
	if err = c.accounts.ChangePassword(ctx.Request().Context(), accountID, req); err != nil {
		return c.fail(ctx, entry, "Change password", err)
	}

	entry.Info("Password changed")
	return ctx.JSON(http.StatusOK, types.MessageResponse{Message: "password changed successfully"})
}

// RegisterRoutes mounts the account API on g. Routes that act on the caller's
// own account run behind auth.
func (c *AccountController) RegisterRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/register", c.Register)
	g.GET("/verify", c.Verify)
	g.POST("/verify", c.Verify)
	g.POST("/resend-verification", c.ResendVerification)
	g.POST("/login", c.Login)
	g.POST("/token", c.RefreshAuth)
	g.POST("/logout", c.Logout)
	g.POST("/request-password-reset", c.RequestPasswordReset)
	g.POST("/reset-password", c.ResetPassword)
	g.POST("/validate-token", c.ValidateToken)

	g.GET("/me", c.Me, auth)
	g.DELETE("/me", c.DeleteMe, auth)
	g.POST("/change-password", c.ChangePassword, auth)
}
