package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) GetUsername() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Username)
}

func (r *RegisterRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Email)
}

func (r *RegisterRequest) GetPassword() string {
	if r == nil {
		return ""
	}
	return r.Password
}

func NewRegisterRequestFromContext(ctx echo.Context) (*RegisterRequest, error) {
	var body RegisterRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *RegisterRequest) Validate() error {
	if r.GetUsername() == "" {
		return errors.New("username is required")
	}
	if !looksLikeEmail(r.GetEmail()) {
		return errors.New("a valid email is required")
	}
	if strings.TrimSpace(r.GetPassword()) == "" {
		return errors.New("password is required")
	}

	return nil
}

type RegisterResponse struct {
	AccountId   string `json:"account_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	VerifyToken string `json:"verify_token,omitempty"`
	Message     string `json:"message"`
}

func (r *RegisterResponse) GetAccountId() string {
	if r == nil {
		return ""
	}
	return r.AccountId
}

func (r *RegisterResponse) GetVerifyToken() string {
	if r == nil {
		return ""
	}
	return r.VerifyToken
}

type VerifyRequest struct {
	Token string `json:"token" query:"token"`
}

func (r *VerifyRequest) GetToken() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Token)
}

func NewVerifyRequestFromContext(ctx echo.Context) (*VerifyRequest, error) {
	var body VerifyRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *VerifyRequest) Validate() error {
	if r.GetToken() == "" {
		return errors.New("token is required")
	}

	return nil
}

type VerifyResponse struct {
	AccountId       string `json:"account_id"`
	AlreadyVerified bool   `json:"already_verified"`
	Message         string `json:"message"`
}

func (r *VerifyResponse) GetAlreadyVerified() bool {
	return r != nil && r.AlreadyVerified
}

type EmailRequest struct {
	Email string `json:"email"`
}

func (r *EmailRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Email)
}

func NewEmailRequestFromContext(ctx echo.Context) (*EmailRequest, error) {
	var body EmailRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *EmailRequest) Validate() error {
	if !looksLikeEmail(r.GetEmail()) {
		return errors.New("a valid email is required")
	}

	return nil
}

type ResendVerificationResponse struct {
	VerifyToken string `json:"verify_token,omitempty"`
	Message     string `json:"message"`
}

func (r *ResendVerificationResponse) GetVerifyToken() string {
	if r == nil {
		return ""
	}
	return r.VerifyToken
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// RefreshTokenDuration optionally shortens the refresh token lifetime, in minutes.
	RefreshTokenDuration int64 `json:"refresh_token_duration,omitempty"`
}

func (r *LoginRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Email)
}

func (r *LoginRequest) GetPassword() string {
	if r == nil {
		return ""
	}
	return r.Password
}

func (r *LoginRequest) GetRefreshTokenDuration() int64 {
	if r == nil {
		return 0
	}
	return r.RefreshTokenDuration
}

func NewLoginRequestFromContext(ctx echo.Context) (*LoginRequest, error) {
	var body LoginRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *LoginRequest) Validate() error {
	if r.GetEmail() == "" || strings.TrimSpace(r.GetPassword()) == "" {
		return errors.New("email and password are required")
	}
	if r.GetRefreshTokenDuration() < 0 {
		return errors.New("refresh_token_duration must be greater than 0")
	}

	return nil
}

type LoginResponse struct {
	AuthToken        string `json:"auth_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

func (r *LoginResponse) GetAuthToken() string {
	if r == nil {
		return ""
	}
	return r.AuthToken
}

func (r *LoginResponse) GetRefreshToken() string {
	if r == nil {
		return ""
	}
	return r.RefreshToken
}

// RefreshTokenRequest carries a refresh token for /token and /logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *RefreshTokenRequest) GetRefreshToken() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.RefreshToken)
}

func NewRefreshTokenRequestFromContext(ctx echo.Context) (*RefreshTokenRequest, error) {
	var body RefreshTokenRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *RefreshTokenRequest) Validate() error {
	if r.GetRefreshToken() == "" {
		return errors.New("refresh_token is required")
	}

	return nil
}

type RefreshAuthResponse struct {
	AuthToken string `json:"auth_token"`
	ExpiresIn int64  `json:"expires_in"`
}

func (r *RefreshAuthResponse) GetAuthToken() string {
	if r == nil {
		return ""
	}
	return r.AuthToken
}

type RequestPasswordResetResponse struct {
	ResetToken string `json:"reset_token,omitempty"`
	Message    string `json:"message"`
}

func (r *RequestPasswordResetResponse) GetResetToken() string {
	if r == nil {
		return ""
	}
	return r.ResetToken
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (r *ResetPasswordRequest) GetToken() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Token)
}

func (r *ResetPasswordRequest) GetNewPassword() string {
	if r == nil {
		return ""
	}
	return r.NewPassword
}

func NewResetPasswordRequestFromContext(ctx echo.Context) (*ResetPasswordRequest, error) {
	var body ResetPasswordRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *ResetPasswordRequest) Validate() error {
	if r.GetToken() == "" || strings.TrimSpace(r.GetNewPassword()) == "" {
		return errors.New("token and new_password are required")
	}

	return nil
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (r *ChangePasswordRequest) GetOldPassword() string {
	if r == nil {
		return ""
	}
	return r.OldPassword
}

func (r *ChangePasswordRequest) GetNewPassword() string {
	if r == nil {
		return ""
	}
	return r.NewPassword
}

func NewChangePasswordRequestFromContext(ctx echo.Context) (*ChangePasswordRequest, error) {
	var body ChangePasswordRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *ChangePasswordRequest) Validate() error {
	if strings.TrimSpace(r.GetOldPassword()) == "" || strings.TrimSpace(r.GetNewPassword()) == "" {
		return errors.New("old_password and new_password are required")
	}

	return nil
}

type ValidateTokenRequest struct {
	Token string `json:"token"`
}

func (r *ValidateTokenRequest) GetToken() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Token)
}

func NewValidateTokenRequestFromContext(ctx echo.Context) (*ValidateTokenRequest, error) {
	var body ValidateTokenRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *ValidateTokenRequest) Validate() error {
	if r.GetToken() == "" {
		return errors.New("token is required")
	}

	return nil
}

type ValidateTokenResponse struct {
	Valid     bool   `json:"valid"`
	AccountId string `json:"account_id"`
	ExpiresAt int64  `json:"expires_at"`
	Code      string `json:"code,omitempty"`
}

func (r *ValidateTokenResponse) GetAccountId() string {
	if r == nil {
		return ""
	}
	return r.AccountId
}

type ProfileResponse struct {
	AccountId string `json:"account_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	State     string `json:"state"`
	CreatedAt int64  `json:"created_at"`
}

func (r *ProfileResponse) GetAccountId() string {
	if r == nil {
		return ""
	}
	return r.AccountId
}

func (r *ProfileResponse) GetState() string {
	if r == nil {
		return ""
	}
	return r.State
}

type MessageResponse struct {
	Message string `json:"message"`
}

func looksLikeEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}
