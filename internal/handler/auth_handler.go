package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/dto"
	"github.com/prperemyshlev/storefront-api/internal/service"
	"go.uber.org/zap"
)

const forgotPasswordMessage = "If the email is registered, a password reset link has been sent"

// AuthHandler handles authentication requests for one realm (user or admin)
type AuthHandler struct {
	authService service.AuthService
	realm       domain.Role
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, realm domain.Role, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		realm:       realm,
		logger:      logger,
	}
}

func authPayload(result *service.AuthResult) gin.H {
	return gin.H{
		"accessToken":         result.Tokens.AccessToken,
		"refreshToken":        result.Tokens.RefreshToken,
		"tokenType":           result.Tokens.TokenType,
		"expiresIn":           result.Tokens.ExpiresIn,
		"requireVerification": result.RequireVerification,
		"user":                dto.NewUserResponse(result.Account),
	}
}

// Signup handles customer registration
// @Summary Register a new customer
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "Signup request"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /user/auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, "Account created, check your email for the verification code", authPayload(result))
}

// VerifyOTP activates the current account
// @Summary Verify email with OTP
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.VerifyOTPRequest true "OTP"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /user/auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.authService.VerifyOTP(c.Request.Context(), currentAccount(c), req.OTP)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "Account verified", authPayload(result))
}

func (h *AuthHandler) ResendOTP(c *gin.Context) {
	if err := h.authService.ResendOTP(c.Request.Context(), currentAccount(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "A new verification code has been sent", nil)
}

// Login handles login for the handler's realm
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 403 {object} map[string]any
// @Router /user/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), h.realm, req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "Logged in successfully"
	if result.RequireVerification {
		message = "Account not verified, a new verification code has been sent"
	}

	respond(c, http.StatusOK, message, authPayload(result))
}

// ForgotPassword answers identically whether or not the email is registered
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), h.realm, req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, forgotPasswordMessage, nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), h.realm, req.Token, req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "Password has been reset, please log in again", nil)
}

// RefreshToken rotates a refresh token
// @Summary Refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Router /user/auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), h.realm, req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "Token refreshed", authPayload(result))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	// the body is optional; chunked requests report ContentLength -1
	if c.Request.Body != http.NoBody && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, h.logger, bindingError(err))
			return
		}
	}

	err := h.authService.Logout(c.Request.Context(), currentAccount(c), c.GetString(ctxAccessToken), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req dto.UpdatePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.authService.UpdatePassword(c.Request.Context(), currentAccount(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "Password updated", nil)
}

func (h *AuthHandler) UpdateDetails(c *gin.Context) {
	var req dto.UpdateDetailsRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	account, err := h.authService.UpdateDetails(c.Request.Context(), currentAccount(c), service.UpdateDetailsInput{
		Username: req.Username,
		Phone:    req.Phone,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "Details updated", gin.H{"user": dto.NewUserResponse(account)})
}

// Me returns the current account
// @Summary Current account
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Router /user/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	respond(c, http.StatusOK, "OK", gin.H{"user": dto.NewUserResponse(currentAccount(c))})
}
