package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/services"
	"github.com/localnerve/macroai/internal/utils"
)

// AuthAPI is the auth service as seen by the handlers
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken, username string) (*services.AuthTokens, error)
}

// LoginRequest is the body of a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	Username     string `json:"username"`
}

// AuthHandler handles authentication routes
type AuthHandler struct {
	Auth AuthAPI
	Log  *logger.Logger
}

// Login handles POST /api/auth/login
// @Summary Log in
// @Description Exchange email and password for tokens. Registers the user on first login.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} services.LoginResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	result, err := h.Auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// Refresh handles POST /api/auth/refresh
// @Summary Refresh tokens
// @Description Exchange a refresh token for a new access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RefreshRequest true "Refresh token"
// @Success 200 {object} services.AuthTokens
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := parseBody(c, &req); err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	tokens, err := h.Auth.Refresh(c.UserContext(), req.RefreshToken, req.Username)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	return utils.SuccessResponse(c, tokens, fiber.StatusOK)
}
