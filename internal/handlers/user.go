package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/services"
	"github.com/localnerve/macroai/internal/types"
	"github.com/localnerve/macroai/internal/utils"
)

// UserAPI is the user service as seen by the handlers
type UserAPI interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, input services.ProfileInput) (*models.User, error)
}

// UserHandler handles user routes
type UserHandler struct {
	Users UserAPI
	Log   *logger.Logger
}

// GetMe handles GET /api/users/me
// @Summary Get the current user
// @Description Get the profile of the authenticated user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /users/me [get]
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	user, err := h.Users.GetUserByID(c.UserContext(), userID)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	return utils.SuccessResponse(c, user, fiber.StatusOK)
}

// UpdateMe handles PATCH /api/users/me
// @Summary Update the current user
// @Description Update first and last name of the authenticated user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ProfileInput true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	var input services.ProfileInput
	if err := parseBody(c, &input); err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	user, err := h.Users.UpdateProfile(c.UserContext(), userID, input)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	return utils.SuccessResponse(c, user, fiber.StatusOK)
}

// GetUser handles GET /api/users/:id
// @Summary Get a user
// @Description Get a user by id. Users may only read their own record.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}

	id, err := pathID(c, "id")
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	if id != userID {
		return utils.AppErrorResponse(c, h.Log, types.NewForbiddenError("userHandler - getUser", "cannot access another user"))
	}

	user, err := h.Users.GetUserByID(c.UserContext(), id)
	if err != nil {
		return utils.AppErrorResponse(c, h.Log, err)
	}
	return utils.SuccessResponse(c, user, fiber.StatusOK)
}
