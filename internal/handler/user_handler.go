package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/domain"
	"github.com/parleychat/parley-backend/internal/middleware"
	"github.com/parleychat/parley-backend/internal/service"
)

// UserHandler handles profile HTTP requests
type UserHandler struct {
	service service.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Me handles GET /users/me
// @Summary Current user's profile
// @Tags users
// @Produce json
// @Success 200 {object} common.APIResponse{data=domain.UserResponse}
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	common.SuccessResponse(c, user, nil)
}

// UpdateMe handles PATCH /users/me
// @Summary Update profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body domain.UpdateProfileRequest true "fields to update"
// @Success 200 {object} common.APIResponse{data=domain.UserResponse}
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	common.SuccessResponse(c, user, nil)
}
