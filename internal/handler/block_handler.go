package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/domain"
	"github.com/parleychat/parley-backend/internal/middleware"
	"github.com/parleychat/parley-backend/internal/service"
)

// BlockHandler handles user block HTTP requests
type BlockHandler struct {
	service service.BlockService
}

// NewBlockHandler creates a new BlockHandler
func NewBlockHandler(service service.BlockService) *BlockHandler {
	return &BlockHandler{service: service}
}

// List handles GET /blocks
// @Summary List blocked users
// @Tags blocks
// @Produce json
// @Success 200 {object} common.APIResponse{data=[]domain.BlockResponse}
// @Router /blocks [get]
func (h *BlockHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	blocks, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	common.SuccessResponse(c, blocks, nil)
}

// Block handles POST /blocks
// @Summary Block a user
// @Tags blocks
// @Accept json
// @Produce json
// @Param request body domain.BlockRequest true "user to block"
// @Success 200 {object} common.APIResponse{data=domain.BlockResponse}
// @Router /blocks [post]
func (h *BlockHandler) Block(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "user_id is required", err)
		return
	}

	block, err := h.service.Block(c.Request.Context(), userID, &req)
	if err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	common.SuccessResponse(c, block, nil)
}

// Unblock handles DELETE /blocks/:uid
// @Summary Unblock a user
// @Tags blocks
// @Param uid path string true "user ID to unblock"
// @Success 204
// @Router /blocks/{uid} [delete]
func (h *BlockHandler) Unblock(c *gin.Context) {
	userID := middleware.GetUserID(c)
	targetID := c.Param("uid")

	if err := h.service.Unblock(c.Request.Context(), userID, targetID); err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}
