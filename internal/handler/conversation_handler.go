package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/domain"
	"github.com/parleychat/parley-backend/internal/middleware"
	"github.com/parleychat/parley-backend/internal/service"
)

// ConversationHandler handles conversation HTTP requests
type ConversationHandler struct {
	convService service.ConversationService
	chatService service.ChatService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(convService service.ConversationService, chatService service.ChatService) *ConversationHandler {
	return &ConversationHandler{
		convService: convService,
		chatService: chatService,
	}
}

// List handles GET /conversations
// @Summary List the caller's conversations
// @Tags conversations
// @Produce json
// @Success 200 {object} common.APIResponse{data=[]domain.ConversationSummary}
// @Router /conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	summaries, err := h.convService.List(c.Request.Context(), userID)
	if err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	common.SuccessResponse(c, summaries, nil)
}

// StartDirect handles POST /conversations/direct
// @Summary Start or resume a direct conversation
// @Tags conversations
// @Accept json
// @Produce json
// @Param request body domain.StartDirectRequest true "peer"
// @Success 200 {object} common.APIResponse{data=domain.ConversationSummary}
// @Router /conversations/direct [post]
func (h *ConversationHandler) StartDirect(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.StartDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "peer_id is required", err)
		return
	}

	summary, err := h.convService.StartDirect(c.Request.Context(), userID, &req)
	if err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	common.SuccessResponse(c, summary, nil)
}

// CreateGroup handles POST /conversations/group
// @Summary Create a group conversation
// @Tags conversations
// @Accept json
// @Produce json
// @Param request body domain.CreateGroupRequest true "title and members"
// @Success 200 {object} common.APIResponse{data=domain.ConversationSummary}
// @Router /conversations/group [post]
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "title and member_ids are required", err)
		return
	}

	summary, err := h.convService.CreateGroup(c.Request.Context(), userID, &req)
	if err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	common.SuccessResponse(c, summary, nil)
}

// Hide handles DELETE /conversations/:id
// @Summary Hide a conversation from the caller's list
// @Tags conversations
// @Param id path string true "conversation ID"
// @Success 204
// @Router /conversations/{id} [delete]
func (h *ConversationHandler) Hide(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID := c.Param("id")

	if err := h.convService.Hide(c.Request.Context(), userID, conversationID); err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Messages handles GET /conversations/:id/messages
// @Summary Message history page
// @Tags conversations
// @Produce json
// @Param id path string true "conversation ID"
// @Param after_id query int false "watermark; only messages after this ID"
// @Param limit query int false "page size (default 50, max 200)"
// @Success 200 {object} common.APIResponse{data=[]domain.MessageResponse}
// @Router /conversations/{id}/messages [get]
func (h *ConversationHandler) Messages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID := c.Param("id")

	afterID, _ := strconv.ParseInt(c.DefaultQuery("after_id", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	msgs, err := h.convService.Messages(c.Request.Context(), userID, conversationID, afterID, limit)
	if err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	common.SuccessResponse(c, msgs, &common.Meta{ConversationID: conversationID, Limit: limit})
}

// Members handles GET /conversations/:id/members
func (h *ConversationHandler) Members(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID := c.Param("id")

	members, err := h.convService.Members(c.Request.Context(), userID, conversationID)
	if err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	common.SuccessResponse(c, members, nil)
}

// AddMembers handles POST /conversations/:id/members
func (h *ConversationHandler) AddMembers(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID := c.Param("id")

	var body struct {
		MemberIDs []string `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "member_ids is required", err)
		return
	}

	req := &domain.ChangeMembershipRequest{Action: domain.MembershipAdd, Targets: body.MemberIDs}
	if err := h.chatService.ChangeMembership(c.Request.Context(), userID, conversationID, req); err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveMember handles DELETE /conversations/:id/members/:uid
func (h *ConversationHandler) RemoveMember(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID := c.Param("id")
	targetID := c.Param("uid")

	req := &domain.ChangeMembershipRequest{Action: domain.MembershipRemove, Targets: []string{targetID}}
	if err := h.chatService.ChangeMembership(c.Request.Context(), userID, conversationID, req); err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangeRole handles PATCH /conversations/:id/members/:uid/role
func (h *ConversationHandler) ChangeRole(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID := c.Param("id")
	targetID := c.Param("uid")

	var body struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "role is required", err)
		return
	}

	req := &domain.ChangeMembershipRequest{
		Action:  domain.MembershipChangeRole,
		Targets: []string{targetID},
		Role:    body.Role,
	}
	if err := h.chatService.ChangeMembership(c.Request.Context(), userID, conversationID, req); err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Leave handles POST /conversations/:id/leave
func (h *ConversationHandler) Leave(c *gin.Context) {
	userID := middleware.GetUserID(c)
	conversationID := c.Param("id")

	req := &domain.ChangeMembershipRequest{Action: domain.MembershipLeave}
	if err := h.chatService.ChangeMembership(c.Request.Context(), userID, conversationID, req); err != nil {
		common.ErrorResponse(c, common.StatusFromError(err), common.ClientMessage(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}
