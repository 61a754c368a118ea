package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/domain"
	"github.com/parleychat/parley-backend/internal/middleware"
	"github.com/parleychat/parley-backend/internal/service"
	"github.com/parleychat/parley-backend/internal/ws"
)

// WSHandler upgrades connections and dispatches inbound frames to the
// chat service. Dispatch runs on each connection's read pump, so one
// slow sender never blocks another connection.
type WSHandler struct {
	hub            *ws.Hub
	chatService    service.ChatService
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *ws.Hub, chatService service.ChatService, allowedOrigins string) *WSHandler {
	h := &WSHandler{
		hub:            hub,
		chatService:    chatService,
		allowedOrigins: parseOrigins(allowedOrigins),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// parseOrigins parses comma-separated origins string
func parseOrigins(origins string) []string {
	if origins == "" {
		return nil
	}
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// checkOrigin validates the request origin against allowed origins
func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // same-origin requests carry no Origin header
	}
	if len(h.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Connect handles the GET /ws WebSocket upgrade
// @Summary Chat WebSocket
// @Tags ws
// @Router /ws [get]
func (h *WSHandler) Connect(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, userID, h.dispatch)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// dispatch routes one inbound frame by type. Unknown types get an
// error event instead of a silent drop.
func (h *WSHandler) dispatch(c *ws.Client, frame *ws.Frame) {
	ctx := context.Background()

	switch frame.Type {
	case ws.FrameSendMessage:
		var req domain.SendMessageRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			h.ack(c, frame, nil, common.ErrInvalidInput)
			return
		}
		msg, err := h.chatService.SendMessage(ctx, c.UserID(), &req)
		h.ack(c, frame, msg, err)

	case ws.FrameEditMessage:
		var req domain.EditMessageRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			h.ack(c, frame, nil, common.ErrInvalidInput)
			return
		}
		msg, err := h.chatService.EditMessage(ctx, c.UserID(), &req)
		h.ack(c, frame, msg, err)

	case ws.FrameDeleteMessage:
		var req ws.DeleteMessagePayload
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			h.ack(c, frame, nil, common.ErrInvalidInput)
			return
		}
		h.ack(c, frame, nil, h.chatService.DeleteMessage(ctx, c.UserID(), req.MessageID))

	case ws.FrameMarkRead:
		var req ws.RoomPayload
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			h.ack(c, frame, nil, common.ErrInvalidInput)
			return
		}
		h.ack(c, frame, nil, h.chatService.MarkRead(ctx, c.UserID(), req.ConversationID))

	case ws.FrameJoinRoom:
		h.joinRoom(ctx, c, frame)

	case ws.FrameLeaveRoom:
		var req ws.RoomPayload
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			h.ack(c, frame, nil, common.ErrInvalidInput)
			return
		}
		h.hub.Unsubscribe(c, req.ConversationID)
		h.ack(c, frame, nil, nil)

	case ws.FrameAddMembers:
		h.membership(ctx, c, frame, domain.MembershipAdd)
	case ws.FrameRemoveMember:
		h.membership(ctx, c, frame, domain.MembershipRemove)
	case ws.FrameLeaveGroup:
		h.membership(ctx, c, frame, domain.MembershipLeave)
	case ws.FrameChangeRole:
		h.membership(ctx, c, frame, domain.MembershipChangeRole)

	default:
		c.SendEvent(&ws.Event{
			Type:    ws.EventError,
			Payload: map[string]string{"error": "unknown frame type: " + frame.Type},
		})
	}
}

// joinRoom subscribes the connection and replies with the catch-up
// snapshot in one step. The snapshot is authoritative: re-joining
// after a disconnect converges the client regardless of missed events.
func (h *WSHandler) joinRoom(ctx context.Context, c *ws.Client, frame *ws.Frame) {
	var req ws.JoinRoomPayload
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		h.ack(c, frame, nil, common.ErrInvalidInput)
		return
	}

	// Subscribe before reading the snapshot: a message that lands
	// between the two is then on the live feed, and the snapshot makes
	// the possible duplicate harmless. The reverse order drops it.
	h.hub.Subscribe(c, req.ConversationID)
	msgs, err := h.chatService.RoomSnapshot(ctx, c.UserID(), req.ConversationID, req.AfterID)
	if err != nil {
		h.hub.Unsubscribe(c, req.ConversationID)
		h.ack(c, frame, nil, err)
		return
	}

	c.SendEvent(&ws.Event{
		Type: ws.EventInitialMessages,
		Payload: &ws.InitialMessagesPayload{
			ConversationID: req.ConversationID,
			Messages:       msgs,
		},
	})

	// Opening a room reads it.
	if err := h.chatService.MarkRead(ctx, c.UserID(), req.ConversationID); err != nil {
		h.ack(c, frame, nil, err)
		return
	}
	h.ack(c, frame, nil, nil)
}

func (h *WSHandler) membership(ctx context.Context, c *ws.Client, frame *ws.Frame, action string) {
	var req ws.MembershipPayload
	if err := json.Unmarshal(frame.Payload, &req); err != nil {
		h.ack(c, frame, nil, common.ErrInvalidInput)
		return
	}
	err := h.chatService.ChangeMembership(ctx, c.UserID(), req.ConversationID, &domain.ChangeMembershipRequest{
		Action:  action,
		Targets: req.Targets,
		Role:    req.Role,
	})
	h.ack(c, frame, nil, err)
}

// ack replies to the originating connection only. Frames without an
// ack_id are fire-and-forget; errors still surface as an error event.
func (h *WSHandler) ack(c *ws.Client, frame *ws.Frame, msg *domain.MessageResponse, err error) {
	if frame.AckID == "" {
		if err != nil {
			c.SendEvent(&ws.Event{
				Type:    ws.EventError,
				Payload: map[string]string{"error": common.ClientMessage(err)},
			})
		}
		return
	}

	payload := &ws.AckPayload{AckID: frame.AckID, OK: err == nil, Message: msg}
	if err != nil {
		payload.Error = common.ClientMessage(err)
	}
	c.SendEvent(&ws.Event{Type: ws.EventAck, Payload: payload})
}
