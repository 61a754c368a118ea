package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/domain"
	"github.com/parleychat/parley-backend/internal/ws"
)

type mockChatService struct {
	mock.Mock
}

func (m *mockChatService) SendMessage(ctx context.Context, senderID string, req *domain.SendMessageRequest) (*domain.MessageResponse, error) {
	args := m.Called(ctx, senderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageResponse), args.Error(1)
}

func (m *mockChatService) EditMessage(ctx context.Context, requesterID string, req *domain.EditMessageRequest) (*domain.MessageResponse, error) {
	args := m.Called(ctx, requesterID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageResponse), args.Error(1)
}

func (m *mockChatService) DeleteMessage(ctx context.Context, requesterID string, messageID int64) error {
	return m.Called(ctx, requesterID, messageID).Error(0)
}

func (m *mockChatService) MarkRead(ctx context.Context, userID, conversationID string) error {
	return m.Called(ctx, userID, conversationID).Error(0)
}

func (m *mockChatService) ChangeMembership(ctx context.Context, requesterID, conversationID string, req *domain.ChangeMembershipRequest) error {
	return m.Called(ctx, requesterID, conversationID, req).Error(0)
}

func (m *mockChatService) RoomSnapshot(ctx context.Context, userID, conversationID string, afterID int64) ([]*domain.MessageResponse, error) {
	args := m.Called(ctx, userID, conversationID, afterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MessageResponse), args.Error(1)
}

type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// dialWS spins up the upgrade endpoint with a fixed identity and
// returns a connected client conn plus the hub behind it
func dialWS(t *testing.T, svc *mockChatService) (*websocket.Conn, *ws.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := ws.NewHub(nil)
	go hub.Run()

	h := NewWSHandler(hub, svc, "")
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { c.Set("userID", "alice") }, h.Connect)
	srv := httptest.NewServer(router)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() {
		conn.Close()
		srv.Close()
		hub.Stop()
	})
	return conn, hub
}

func readWireEvent(t *testing.T, conn *websocket.Conn) *wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev wireEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return &ev
}

func readAck(t *testing.T, conn *websocket.Conn) *ws.AckPayload {
	t.Helper()
	ev := readWireEvent(t, conn)
	require.Equal(t, ws.EventAck, ev.Type)
	var ack ws.AckPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &ack))
	return &ack
}

func TestJoinRoomDeliversMessagesLandingDuringSnapshot(t *testing.T) {
	svc := new(mockChatService)
	conn, hub := dialWS(t, svc)

	// a message is broadcast while the snapshot read is in flight; the
	// joining client must see it on the live feed
	svc.On("RoomSnapshot", mock.Anything, "alice", "c1", int64(0)).
		Run(func(mock.Arguments) {
			hub.BroadcastToRoom("c1", &ws.Event{Type: ws.EventChatMessage})
		}).
		Return([]*domain.MessageResponse{}, nil)
	svc.On("MarkRead", mock.Anything, "alice", "c1").Return(nil)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    ws.FrameJoinRoom,
		"ack_id":  "a1",
		"payload": map[string]interface{}{"conversation_id": "c1"},
	}))

	got := map[string]bool{}
	for i := 0; i < 3; i++ {
		got[readWireEvent(t, conn).Type] = true
	}
	assert.True(t, got[ws.EventChatMessage], "in-flight broadcast was dropped")
	assert.True(t, got[ws.EventInitialMessages])
	assert.True(t, got[ws.EventAck])
}

func TestRejectedJoinLeavesNoSubscription(t *testing.T) {
	svc := new(mockChatService)
	conn, hub := dialWS(t, svc)

	svc.On("RoomSnapshot", mock.Anything, "alice", "c1", int64(0)).
		Return(nil, common.ErrNotMember)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    ws.FrameJoinRoom,
		"ack_id":  "a1",
		"payload": map[string]interface{}{"conversation_id": "c1"},
	}))

	ack := readAck(t, conn)
	assert.False(t, ack.OK)
	assert.Equal(t, common.ErrNotMember.Error(), ack.Error)

	// room traffic must not reach the denied client; the direct marker
	// sent right after it must be the next delivery
	hub.BroadcastToRoom("c1", &ws.Event{Type: ws.EventChatMessage})
	hub.SendToUser("alice", &ws.Event{Type: ws.EventProjectionUpdate})
	assert.Equal(t, ws.EventProjectionUpdate, readWireEvent(t, conn).Type)
}

func TestMalformedPayloadAcksInvalidInput(t *testing.T) {
	svc := new(mockChatService)
	conn, _ := dialWS(t, svc)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    ws.FrameSendMessage,
		"ack_id":  "a1",
		"payload": 123,
	}))

	ack := readAck(t, conn)
	assert.False(t, ack.OK)
	assert.Equal(t, common.ErrInvalidInput.Error(), ack.Error)
	svc.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestAckHidesInternalErrorDetail(t *testing.T) {
	svc := new(mockChatService)
	conn, _ := dialWS(t, svc)

	svc.On("SendMessage", mock.Anything, "alice", mock.Anything).
		Return(nil, errors.New("Error 2013: lost connection to server during query"))

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   ws.FrameSendMessage,
		"ack_id": "a1",
		"payload": map[string]interface{}{
			"conversation_id": "c1",
			"content":         "hi",
			"client_token":    "tok",
		},
	}))

	ack := readAck(t, conn)
	assert.False(t, ack.OK)
	assert.Equal(t, "temporary failure, please retry", ack.Error)
	assert.NotContains(t, ack.Error, "2013")
}
