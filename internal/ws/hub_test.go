package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(nil)
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

// recvEvent reads one queued event from the client's send buffer
func recvEvent(t *testing.T, c *Client) *Event {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return &ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return nil
	}
}

// assertNoEvent verifies nothing is queued for the client
func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected event delivered: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendToUserReachesEverySession(t *testing.T) {
	h := startHub(t)

	alice1 := NewClient(h, nil, "alice", nil)
	alice2 := NewClient(h, nil, "alice", nil)
	bob := NewClient(h, nil, "bob", nil)
	h.Register(alice1)
	h.Register(alice2)
	h.Register(bob)

	h.SendToUser("alice", &Event{Type: EventProjectionUpdate})

	assert.Equal(t, EventProjectionUpdate, recvEvent(t, alice1).Type)
	assert.Equal(t, EventProjectionUpdate, recvEvent(t, alice2).Type)
	assertNoEvent(t, bob)
}

func TestBroadcastToRoomReachesSubscribersOnly(t *testing.T) {
	h := startHub(t)

	alice1 := NewClient(h, nil, "alice", nil)
	alice2 := NewClient(h, nil, "alice", nil)
	bob := NewClient(h, nil, "bob", nil)
	h.Register(alice1)
	h.Register(alice2)
	h.Register(bob)

	// only one of alice's sessions has the room open
	h.Subscribe(alice1, "room-1")
	h.Subscribe(bob, "room-1")

	h.BroadcastToRoom("room-1", &Event{Type: EventChatMessage})

	assert.Equal(t, EventChatMessage, recvEvent(t, alice1).Type)
	assert.Equal(t, EventChatMessage, recvEvent(t, bob).Type)
	assertNoEvent(t, alice2)
}

func TestUnsubscribeStopsRoomDelivery(t *testing.T) {
	h := startHub(t)

	alice := NewClient(h, nil, "alice", nil)
	bob := NewClient(h, nil, "bob", nil)
	h.Register(alice)
	h.Register(bob)
	h.Subscribe(alice, "room-1")
	h.Subscribe(bob, "room-1")

	h.Unsubscribe(alice, "room-1")
	h.BroadcastToRoom("room-1", &Event{Type: EventChatMessage})

	assert.Equal(t, EventChatMessage, recvEvent(t, bob).Type)
	assertNoEvent(t, alice)
}

func TestRemoveUserFromRoomEvictsAllSessions(t *testing.T) {
	h := startHub(t)

	alice1 := NewClient(h, nil, "alice", nil)
	alice2 := NewClient(h, nil, "alice", nil)
	bob := NewClient(h, nil, "bob", nil)
	h.Register(alice1)
	h.Register(alice2)
	h.Register(bob)
	h.Subscribe(alice1, "room-1")
	h.Subscribe(alice2, "room-1")
	h.Subscribe(bob, "room-1")

	h.RemoveUserFromRoom("alice", "room-1")
	h.BroadcastToRoom("room-1", &Event{Type: EventChatMessage})

	assert.Equal(t, EventChatMessage, recvEvent(t, bob).Type)
	assertNoEvent(t, alice1)
	assertNoEvent(t, alice2)

	// direct delivery still works, only the room subscription is gone
	h.SendToUser("alice", &Event{Type: EventMembershipRemoved})
	assert.Equal(t, EventMembershipRemoved, recvEvent(t, alice1).Type)
	assert.Equal(t, EventMembershipRemoved, recvEvent(t, alice2).Type)
}

func TestUnregisterClosesSendAndCleansRooms(t *testing.T) {
	h := startHub(t)

	alice := NewClient(h, nil, "alice", nil)
	bob := NewClient(h, nil, "bob", nil)
	h.Register(alice)
	h.Register(bob)
	h.Subscribe(alice, "room-1")
	h.Subscribe(bob, "room-1")

	h.Unregister(alice)

	select {
	case _, ok := <-alice.send:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}

	// the remaining subscriber still receives room traffic
	h.BroadcastToRoom("room-1", &Event{Type: EventChatMessage})
	assert.Equal(t, EventChatMessage, recvEvent(t, bob).Type)
}
