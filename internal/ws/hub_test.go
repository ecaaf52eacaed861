package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"foundlink/internal/models"
)

func testInfo(userID string) ConnInfo {
	return ConnInfo{ConnID: newConnID(), UserID: userID, ConnectedAt: time.Now()}
}

func TestRegisterGroupsByUser(t *testing.T) {
	hub := NewHub(zap.NewNop())

	first := hub.register(nil, testInfo("u1"))
	second := hub.register(nil, testInfo("u1"))
	other := hub.register(nil, testInfo("u2"))

	require.Len(t, hub.userGroups["u1"], 2)
	require.Len(t, hub.userGroups["u2"], 1)
	assert.Contains(t, hub.userGroups["u1"], first)
	assert.Contains(t, hub.userGroups["u1"], second)
	assert.Contains(t, hub.userGroups["u2"], other)
}

func TestJoinChatAddsToRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())

	cl := hub.register(nil, testInfo("u1"))
	hub.joinChat("m1", cl)
	hub.joinChat("m1", cl)

	require.Len(t, hub.chatRooms["m1"], 1)
	assert.Contains(t, hub.chatRooms["m1"], cl)
}

func TestUnregisterRemovesEverywhere(t *testing.T) {
	hub := NewHub(zap.NewNop())

	cl := hub.register(nil, testInfo("u1"))
	peer := hub.register(nil, testInfo("u2"))
	hub.joinChat("m1", cl)
	hub.joinChat("m2", cl)
	hub.joinChat("m1", peer)

	hub.unregister(cl)

	assert.NotContains(t, hub.userGroups, "u1")
	assert.NotContains(t, hub.chatRooms, "m2")
	require.Len(t, hub.chatRooms["m1"], 1)
	assert.Contains(t, hub.chatRooms["m1"], peer)
}

func TestUnregisterLastConnectionDropsGroup(t *testing.T) {
	hub := NewHub(zap.NewNop())

	first := hub.register(nil, testInfo("u1"))
	second := hub.register(nil, testInfo("u1"))

	hub.unregister(first)
	require.Len(t, hub.userGroups["u1"], 1)

	hub.unregister(second)
	assert.NotContains(t, hub.userGroups, "u1")
}

func TestDeliverToEmptyGroupIsNoop(t *testing.T) {
	hub := NewHub(zap.NewNop())

	hub.PushToUser("nobody", models.OutboundEvent{Type: models.EventNewNotification})
	hub.BroadcastToChat("nowhere", models.OutboundEvent{Type: models.EventReceiveMessage})
}

func TestConnIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := newConnID()
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
