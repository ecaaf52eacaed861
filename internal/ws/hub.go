package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"foundlink/internal/models"
	"foundlink/internal/observability"
)

// client pairs a websocket connection with its handshake metadata. The
// write mutex serializes frames from the broadcast paths and the
// gateway's direct error replies.
type client struct {
	conn *websocket.Conn
	info ConnInfo
	mu   sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *client) send(event models.OutboundEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.write(payload)
}

// Hub is the process-local registry of live connections. Broadcast
// groups are keyed by user id (joined at handshake, enabling "push to
// this user wherever they're connected") and by chat id (joined on
// demand). Membership is rebuilt from scratch on restart; nothing here
// is persisted.
type Hub struct {
	mu         sync.RWMutex
	userGroups map[string]map[*client]struct{}
	chatRooms  map[string]map[*client]struct{}
	log        *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		userGroups: make(map[string]map[*client]struct{}),
		chatRooms:  make(map[string]map[*client]struct{}),
		log:        log,
	}
}

// register adds an authenticated connection to its user's group.
func (h *Hub) register(conn *websocket.Conn, info ConnInfo) *client {
	cl := &client{conn: conn, info: info}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userGroups[info.UserID]; !ok {
		h.userGroups[info.UserID] = make(map[*client]struct{})
	}
	h.userGroups[info.UserID][cl] = struct{}{}
	return cl
}

// joinChat adds the connection to a chat room. Authorization happens in
// the gateway before this is called.
func (h *Hub) joinChat(chatID string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.chatRooms[chatID]; !ok {
		h.chatRooms[chatID] = make(map[*client]struct{})
	}
	h.chatRooms[chatID][cl] = struct{}{}
}

// unregister removes the connection from its user group and from every
// chat room it joined.
func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.userGroups[cl.info.UserID]; ok {
		delete(conns, cl)
		if len(conns) == 0 {
			delete(h.userGroups, cl.info.UserID)
		}
	}
	for chatID, conns := range h.chatRooms {
		delete(conns, cl)
		if len(conns) == 0 {
			delete(h.chatRooms, chatID)
		}
	}
}

// PushToUser delivers an event to every live connection of a user.
func (h *Hub) PushToUser(userID string, event models.OutboundEvent) {
	h.deliver(h.snapshot(h.userGroups, userID), event)
}

// BroadcastToChat delivers an event to every connection in a chat room.
func (h *Hub) BroadcastToChat(chatID string, event models.OutboundEvent) {
	h.deliver(h.snapshot(h.chatRooms, chatID), event)
}

func (h *Hub) snapshot(groups map[string]map[*client]struct{}, key string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := groups[key]
	out := make([]*client, 0, len(conns))
	for cl := range conns {
		out = append(out, cl)
	}
	return out
}

func (h *Hub) deliver(clients []*client, event models.OutboundEvent) {
	if len(clients) == 0 {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("event marshal failed", zap.String("event", event.Type), zap.Error(err))
		return
	}

	for _, cl := range clients {
		if err := cl.write(payload); err != nil {
			h.log.Warn("websocket write error", zap.String("conn_id", cl.info.ConnID), zap.Error(err))
			cl.conn.Close()
			h.unregister(cl)
			h.publishWSError(cl, err)
		}
	}
	observability.IncWSEvent(event.Type)
}

func (h *Hub) publishWSError(cl *client, err error) {
	headers := observability.BuildHeaders(cl.info.RequestID, cl.info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   wsEventPayload(cl.info, "ws_error", err.Error()),
	}, headers)
	observability.IncWSEvent("ws_error")
}

func wsEventPayload(info ConnInfo, event, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
