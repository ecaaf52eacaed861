package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"foundlink/internal/auth"
	"foundlink/internal/models"
	"foundlink/internal/observability"

	"go.uber.org/zap"
)

// TokenVerifier validates the bearer credential presented at handshake.
type TokenVerifier interface {
	ValidateToken(ctx context.Context, token string) (auth.Identity, error)
}

// ChatService is the slice of the chat manager the gateway needs.
type ChatService interface {
	GetChat(ctx context.Context, userID, chatID string) (models.Chat, error)
	PostMessage(ctx context.Context, userID, chatID, text, clientKey string) (models.Message, error)
	MarkRead(ctx context.Context, userID, chatID string) (int64, error)
}

// Gateway is the persistent-connection server: it authenticates each
// handshake, maps the connection to its user's broadcast group, and
// routes inbound events to the chat manager.
type Gateway struct {
	hub       *Hub
	verifier  TokenVerifier
	registrar *auth.Registrar
	chats     ChatService
	log       *zap.Logger
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, verifier TokenVerifier, registrar *auth.Registrar, chats ChatService, log *zap.Logger) *Gateway {
	return &Gateway{hub: hub, verifier: verifier, registrar: registrar, chats: chats, log: log}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates and upgrades the connection, then serves it until
// disconnect. An invalid credential rejects the connection before any
// event is processed.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("foundlink/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	identity, err := g.verifier.ValidateToken(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	g.registrar.Ensure(ctx, identity)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      identity.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	cl := g.hub.register(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload(info, "ws_connect", ""),
	}, observability.BuildHeaders(info.RequestID, info.TraceID))

	go g.serve(cl)
}

func (g *Gateway) serve(cl *client) {
	var closeReason string
	defer func() {
		g.hub.unregister(cl)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(context.Background(), "ws_events", observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload:   wsEventPayload(cl.info, "ws_disconnect", closeReason),
		}, observability.BuildHeaders(cl.info.RequestID, cl.info.TraceID))
		cl.conn.Close()
	}()

	for {
		_, payload, err := cl.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}

		var event models.InboundEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			g.sendError(cl, "malformed event")
			continue
		}
		g.dispatch(cl, event)
	}
}

// dispatch routes one inbound event. join_chat failures stay silent so a
// probe cannot learn whether a chat exists; send_message and mark_read
// failures surface a generic error event so clients do not silently lose
// messages.
func (g *Gateway) dispatch(cl *client, event models.InboundEvent) {
	ctx := context.Background()
	observability.IncWSEvent(event.Type)

	switch event.Type {
	case models.EventJoinChat:
		if event.ChatID == "" {
			return
		}
		if _, err := g.chats.GetChat(ctx, cl.info.UserID, event.ChatID); err != nil {
			return
		}
		g.hub.joinChat(event.ChatID, cl)

	case models.EventSendMessage:
		if _, err := g.chats.PostMessage(ctx, cl.info.UserID, event.ChatID, event.Text, event.ClientKey); err != nil {
			g.log.Debug("send_message rejected", zap.String("user_id", cl.info.UserID), zap.Error(err))
			g.sendError(cl, "could not send message")
		}

	case models.EventMarkRead:
		if _, err := g.chats.MarkRead(ctx, cl.info.UserID, event.ChatID); err != nil {
			g.sendError(cl, "could not mark messages read")
		}

	default:
		g.sendError(cl, "unknown event type")
	}
}

func (g *Gateway) sendError(cl *client, message string) {
	if err := cl.send(models.OutboundEvent{Type: models.EventError, Error: message}); err != nil {
		g.log.Warn("error event write failed", zap.String("conn_id", cl.info.ConnID), zap.Error(err))
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			return header[len(prefix):]
		}
		return ""
	}
	return c.Query("token")
}
