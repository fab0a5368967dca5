package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"proconnect/internal/auth"
	"proconnect/internal/chat"
	"proconnect/internal/models"
	"proconnect/internal/observability"
	"proconnect/internal/repositories"
)

// Gateway owns the single websocket endpoint: it authenticates the handshake,
// registers the connection with the hub, and dispatches client events to the
// chat service. Operation failures go back to the initiating connection as an
// error event and never terminate the connection.
type Gateway struct {
	hub       *Hub
	chats     *chat.Service
	users     repositories.UserRepository
	validator *auth.Validator
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, chats *chat.Service, users repositories.UserRepository, validator *auth.Validator) *Gateway {
	return &Gateway{hub: hub, chats: chats, users: users, validator: validator}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, joins the personal room and runs the event
// loop until the client disconnects.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("proconnect/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := g.validator.ValidateToken(ctx, bearerToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	user, err := g.users.GetUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		User:        user.Summary(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	g.hub.Register(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	g.publishLifecycle(ctx, info, "ws_connect", "", 0)

	go g.readLoop(conn, info)
}

func (g *Gateway) readLoop(conn *websocket.Conn, info ConnInfo) {
	// The request context dies with the handshake handler; the loop outlives
	// it, so operations run on a fresh context.
	ctx := context.Background()
	var closeReason string
	defer func() {
		g.hub.Unregister(conn)
		conn.Close()
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		g.publishLifecycle(ctx, info, "ws_disconnect", closeReason, time.Since(info.ConnectedAt).Milliseconds())
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}

		var event models.ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			g.hub.EmitTo(conn, models.EventError, models.ErrorPayload{Message: "malformed event"})
			continue
		}
		if err := g.dispatch(ctx, conn, info, event); err != nil {
			g.hub.EmitTo(conn, models.EventError, models.ErrorPayload{Message: clientMessage(err)})
		}
	}
}

func (g *Gateway) dispatch(ctx context.Context, conn *websocket.Conn, info ConnInfo, event models.ClientEvent) error {
	switch event.Type {
	case models.EventJoinChat:
		var ref models.ChatRef
		if err := json.Unmarshal(event.Data, &ref); err != nil {
			return errMalformedPayload
		}
		g.hub.JoinChat(ref.ChatID, conn)

	case models.EventLeaveChat:
		var ref models.ChatRef
		if err := json.Unmarshal(event.Data, &ref); err != nil {
			return errMalformedPayload
		}
		g.hub.LeaveChat(ref.ChatID, conn)

	case models.EventSendMessage:
		var req models.SendMessageRequest
		if err := json.Unmarshal(event.Data, &req); err != nil {
			return errMalformedPayload
		}
		_, err := g.chats.SendMessage(ctx, info.UserID, req.ChatID, req.Content)
		return err

	case models.EventTyping:
		var ref models.ChatRef
		if err := json.Unmarshal(event.Data, &ref); err != nil {
			return errMalformedPayload
		}
		g.hub.EmitToChatExcept(ref.ChatID, conn, models.EventUserTyping, models.TypingPayload{
			ChatID: ref.ChatID,
			User:   info.User,
		})

	case models.EventStopTyping:
		var ref models.ChatRef
		if err := json.Unmarshal(event.Data, &ref); err != nil {
			return errMalformedPayload
		}
		g.hub.EmitToChatExcept(ref.ChatID, conn, models.EventUserStopTyping, models.StopTypingPayload{
			ChatID: ref.ChatID,
			UserID: info.UserID,
		})

	case models.EventMarkRead:
		var ref models.ChatRef
		if err := json.Unmarshal(event.Data, &ref); err != nil {
			return errMalformedPayload
		}
		return g.chats.MarkRead(ctx, info.UserID, ref.ChatID)

	case models.EventDeleteMessage:
		var ref models.MessageRef
		if err := json.Unmarshal(event.Data, &ref); err != nil {
			return errMalformedPayload
		}
		return g.chats.DeleteMessage(ctx, info.UserID, ref.MessageID)

	default:
		return errUnknownEvent
	}
	return nil
}

var (
	errMalformedPayload = errors.New("malformed event payload")
	errUnknownEvent     = errors.New("unknown event type")
)

// clientMessage maps errors to the human-readable message carried by the
// error event. Unexpected failures stay generic.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyContent),
		errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, chat.ErrNotSender),
		errors.Is(err, chat.ErrNotConnected),
		errors.Is(err, repositories.ErrChatNotFound),
		errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, errMalformedPayload),
		errors.Is(err, errUnknownEvent):
		return err.Error()
	default:
		return "operation failed"
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	if cookie, err := c.Cookie("token"); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("token")
}

func (g *Gateway) publishLifecycle(ctx context.Context, info ConnInfo, event, reason string, durationMS int64) {
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, "ws_events.connections", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": durationMS,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, headers)
}
