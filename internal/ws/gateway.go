package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"chatroom-service/internal/models"
	"chatroom-service/internal/observability"
	"chatroom-service/internal/repositories"
)

// Authorizer decides whether a user may enter a room.
type Authorizer interface {
	CanAccess(ctx context.Context, room models.Room, userID int) (bool, error)
}

// TranscriptLogger records delivered chat lines per room.
type TranscriptLogger interface {
	Append(roomID int, username string, body string)
}

// Gateway owns the realtime protocol. Every connection moves through
// connected -> joined -> disconnected; joins are validated against the room
// store and the authorizer, messages are persisted before broadcast, and
// disconnects announce the leave to the room left behind.
type Gateway struct {
	hub        *Hub
	rooms      repositories.RoomRepository
	messages   repositories.MessageRepository
	access     Authorizer
	transcript TranscriptLogger
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, rooms repositories.RoomRepository, messages repositories.MessageRepository, access Authorizer, transcript TranscriptLogger) *Gateway {
	return &Gateway{hub: hub, rooms: rooms, messages: messages, access: access, transcript: transcript}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundEvent is the tagged envelope read off the socket. Unknown types and
// missing required fields are rejected at this boundary.
type inboundEvent struct {
	Type    string `json:"type"`
	RoomID  int    `json:"room_id"`
	Message string `json:"message"`
}

// Handle upgrades the connection and runs its read loop. Identity comes from
// the session token validated by the auth middleware.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chatroom-service/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      c.GetInt("userID"),
		Username:    c.GetString("username"),
		Color:       c.GetString("color"),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}

	observability.IncWSActive("room")
	observability.IncWSEvent("room", "ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   connEventPayload(info, "ws_connect", 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	go g.readLoop(context.WithoutCancel(ctx), conn, info)
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		g.Disconnect(info.ConnID)
		observability.DecWSActive("room")
		observability.IncWSEvent("room", "ws_disconnect")
		_ = observability.PublishEvent(ctx, "ws_events.rooms", observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload:   connEventPayload(info, "ws_disconnect", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
		}, observability.BuildHeaders(info.RequestID, info.TraceID))
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("room", "ws_error")
			}
			return
		}

		var in inboundEvent
		if err := json.Unmarshal(raw, &in); err != nil {
			g.reject(info.ConnID, conn, NewErrorEvent(CodeValidation, "malformed event"))
			continue
		}

		switch in.Type {
		case "join":
			if in.RoomID == 0 {
				g.reject(info.ConnID, conn, NewErrorEvent(CodeValidation, "room_id is required"))
				continue
			}
			g.Join(ctx, conn, info, in.RoomID)
		case "send_message":
			g.SendMessage(ctx, conn, info, in.Message)
		default:
			g.reject(info.ConnID, conn, NewErrorEvent(CodeValidation, fmt.Sprintf("unknown event type %q", in.Type)))
		}
	}
}

// Join validates the room and the caller's access, then registers the
// connection and announces it to the room, joiner included. A connection
// switching rooms is first removed from its old room with a leave notice; no
// registration survives a failed join.
func (g *Gateway) Join(ctx context.Context, conn Conn, info ConnInfo, roomID int) {
	room, err := g.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			g.reject(info.ConnID, conn, NewErrorEvent(CodeRoomNotFound, "room not found"))
			return
		}
		g.reject(info.ConnID, conn, NewErrorEvent(CodePersistence, "could not load room"))
		return
	}

	allowed, err := g.access.CanAccess(ctx, room, info.UserID)
	if err != nil {
		g.reject(info.ConnID, conn, NewErrorEvent(CodePersistence, "could not check room access"))
		return
	}
	if !allowed {
		g.reject(info.ConnID, conn, NewErrorEvent(CodeUnauthorized, "this room is invitation-only"))
		return
	}

	prev, hadPrev := g.hub.Join(info.ConnID, roomID, conn, info)
	if hadPrev && prev.RoomID != roomID {
		g.hub.Broadcast(prev.RoomID, NewNoticeEvent(fmt.Sprintf("%s has left the chat.", prev.Username), time.Now()))
	}
	g.hub.Broadcast(roomID, NewNoticeEvent(fmt.Sprintf("%s has joined the chat.", info.Username), time.Now()))
	observability.IncWSEvent("room", "join")
}

// SendMessage persists the message against the room recorded at join time and
// broadcasts it only once the write succeeded. A store failure is reported to
// the sender alone and nothing is delivered.
func (g *Gateway) SendMessage(ctx context.Context, conn Conn, info ConnInfo, body string) {
	entry, joined := g.hub.Lookup(info.ConnID)
	if !joined {
		g.reject(info.ConnID, conn, NewErrorEvent(CodeNotJoined, "join a room before sending messages"))
		return
	}

	msg, err := g.messages.AppendMessage(ctx, entry.RoomID, entry.UserID, body)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrEmptyMessageBody):
			g.reject(info.ConnID, conn, NewErrorEvent(CodeValidation, "message body must not be empty"))
		case errors.Is(err, repositories.ErrRoomNotFound), errors.Is(err, repositories.ErrUserNotFound):
			g.reject(info.ConnID, conn, NewErrorEvent(CodeRoomNotFound, "room or sender no longer exists"))
		default:
			observability.IncWSEvent("room", "persist_error")
			g.reject(info.ConnID, conn, NewErrorEvent(CodePersistence, "failed to store message"))
		}
		return
	}

	if g.transcript != nil {
		g.transcript.Append(entry.RoomID, entry.Username, msg.Body)
	}
	observability.IncMessagePersisted()
	g.hub.Broadcast(entry.RoomID, NewMessageEvent(msg, entry.Username, entry.Color))
}

// Disconnect removes the connection's registration and announces the leave.
// A connection that never joined, or already left, disconnects silently.
func (g *Gateway) Disconnect(connID string) {
	entry, ok := g.hub.Leave(connID)
	if !ok {
		return
	}
	g.hub.Broadcast(entry.RoomID, NewNoticeEvent(fmt.Sprintf("%s has left the chat.", entry.Username), time.Now()))
}

// reject delivers an error event to the originating connection only.
func (g *Gateway) reject(connID string, conn Conn, event Event) {
	if _, joined := g.hub.Lookup(connID); joined {
		g.hub.Send(connID, event)
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("websocket write error: %v", err)
	}
}

func connEventPayload(info ConnInfo, event string, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "room",
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":  info.UserID,
			"username": info.Username,
			"ip":       info.IP,
		},
	}
}
