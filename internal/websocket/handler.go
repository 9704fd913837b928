package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"hivley/internal/domain"
	"hivley/internal/events"
	"hivley/internal/services"
	"hivley/internal/transport/httpdto"
	"hivley/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type TokenParser interface {
	ParseAccessToken(token string) (services.AccessClaims, error)
}

type PresenceTracker interface {
	Heartbeat(ctx context.Context, profileID uuid.UUID, status domain.PresenceStatus) error
	PublishSnapshot(ctx context.Context, conversationID uuid.UUID) error
}

// Inbound frame types.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameHeartbeat   = "heartbeat"
)

// inboundFrame names its target by conversation_id, by profile_id for
// that profile's presence channel, or by a raw channel name.
type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	ProfileID      string `json:"profile_id,omitempty"`
	Channel        string `json:"channel,omitempty"`
	Status         string `json:"status,omitempty"`
}

type replyFrame struct {
	Type           string `json:"type"`
	Channel        string `json:"channel,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
	Code           string `json:"code,omitempty"`
}

type Handler struct {
	auth       TokenParser
	hub        *Hub
	authorizer *ChannelAuthorizer
	presence   PresenceTracker
	log        *logger.Logger
	upgrader   websocket.Upgrader
}

func NewHandler(auth TokenParser, hub *Hub, authorizer *ChannelAuthorizer, presence PresenceTracker, log *logger.Logger) *Handler {
	return &Handler{
		auth:       auth,
		hub:        hub,
		authorizer: authorizer,
		presence:   presence,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	claims, err := h.auth.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, userID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	h.hub.Subscribe(client, events.UserChannel(userID))
	go client.WriteLoop(ctx)

	if err := h.presence.Heartbeat(ctx, userID, domain.PresenceOnline); err != nil {
		h.log.Warnf("presence online for %s: %v", userID, err)
	}

	h.readLoop(ctx, client)

	h.hub.Unregister(client)
	if !h.hub.UserConnected(userID) {
		h.goOffline(userID)
	}
}

func (h *Handler) readLoop(ctx context.Context, client *Client) {
	conn := client.Conn
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.reply(client, replyFrame{Type: "error", Error: "malformed frame", Code: "INVALID_REQUEST"})
			continue
		}
		h.handleFrame(ctx, client, frame)
	}
}

func (h *Handler) handleFrame(ctx context.Context, client *Client, frame inboundFrame) {
	switch frame.Type {
	case FrameSubscribe, FrameUnsubscribe:
		channel, err := frameChannel(frame)
		if err != nil {
			h.reply(client, replyFrame{Type: "error", Error: err.Error(), Code: "INVALID_REQUEST"})
			return
		}
		reply := replyFrame{Channel: channel}
		prefix, id, _ := events.ParseChannel(channel)
		if prefix == events.ChannelPrefixConversation {
			reply.ConversationID = id.String()
		}

		if frame.Type == FrameUnsubscribe {
			h.hub.Unsubscribe(client, channel)
			reply.Type = "unsubscribed"
			h.reply(client, reply)
			return
		}

		allowed, err := h.authorizer.CanSubscribe(ctx, client.UserID, channel)
		if err != nil {
			h.log.Errorf("authorize %s on %s: %v", client.UserID, channel, err)
			reply.Type, reply.Error, reply.Code = "error", "subscribe failed", "REQUEST_FAILED"
			h.reply(client, reply)
			return
		}
		if !allowed {
			reply.Type, reply.Error, reply.Code = "error", "forbidden", "FORBIDDEN"
			h.reply(client, reply)
			return
		}
		h.hub.Subscribe(client, channel)
		reply.Type = "subscribed"
		h.reply(client, reply)

		if prefix == events.ChannelPrefixConversation {
			if err := h.presence.PublishSnapshot(ctx, id); err != nil {
				h.log.Warnf("presence snapshot for %s: %v", id, err)
			}
		}

	case FrameHeartbeat:
		status := domain.PresenceStatus(frame.Status)
		if status == "" {
			status = domain.PresenceOnline
		}
		if !status.Valid() {
			h.reply(client, replyFrame{Type: "error", Error: "invalid status", Code: "INVALID_REQUEST"})
			return
		}
		if err := h.presence.Heartbeat(ctx, client.UserID, status); err != nil {
			h.log.Warnf("presence heartbeat for %s: %v", client.UserID, err)
		}

	default:
		h.reply(client, replyFrame{Type: "error", Error: "unknown frame type", Code: "INVALID_REQUEST"})
	}
}

func frameChannel(frame inboundFrame) (string, error) {
	switch {
	case frame.Channel != "":
		if _, _, ok := events.ParseChannel(frame.Channel); !ok {
			return "", errors.New("invalid channel")
		}
		return frame.Channel, nil
	case frame.ConversationID != "":
		id, err := uuid.Parse(frame.ConversationID)
		if err != nil {
			return "", errors.New("invalid conversation_id")
		}
		return events.ConversationChannel(id), nil
	case frame.ProfileID != "":
		id, err := uuid.Parse(frame.ProfileID)
		if err != nil {
			return "", errors.New("invalid profile_id")
		}
		return events.PresenceChannel(id), nil
	}
	return "", errors.New("conversation_id, profile_id or channel is required")
}

func (h *Handler) reply(client *Client, frame replyFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	client.SendMessage(data)
}

// goOffline is best effort. Failures are logged and otherwise ignored.
func (h *Handler) goOffline(userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.presence.Heartbeat(ctx, userID, domain.PresenceOffline); err != nil {
		h.log.Warnf("presence offline for %s: %v", userID, err)
	}
}
