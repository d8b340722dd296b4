package websocket

import (
	"context"
	"net/http"
	"time"

	"storefront-support/internal/events"
	"storefront-support/internal/services"
	"storefront-support/internal/transport/httpdto"
	"storefront-support/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Authorizer interface {
	CanSubscribe(ctx context.Context, userID, role string, conversationID uuid.UUID) (bool, error)
}

// Handler upgrades GET /conversations/:id/stream. Auth middleware has already run.
type Handler struct {
	authorizer Authorizer
	hub        *Hub
	upgrader   websocket.Upgrader
	log        *logger.Logger
	heartbeat  func(ctx context.Context, agentID string) error
}

func NewHandler(authorizer Authorizer, hub *Hub, allowedOrigins []string, l *logger.Logger) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	if l == nil {
		l = logger.GetGlobalLogger()
	}
	return &Handler{
		authorizer: authorizer,
		hub:        hub,
		log:        l,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// OnAgentPong registers fn to run on every pong from an agent connection,
// so an open console keeps the agent's presence fresh.
func (h *Handler) OnAgentPong(fn func(ctx context.Context, agentID string) error) {
	h.heartbeat = fn
}

func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := services.UserIDFromContext(ctx)
	role := services.RoleFromContext(ctx)

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "VALIDATION_ERROR"))
		return
	}

	ok, err := h.authorizer.CanSubscribe(ctx, userID, role, conversationID)
	if err != nil {
		h.log.ErrorCtx(ctx, "stream authorization failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WarnCtx(ctx, "websocket upgrade failed", zap.Error(err))
		return
	}

	channels := []string{events.ConversationChannel(conversationID.String())}
	if role == services.RoleAgent {
		channels = append(channels, events.ChannelAgents)
	}
	client := NewClient(conn, userID, channels...)

	writeCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(writeCtx)
	h.log.InfoCtx(ctx, "stream opened", zap.String("conversation_id", conversationID.String()))

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		if role == services.RoleAgent && h.heartbeat != nil {
			if err := h.heartbeat(writeCtx, userID); err != nil {
				h.log.WarnCtx(ctx, "agent heartbeat failed", zap.Error(err))
			}
		}
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}

	h.hub.Unregister(client)
	h.log.InfoCtx(ctx, "stream closed", zap.String("conversation_id", conversationID.String()))
}
