package handlers

import (
	"net/http"

	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/realtime"
	"github.com/AtRiskMedia/orderstack-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/orderstack-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/orderstack-go/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// RealtimeHandlers upgrades dashboard connections onto the fanout hub.
type RealtimeHandlers struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *logging.ChanneledLogger
}

// NewRealtimeHandlers creates new realtime handlers
func NewRealtimeHandlers(hub *realtime.Hub, logger *logging.ChanneledLogger) *RealtimeHandlers {
	return &RealtimeHandlers{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range config.AllowedOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
		logger: logger,
	}
}

// Connect handles GET /ws. The token is optional: a missing or invalid
// token attaches no identity but never rejects the connection, so public
// dashboards work unauthenticated.
func (h *RealtimeHandlers) Connect(c *gin.Context) {
	userID := ""
	token := c.Query("token")
	if token == "" {
		token = middleware.BearerToken(c.GetHeader("Authorization"))
	}
	if token != "" {
		if claims, err := security.ValidateJWT(token, config.JWTSecret); err == nil {
			userID = security.UserIDFromClaims(claims)
		} else {
			h.logger.Auth().Debug("Websocket token rejected, connecting anonymously", "error", err.Error())
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Realtime().Error("Websocket upgrade failed", "error", err.Error())
		return
	}

	client := realtime.NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
