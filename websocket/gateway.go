package websocket

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"healthwatch-server/models"
)

// Authenticator resolves a bearer credential to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Gateway authenticates realtime connections before upgrading them and joins
// them to the hub.
type Gateway struct {
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewGateway creates a gateway accepting the given origins ("*" allows any).
func NewGateway(hub *Hub, auth Authenticator, allowedOrigins []string, logger *zap.Logger) *Gateway {
	return &Gateway{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Native apps and watches send no Origin.
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

func connectionToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Handle authenticates the request and upgrades it. A rejected credential gets
// a 401 and the connection is never upgraded.
func (g *Gateway) Handle(c *gin.Context) {
	user, err := g.auth.Authenticate(c.Request.Context(), connectionToken(c))
	if err != nil {
		g.logger.Info("🔒 Realtime connection rejected", zap.String("ip", c.ClientIP()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Authentication error",
		})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Warn("❌ WebSocket upgrade failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return
	}

	client := newClient(g.hub, conn, user.ID, string(user.Role))
	g.hub.Join(client)

	connected, err := NewMessage(EventConnected, map[string]interface{}{
		"clientId": client.ID,
		"userId":   user.ID,
	})
	if err == nil {
		_ = client.SendMessage(connected)
	}

	go client.writePump()
	go client.readPump()
}
