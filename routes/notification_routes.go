package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthwatch-server/services"
)

type NotificationHandler struct {
	notifications *services.NotificationStore
	users         *services.UserStore
	logger        *zap.Logger
}

func NewNotificationHandler(notifications *services.NotificationStore, users *services.UserStore, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, users: users, logger: logger}
}

// RegisterNotificationRoutes registers the notification feed routes. The group
// must already be authenticated.
func (h *NotificationHandler) RegisterNotificationRoutes(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/unread-count", h.unreadCount)
	router.PUT("/:id/read", h.markRead)
	router.POST("/mark-all-read", h.markAllRead)
	router.POST("/register-token", h.registerPushToken)
}

// list returns the caller's notifications, newest first
func (h *NotificationHandler) list(c *gin.Context) {
	notifications, err := h.notifications.ListForUser(c.Request.Context(), currentUserID(c), queryInt(c, "limit"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": notifications,
	})
}

func (h *NotificationHandler) unreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
}

func (h *NotificationHandler) markRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	notification, err := h.notifications.MarkRead(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notification": notification})
}

func (h *NotificationHandler) markAllRead(c *gin.Context) {
	updated, err := h.notifications.MarkAllRead(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

// registerPushToken stores the device token reminders are pushed to.
func (h *NotificationHandler) registerPushToken(c *gin.Context) {
	var request struct {
		FCMToken  string `json:"fcmToken"`
		PushToken string `json:"push_token"`
		Platform  string `json:"platform"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "message": err.Error()})
		return
	}

	token := strings.TrimSpace(request.FCMToken)
	if token == "" {
		token = strings.TrimSpace(request.PushToken)
	}
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "message": "fcmToken is required"})
		return
	}

	userID := currentUserID(c)
	if err := h.users.UpdatePushToken(c.Request.Context(), userID, token); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("✅ Push token registered", zap.Uint("user_id", userID), zap.String("platform", request.Platform))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Push token registered"})
}
