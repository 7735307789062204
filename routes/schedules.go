package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthwatch-server/services"
)

// ScheduleHandler exposes the caller's reminders read-only. Editing them
// belongs to the reminder management surface.
type ScheduleHandler struct {
	reminders *services.ReminderStore
	logger    *zap.Logger
}

func NewScheduleHandler(reminders *services.ReminderStore, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{reminders: reminders, logger: logger}
}

func (h *ScheduleHandler) RegisterScheduleRoutes(router *gin.RouterGroup) {
	router.GET("", h.list)
}

func (h *ScheduleHandler) list(c *gin.Context) {
	schedules, err := h.reminders.ListForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "schedules": schedules})
}
