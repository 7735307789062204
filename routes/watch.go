package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthwatch-server/services"
)

// MeasurementRequest is the REST body for a watch measurement.
type MeasurementRequest struct {
	Type      string  `json:"type" binding:"required"`
	HeartRate int     `json:"heartRate"`
	SpO2      int     `json:"spO2"`
	Stress    int     `json:"stress"`
	Steps     int     `json:"steps"`
	Calories  float64 `json:"calories"`
	Duration  string  `json:"duration"`
}

type WatchHandler struct {
	measurements *services.MeasurementStore
	logger       *zap.Logger
}

func NewWatchHandler(measurements *services.MeasurementStore, logger *zap.Logger) *WatchHandler {
	return &WatchHandler{measurements: measurements, logger: logger}
}

// RegisterWatchRoutes registers the measurement routes. Static paths are
// registered before /:id.
func (h *WatchHandler) RegisterWatchRoutes(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/latest", h.latest)
	router.GET("/today", h.today)
	router.GET("/range", h.byDateRange)
	router.GET("/stats", h.stats)
	router.GET("/by-type/:type", h.byType)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.delete)
}

func (h *WatchHandler) create(c *gin.Context) {
	var req MeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Type) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": "Missing required field: type",
		})
		return
	}

	m, err := h.measurements.Create(c.Request.Context(), currentUserID(c), services.MeasurementInput{
		Type:      req.Type,
		HeartRate: req.HeartRate,
		SpO2:      req.SpO2,
		Stress:    req.Stress,
		Steps:     req.Steps,
		Calories:  req.Calories,
		Duration:  req.Duration,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Measurement saved successfully",
		"id":      m.ID,
	})
}

func (h *WatchHandler) list(c *gin.Context) {
	rows, err := h.measurements.List(c.Request.Context(), currentUserID(c), queryInt(c, "limit"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *WatchHandler) latest(c *gin.Context) {
	m, err := h.measurements.Latest(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *WatchHandler) today(c *gin.Context) {
	rows, err := h.measurements.Today(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *WatchHandler) byDateRange(c *gin.Context) {
	start, end := c.Query("startDate"), c.Query("endDate")
	if start == "" || end == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": "startDate and endDate are required",
		})
		return
	}
	rows, err := h.measurements.ListByDateRange(c.Request.Context(), currentUserID(c), start, end, queryInt(c, "limit"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *WatchHandler) byType(c *gin.Context) {
	rows, err := h.measurements.ListByType(c.Request.Context(), currentUserID(c), c.Param("type"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *WatchHandler) stats(c *gin.Context) {
	stats, err := h.measurements.Stats(c.Request.Context(), currentUserID(c), c.Query("period"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *WatchHandler) get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	m, err := h.measurements.GetByID(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *WatchHandler) delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.measurements.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Measurement deleted successfully"})
}
