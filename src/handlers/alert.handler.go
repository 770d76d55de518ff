package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinic-ops/src/repositories"
	"clinic-ops/src/services"
)

type AlertHandler struct {
	Service *services.AlertService
	Log     *zap.Logger
}

// List - ?severity=&type=&unread_only=&include_dismissed=&limit=
func (h *AlertHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	filter := repositories.AlertFilter{
		Severity:         c.Query("severity"),
		Type:             c.Query("type"),
		UnreadOnly:       queryBool(c, "unread_only"),
		IncludeDismissed: queryBool(c, "include_dismissed"),
		Limit:            limit,
	}
	alerts, err := h.Service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts, "count": len(alerts)})
}

func (h *AlertHandler) Stats(c *gin.Context) {
	stats, err := h.Service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// Generate - Run the alert scan now
func (h *AlertHandler) Generate(c *gin.Context) {
	created, err := h.Service.Generate(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Alerts generated",
		"data":    created,
		"count":   len(created),
	})
}

func (h *AlertHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	alert, err := h.Service.MarkRead(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alert})
}

func (h *AlertHandler) Dismiss(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	alert, err := h.Service.Dismiss(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alert})
}
