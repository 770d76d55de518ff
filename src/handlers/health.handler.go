package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	DB *gorm.DB
}

// Health - Liveness plus a database ping
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	database := "ok"
	status := http.StatusOK
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":    http.StatusText(status),
		"database":  database,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
