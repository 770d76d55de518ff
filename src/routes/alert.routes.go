package routes

import (
	"github.com/gin-gonic/gin"

	"clinic-ops/src/handlers"
)

func RegisterAlertRoutes(r *gin.RouterGroup, handler *handlers.AlertHandler) {
	r.GET("", handler.List)
	r.GET("/stats", handler.Stats)
	r.POST("/generate", handler.Generate)
	r.PATCH("/:id/read", handler.MarkRead)
	r.PATCH("/:id/dismiss", handler.Dismiss)
}
