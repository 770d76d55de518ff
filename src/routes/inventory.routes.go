package routes

import (
	"github.com/gin-gonic/gin"

	"clinic-ops/src/handlers"
)

func RegisterInventoryRoutes(r *gin.RouterGroup, handler *handlers.InventoryHandler) {
	// GET endpoints
	r.GET("", handler.List)
	r.GET("/stats", handler.Stats)
	r.GET("/low-stock", handler.LowStock)
	r.GET("/expiring", handler.Expiring)
	r.GET("/expired", handler.Expired)
	r.GET("/search", handler.Search)
	r.GET("/sku/:sku", handler.GetBySKU)
	r.GET("/barcode/:barcode", handler.GetByBarcode)
	r.GET("/:id", handler.GetByID)
	r.GET("/:id/movements", handler.Movements)

	// Mutations
	r.POST("", handler.Create)
	r.PUT("/:id", handler.Update)
	r.PATCH("/:id/quantity", handler.AdjustQuantity)
	r.DELETE("/:id", handler.Deactivate)
}
