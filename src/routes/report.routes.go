package routes

import (
	"github.com/gin-gonic/gin"

	"clinic-ops/src/handlers"
)

func RegisterReportRoutes(r *gin.RouterGroup, handler *handlers.ReportHandler) {
	r.GET("/inventory", handler.Inventory)
	r.GET("/transactions", handler.Transactions)
	r.GET("/low-stock", handler.LowStock)
	r.GET("/expiry", handler.Expiry)
	r.GET("/dashboard", handler.Dashboard)
}
