package routes

import (
	"github.com/gin-gonic/gin"

	"clinic-ops/src/handlers"
)

// RegisterBillRoutes mounts bills plus the procedure and drug pickers on api.
func RegisterBillRoutes(api *gin.RouterGroup, handler *handlers.BillHandler) {
	bills := api.Group("/bills")
	bills.GET("", handler.List)
	bills.POST("", handler.Create)
	bills.GET("/:id", handler.Get)
	bills.PUT("/:id", handler.Update)
	bills.PATCH("/:id/status", handler.UpdateStatus)
	bills.DELETE("/:id", handler.Delete)
	bills.GET("/:id/print", handler.Print)

	api.GET("/procedures", handler.Procedures)
	api.POST("/procedures", handler.CreateProcedure)
	api.GET("/drugs/search", handler.SearchDrugs)
}
