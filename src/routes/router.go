package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"clinic-ops/src/handlers"
	"clinic-ops/src/middleware"
)

type Handlers struct {
	Inventory    *handlers.InventoryHandler
	Transactions *handlers.TransactionHandler
	Alerts       *handlers.AlertHandler
	Bills        *handlers.BillHandler
	Reports      *handlers.ReportHandler
	Health       *handlers.HealthHandler
}

type RouterConfig struct {
	JWTSecret      string
	AllowedOrigins []string
	Log            *zap.Logger
}

// NewRouter builds the engine with the shared middleware chain. Everything
// under /api except /api/health requires a bearer token.
func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(cfg.Log),
		middleware.Metrics(),
		cors.New(corsConfig(cfg.AllowedOrigins)),
		gzip.Gzip(gzip.DefaultCompression),
	)

	router.GET("/health", h.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/health", h.Health.Health)

	secured := api.Group("")
	secured.Use(middleware.Actor(cfg.JWTSecret))

	RegisterInventoryRoutes(secured.Group("/inventory"), h.Inventory)
	RegisterTransactionRoutes(secured.Group("/transactions"), h.Transactions)
	RegisterPOSRoutes(secured.Group("/pos"), h.Transactions)
	RegisterAlertRoutes(secured.Group("/alerts"), h.Alerts)
	RegisterBillRoutes(secured, h.Bills)
	RegisterReportRoutes(secured.Group("/reports"), h.Reports)

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}
