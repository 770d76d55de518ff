package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-ops/src/config"
	"clinic-ops/src/handlers"
	"clinic-ops/src/jobs"
	"clinic-ops/src/logger"
	"clinic-ops/src/metrics"
	"clinic-ops/src/models"
	"clinic-ops/src/notify"
	"clinic-ops/src/receipt"
	"clinic-ops/src/repositories"
	"clinic-ops/src/requests"
	"clinic-ops/src/routes"
	"clinic-ops/src/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	db, err := config.InitDB(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("database", zap.Error(err))
	}
	if err := config.Migrate(db); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}

	metrics.InitMetrics()
	if err := requests.RegisterValidators(); err != nil {
		zlog.Fatal("validator registration failed", zap.Error(err))
	}

	// Initialize repositories
	inventoryRepo := &repositories.InventoryRepository{DB: db}
	transactionRepo := &repositories.TransactionRepository{DB: db}
	alertRepo := &repositories.AlertRepository{DB: db}
	billRepo := &repositories.BillRepository{DB: db}
	procedureRepo := &repositories.ProcedureRepository{DB: db}

	// Initialize services
	alertService := &services.AlertService{
		Repo:      alertRepo,
		Inventory: inventoryRepo,
		Notifier:  buildNotifier(cfg, zlog),
		Windows: services.ExpiryWindows{
			Critical: cfg.Alerts.ExpiryCriticalDays,
			Warning:  cfg.Alerts.ExpiryWarningDays,
			Notice:   cfg.Alerts.ExpiryNoticeDays,
		},
		Log: zlog.Named("alerts"),
	}
	observers := []services.StockObserver{alertService}

	inventoryService := &services.InventoryService{
		DB:        db,
		Repo:      inventoryRepo,
		Log:       zlog.Named("inventory"),
		Observers: observers,
	}
	transactionService := &services.TransactionService{
		DB:        db,
		Repo:      transactionRepo,
		Inventory: inventoryRepo,
		Log:       zlog.Named("transactions"),
		Observers: observers,
	}
	billingService := &services.BillingService{
		DB:         db,
		Repo:       billRepo,
		Inventory:  inventoryRepo,
		Procedures: procedureRepo,
		Log:        zlog.Named("billing"),
		Observers:  observers,
	}
	reportService := &services.ReportService{
		Inventory:    inventoryRepo,
		Transactions: transactionRepo,
		Alerts:       alertRepo,
	}

	ctx := context.Background()
	if n, err := billingService.SeedProcedures(ctx); err != nil {
		zlog.Warn("failed to seed procedures", zap.Error(err))
	} else if n > 0 {
		zlog.Info("seeded procedures", zap.Int("count", n))
	}
	if err := seedSampleData(ctx, db, inventoryService, zlog); err != nil {
		zlog.Warn("failed to seed sample data", zap.Error(err))
	}

	// Initialize handlers
	clinic := receipt.Clinic{
		Name:     cfg.Clinic.Name,
		Address:  cfg.Clinic.Address,
		Phone:    cfg.Clinic.Phone,
		Currency: cfg.Clinic.Currency,
	}
	gin.SetMode(cfg.Server.Mode)
	router := routes.NewRouter(routes.RouterConfig{
		JWTSecret:      cfg.JWT.Secret,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Log:            zlog.Named("http"),
	}, routes.Handlers{
		Inventory: &handlers.InventoryHandler{Service: inventoryService, Log: zlog},
		Transactions: &handlers.TransactionHandler{
			Service: transactionService,
			Printer: &receipt.LogPrinter{Log: zlog.Named("receipt")},
			Clinic:  clinic,
			Log:     zlog,
		},
		Alerts:  &handlers.AlertHandler{Service: alertService, Log: zlog},
		Bills:   &handlers.BillHandler{Service: billingService, Inventory: inventoryService, Log: zlog},
		Reports: &handlers.ReportHandler{Service: reportService, Log: zlog},
		Health:  &handlers.HealthHandler{DB: db},
	})

	scheduler, err := jobs.NewScheduler(alertService, cfg.Alerts.ScanInterval, cfg.Alerts.DailyScanAt, zlog.Named("jobs"))
	if err != nil {
		zlog.Fatal("scheduler", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zlog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-sigCtx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}
}

func buildNotifier(cfg *config.Config, zlog *zap.Logger) notify.Notifier {
	if !cfg.Email.Enabled {
		return notify.NopNotifier{}
	}
	var to []string
	for _, addr := range strings.Split(cfg.Email.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	return &notify.Async{
		Next: notify.NewEmailNotifier(notify.EmailConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			To:       to,
			Clinic:   cfg.Clinic.Name,
		}),
		Log: zlog.Named("email"),
	}
}

// seedSampleData inserts a few items into an empty inventory.
func seedSampleData(ctx context.Context, db *gorm.DB, inventory *services.InventoryService, zlog *zap.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.InventoryItem{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	expires := time.Now().UTC().AddDate(1, 0, 0)
	items := []services.CreateItemInput{
		{ItemName: "Paracetamol 500mg", SKU: "MED-PARA-500", Category: "medication", UnitType: "strip",
			Quantity: 200, UnitPrice: decimal.NewFromInt(150), SellingPrice: decimal.NewFromInt(250), ExpirationDate: &expires},
		{ItemName: "Amoxicillin 250mg", SKU: "MED-AMOX-250", Category: "medication", UnitType: "strip",
			Quantity: 80, UnitPrice: decimal.NewFromInt(400), SellingPrice: decimal.NewFromInt(650),
			RequiresPrescription: true, ExpirationDate: &expires},
		{ItemName: "Sterile Gauze", SKU: "CON-GAUZE-10", Category: "consumables", UnitType: "pack",
			Quantity: 50, UnitPrice: decimal.NewFromInt(300), SellingPrice: decimal.NewFromInt(500)},
		{ItemName: "Disposable Syringe 5ml", SKU: "CON-SYR-5", Category: "consumables", UnitType: "piece",
			Quantity: 500, UnitPrice: decimal.NewFromInt(50), SellingPrice: decimal.NewFromInt(100)},
	}
	for _, in := range items {
		if _, err := inventory.Create(ctx, in, services.DefaultActor); err != nil {
			return err
		}
	}
	zlog.Info("seeded sample items", zap.Int("count", len(items)))
	return nil
}
