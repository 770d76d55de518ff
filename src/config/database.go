package config

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormConfig is shared by the postgres connection and the test databases.
func GormConfig(log *zap.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			zap.NewStdLog(log.Named("gorm")),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				ParameterizedQueries:      true,
			},
		),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

// InitDB opens the postgres connection pool.
func InitDB(cfg DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Info("database connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("name", cfg.Name),
	)
	return db, nil
}
