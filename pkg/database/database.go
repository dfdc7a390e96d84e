package database

import (
	"fmt"

	"retailer-service/internal/model"
	"retailer-service/pkg/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the postgres connection pool described by dbConfig
func InitDB(dbConfig *config.DBConfig, log *zap.Logger) (*gorm.DB, error) {
	pgConfig := postgres.Config{
		DSN:                  dbConfig.GetDSN(),
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger:         logger.Default.LogMode(dbConfig.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database object: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	log.Info("Database connected successfully",
		zap.String("host", dbConfig.Host),
		zap.String("database", dbConfig.DBName))

	return db, nil
}

// Migrate creates or updates the tables for every persisted model
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database is not initialized")
	}

	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	return nil
}
