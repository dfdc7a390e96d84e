package main

import (
	"context"
	"flag"
	"time"

	"retailer-service/internal/seed"
	"retailer-service/pkg/config"
	"retailer-service/pkg/database"
	"retailer-service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	force := flag.Bool("force", false, "reset demo account passwords and roles")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	db, err := database.InitDB(&cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	summary, err := seed.Run(ctx, db, log, seed.Options{
		ResetPasswords: *force,
		HashCost:       bcrypt.DefaultCost,
	})
	if err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}

	log.Info("Seeding completed",
		zap.Uint("admin_id", summary.AdminID),
		zap.Uint("sales_rep_id", summary.SalesRepID),
		zap.Int("retailers", summary.Retailers),
		zap.Int("assignments", summary.Assignments))
	log.Info("Login credentials: admin/admin123 (ADMIN), sr1/sr123 (SALES_REP)")
}
