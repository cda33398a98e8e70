package main

import (
	"context"
	"os"

	"storefront/config"
	"storefront/internal/migrate"
	"storefront/pkg/database"
	"storefront/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	dbCfg := config.LoadDB(log)

	db := database.ConnectDBForMigration(&dbCfg.Config, log)
	defer database.CloseDB(db, log)

	opts := migrate.DefaultMigrateOptions()
	opts.SeedSettings = config.SeedSettings()

	if err := migrate.MigrateStoreDB(context.Background(), db, log, opts); err != nil {
		log.Fatal("Ошибка при выполнении миграции", zap.Error(err))
	}

	log.Info("Миграция успешно завершена")
}
