package main

import (
	"fmt"
	"os"
	"time"

	"github.com/insideout-platform/notify-service/internal/config"
	"github.com/insideout-platform/notify-service/internal/handler"
	notificationhandler "github.com/insideout-platform/notify-service/internal/handler/notification"
	"github.com/insideout-platform/notify-service/internal/repository/postgres"
	"github.com/insideout-platform/notify-service/internal/router"
	"github.com/insideout-platform/notify-service/internal/service/notification"
	"github.com/insideout-platform/notify-service/internal/service/preference"
	"github.com/insideout-platform/notify-service/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load config")
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.InfoLevel,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	db, err := postgres.NewDB(postgres.DatabaseConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	notificationRepo := postgres.NewNotificationRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)
	userRepo := postgres.NewUserRepository(db)

	prefs := preference.NewService(settingsRepo, cfg.Notifier.SettingsCacheTTL())
	notificationSvc := notification.NewService(notificationRepo, userRepo, prefs, log)

	notificationH := notificationhandler.NewHandler(notificationSvc, notificationRepo)
	healthH := handler.NewHealthHandler(db)

	engine := router.NewRouter(notificationH, healthH).Setup()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("starting api server", "addr", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatal(err, "api server exited")
	}
}
