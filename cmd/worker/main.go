package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/insideout-platform/notify-service/internal/config"
	"github.com/insideout-platform/notify-service/internal/email"
	"github.com/insideout-platform/notify-service/internal/repository/postgres"
	"github.com/insideout-platform/notify-service/internal/service/dispatcher"
	"github.com/insideout-platform/notify-service/internal/service/notification"
	"github.com/insideout-platform/notify-service/internal/service/preference"
	"github.com/insideout-platform/notify-service/internal/service/reminder"
	"github.com/insideout-platform/notify-service/internal/worker"
	"github.com/insideout-platform/notify-service/pkg/logger"
	"github.com/insideout-platform/notify-service/pkg/messaging"
	redisbroker "github.com/insideout-platform/notify-service/pkg/messaging/redis"
	"github.com/insideout-platform/notify-service/pkg/metrics"
)

func setupHealthCheck(log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			log.ZL.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}

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

	var broker messaging.Broker
	if cfg.Redis.Enabled {
		broker, err = redisbroker.NewBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			PoolSize:     10,
			MinIdleConns: 2,
		}, &log.ZL)
		if err != nil {
			log.Fatal(err, "failed to connect to redis")
		}
		defer broker.Close()
	}

	notificationRepo := postgres.NewNotificationRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	userRepo := postgres.NewUserRepository(db)

	m := metrics.NewMetrics("notify")
	prefs := preference.NewService(settingsRepo, cfg.Notifier.SettingsCacheTTL())
	notificationSvc := notification.NewService(notificationRepo, userRepo, prefs, log)

	transport := email.NewSMTPService(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	dispatchSvc := dispatcher.NewService(notificationRepo, transport, broker, dispatcher.Config{
		MaxRetries: cfg.Notifier.MaxRetries,
		BatchSize:  cfg.Notifier.BatchSize,
		ClaimTTL:   cfg.Notifier.ClaimTTL(),
	}, log, m)

	reminderSvc := reminder.NewService(scheduleRepo, userRepo, prefs, notificationSvc, reminder.Config{
		DefaultLeadMinutes: cfg.Notifier.DefaultLeadMinutes,
		MinLeadMinutes:     cfg.Notifier.MinLeadMinutes,
		MaxLeadMinutes:     cfg.Notifier.MaxLeadMinutes,
		WindowSeconds:      cfg.Notifier.ReminderWindowSeconds,
	}, log, m)

	scheduler := worker.NewScheduler(log)
	scheduler.AddJob(worker.Job{
		Name:     "email_dispatch",
		Interval: cfg.Notifier.DispatchInterval(),
		Run:      dispatchSvc.RunDispatchCycle,
	})
	scheduler.AddJob(worker.Job{
		Name:     "meeting_reminders",
		Interval: cfg.Notifier.ReminderInterval(),
		Run: func(ctx context.Context) error {
			_, err := reminderSvc.RunReminderCycle(ctx)
			return err
		},
	})

	setupHealthCheck(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	scheduler.Start(ctx)
}
