package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/lukyamuziB/lenken-backend/internal/cache"
	"github.com/lukyamuziB/lenken-backend/internal/clients/directory"
	"github.com/lukyamuziB/lenken-backend/internal/clients/mail"
	"github.com/lukyamuziB/lenken-backend/internal/clients/slack"
	"github.com/lukyamuziB/lenken-backend/internal/db"
	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/repos"
	"github.com/lukyamuziB/lenken-backend/internal/services"
	"github.com/lukyamuziB/lenken-backend/internal/utils"
)

// JobsConfig drives the scheduled scans. Loaded from JOBS_CONFIG_PATH, with
// defaults matching a daily run.
type JobsConfig struct {
	InactivitySchedule string `yaml:"inactivity_schedule"`
	UnmatchedSchedule  string `yaml:"unmatched_schedule"`
	CompletionSchedule string `yaml:"completion_schedule"`
	UnmatchedAfterHrs  int    `yaml:"unmatched_after_hours"`
}

func defaultJobsConfig() JobsConfig {
	return JobsConfig{
		InactivitySchedule: "0 9 * * *",
		UnmatchedSchedule:  "0 10 * * 1",
		CompletionSchedule: "30 0 * * *",
		UnmatchedAfterHrs:  24,
	}
}

func loadJobsConfig(path string, log *logger.Logger) JobsConfig {
	cfg := defaultJobsConfig()
	if path == "" {
		return cfg
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Could not read jobs config, using defaults", "path", path, "error", err)
		return cfg
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		log.Warn("Could not parse jobs config, using defaults", "path", path, "error", err)
		return defaultJobsConfig()
	}
	if cfg.UnmatchedAfterHrs <= 0 {
		cfg.UnmatchedAfterHrs = 24
	}
	return cfg
}

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	adminEmail := utils.GetEnv("ADMIN_EMAIL", "lenken-admin@example.com", log)
	jobsCfg := loadJobsConfig(utils.GetEnv("JOBS_CONFIG_PATH", "", log), log)

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	redisCache, err := cache.NewRedisCache(log)
	if err != nil {
		log.Warn("Redis init failed, placement lookups will be uncached", "error", err)
		redisCache = nil
	}

	slackClient, err := slack.NewFromEnv(log)
	if err != nil {
		log.Warn("Slack client unavailable", "error", err)
		slackClient = nil
	}
	directoryClient, err := directory.NewFromEnv(log)
	if err != nil {
		log.Warn("Directory client unavailable", "error", err)
		directoryClient = nil
	}

	userRepo := repos.NewUserRepo(thePG, log)
	requestRepo := repos.NewRequestRepo(thePG, log)

	var mailer services.Mailer = &services.LogMailer{Log: log}
	if mailClient, mErr := mail.NewFromEnv(log); mErr != nil {
		log.Warn("Mail provider unavailable, logging mail instead", "error", mErr)
	} else {
		mailer = &services.TemplateMailer{Client: mailClient}
	}
	notifier := services.NewNotificationService(log, mailer, slackClient)
	requestService := services.NewRequestService(thePG, log, requestRepo, userRepo, notifier)
	detectorService := services.NewDetectorService(thePG, log, requestRepo, userRepo, directoryClient, redisCache, notifier, adminEmail)

	scheduler := cron.New()

	mustSchedule := func(name, spec string, job func()) {
		if _, err := scheduler.AddFunc(spec, job); err != nil {
			log.Error("Invalid cron expression", "job", name, "spec", spec, "error", err)
			os.Exit(1)
		}
		log.Info("Job scheduled", "job", name, "spec", spec)
	}

	mustSchedule("session_inactivity", jobsCfg.InactivitySchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		count, err := detectorService.NotifyInactive(ctx, time.Now())
		if err != nil {
			log.Error("Inactivity scan failed", "error", err)
			return
		}
		log.Info("Inactivity scan finished", "flagged", count)
	})

	mustSchedule("unmatched_requests", jobsCfg.UnmatchedSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		results, err := detectorService.NotifyUnmatched(ctx, jobsCfg.UnmatchedAfterHrs, time.Now())
		if err != nil {
			log.Error("Unmatched scan failed", "error", err)
			return
		}
		log.Info("Unmatched scan finished", "stale", len(results))
	})

	mustSchedule("complete_elapsed", jobsCfg.CompletionSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		count, err := requestService.CompleteElapsed(ctx, time.Now())
		if err != nil {
			log.Error("Completion sweep failed", "error", err)
			return
		}
		log.Info("Completion sweep finished", "completed", count)
	})

	scheduler.Start()
	log.Info("Notification daemon running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notification daemon...")
	<-scheduler.Stop().Done()
	if redisCache != nil {
		redisCache.Close()
	}
}
