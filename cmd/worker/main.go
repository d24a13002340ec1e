package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"jobintake/internal/config"
	"jobintake/internal/database"
	"jobintake/internal/mailer"
	"jobintake/internal/metrics"
	"jobintake/internal/tasks"
	"jobintake/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Println("database connection ready for worker")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	var m *mailer.Mailer
	if cfg.SMTP.Host != "" {
		m = mailer.New(cfg.SMTP, cfg.Company.Name)
		log.Printf("smtp sender ready, host=%s from=%s", cfg.SMTP.Host, cfg.SMTP.From)
	} else {
		log.Println("smtp not configured, emails will be skipped")
	}

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()}, asynq.Config{
		Concurrency: 10,
	})

	emailHandler := worker.NewEmailTaskHandler(db, m, redisClient, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.HandleFunc(tasks.TypeEmailConfirmation, emailHandler.HandleConfirmation)
	mux.HandleFunc(tasks.TypeEmailStatusUpdate, emailHandler.HandleStatusUpdate)

	logger.Info("worker service started", slog.String("redis_addr", cfg.Redis.Addr()))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
