package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"caseflow-data/internal/config"
	"caseflow-data/internal/database"
	httpapi "caseflow-data/internal/http"
	"caseflow-data/internal/logger"
	"caseflow-data/internal/metrics"
	"caseflow-data/internal/repository"
	"caseflow-data/internal/service"
	"caseflow-data/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "caseflow-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Cache and change feed fall back to in-process implementations when
	// Redis is unreachable, so a dev box without Redis still works.
	var kv store.KV
	var feed store.Feed
	if err := redisClient.Ping(context.Background()).Err(); err == nil {
		kv = store.NewRedisKV(redisClient)
		feed = store.NewRedisFeed(redisClient)
	} else {
		log.Warn("Redis unavailable, using in-process cache and feed", zap.Error(err))
		kv = store.NewMemoryKV()
		feed = store.NewMemoryFeed()
	}
	cache := store.NewCache(kv, cfg.Cache.TTL)

	// Repositories: Postgres when available, otherwise in-memory so the API
	// stays usable for local development.
	var db *sql.DB
	var (
		clientsRepo  repository.ClientsRepository
		profilesRepo repository.ProfilesRepository
		tasksRepo    repository.TasksRepository
		auditRepo    repository.AuditRepository
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for caseflow-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repositories", zap.Error(err))
		}
	}
	if db != nil {
		clientsRepo = repository.NewPostgresClientsRepository(db)
		profilesRepo = repository.NewPostgresProfilesRepository(db)
		tasksRepo = repository.NewPostgresTasksRepository(db)
		auditRepo = repository.NewPostgresAuditRepository(db)
	} else {
		clientsRepo = repository.NewMemoryClientsRepository()
		profilesRepo = repository.NewMemoryProfilesRepository()
		tasksRepo = repository.NewMemoryTasksRepository()
		auditRepo = repository.NewMemoryAuditRepository()
	}

	m := metrics.New()
	notifier := service.NewWebhookNotifier(&cfg.Webhook, log)

	intakeSvc := service.NewIntakeService(clientsRepo, profilesRepo, tasksRepo, auditRepo, cache, feed, notifier, m, log)
	clientSvc := service.NewClientService(clientsRepo, profilesRepo, tasksRepo, auditRepo, cache, feed, log)
	exportSvc := service.NewExportService(clientsRepo, profilesRepo)

	router := httpapi.NewRouter(log, m)
	router.RegisterClientRoutes(httpapi.NewClientHandler(intakeSvc, clientSvc, exportSvc, log))
	router.RegisterOps(func() error {
		if db != nil {
			return db.Ping()
		}
		return nil
	})

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	database.Close(db)
}
