package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"unismart/internal/advisor"
	"unismart/internal/attendance"
	"unismart/internal/auth"
	"unismart/internal/catalog"
	"unismart/internal/classroom"
	"unismart/internal/cloudinary"
	"unismart/internal/config"
	"unismart/internal/httpapi"
	"unismart/internal/identity"
	"unismart/internal/logger"
	"unismart/internal/metrics"
	"unismart/internal/queue"
	"unismart/internal/report"
	"unismart/internal/schedule"
	"unismart/internal/store"
)

var version = "dev"

// demo student whose history drives the seeded reports
const (
	demoStudentID  = "4"
	demoScheduleID = "sc1"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewWithServiceContext("unismart-api", version, cfg.Env)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Error("api failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.App, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var checks []httpapi.HealthCheck

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if db != nil {
		checks = append(checks, httpapi.HealthCheck{Name: "db", Check: db.Healthy})
	}

	var redisClient *store.Redis
	if cfg.KVBackend == "redis" || cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		checks = append(checks, httpapi.HealthCheck{Name: "redis", Check: redisClient.Healthy})
	}

	var kv store.KV
	if cfg.KVBackend == "memory" {
		kv = store.NewMemoryKV()
	} else {
		kv = store.NewRedisKV(redisClient.Client)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	users := identity.NewService(identity.NewKVRepository(kv))
	subjects := catalog.New(nil)

	var scheduleRepo schedule.Repository = schedule.NewMemoryRepository(schedule.Seed())
	var records attendance.Repository = attendance.NewMemoryRepository()
	if db != nil {
		sqlSchedule := schedule.NewSQLRepository(db.Client)
		if err := sqlSchedule.Seed(ctx, schedule.Seed()); err != nil {
			return err
		}
		scheduleRepo = sqlSchedule
		records = attendance.NewSQLRepository(db.Client)
	}
	if err := attendance.SeedIfEmpty(ctx, records, attendance.SeedHistory(demoStudentID, demoScheduleID, time.Now())); err != nil {
		return err
	}

	sched := schedule.NewService(scheduleRepo, subjects, users,
		schedule.NewResolver(cfg.Location(), cfg.ScheduleWindow, schedule.ParseWindowMode(cfg.ScheduleWindowMode)))

	var uploader attendance.Uploader
	if cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder); cdn != nil {
		uploader = cdn
		log.Info("cloudinary configured", "cloud", cfg.CloudinaryCloudName)
	} else {
		log.Info("cloudinary not configured, codes are served inline")
	}

	att := attendance.NewService(attendance.Deps{
		Repo:        records,
		Schedule:    sched,
		Users:       users,
		Subjects:    subjects,
		Codes:       attendance.NewCodes(kv, cfg.CodeTTL, uploader),
		Queue:       q,
		Metrics:     m,
		Log:         log,
		DedupWindow: cfg.DedupWindow,
	})

	adv, err := advisor.New(ctx, advisor.Config{
		BaseURL:     cfg.GeminiBaseURL,
		APIKey:      cfg.GeminiAPIKey,
		AdviceModel: cfg.GeminiAdviceModel,
		RosterModel: cfg.GeminiRosterModel,
	})
	if err != nil {
		return err
	}
	adv.Metrics = m
	adv.Log = log
	if !adv.Enabled() {
		log.Info("advisor disabled, GEMINI_API_KEY not set")
	}

	monitor := schedule.NewMonitor(sched, q, m, log, cfg.MonitorInterval)
	go monitor.Run(ctx)

	if cfg.QueueBackend == "memory" {
		verifier := attendance.NewVerifier(records, m, log, cfg.VerifyDelay)
		go func() {
			if err := verifier.Run(ctx, q); err != nil {
				log.Error("verifier stopped", "error", err)
			}
		}()
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Log:             log,
		Metrics:         m,
		Gatherer:        prometheus.DefaultGatherer,
		Tokens:          auth.NewTokens(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL),
		Sessions:        identity.NewSessions(kv),
		Users:           users,
		Catalog:         subjects,
		Schedule:        sched,
		Monitor:         monitor,
		Attendance:      att,
		Reports:         report.NewService(users, att, sched, subjects),
		Classroom:       classroom.NewService(subjects, classroom.Seed()),
		Advisor:         adv,
		Checks:          checks,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowOverride:   cfg.AllowOverride,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr, "storage", cfg.StorageBackend, "kv", cfg.KVBackend, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", "error", err)
	}
	log.Info("server exited")
	return nil
}

// openDB returns nil for the memory backend.
func openDB(ctx context.Context, cfg config.App) (*store.DB, error) {
	var (
		db  *store.DB
		err error
	)
	switch cfg.StorageBackend {
	case "postgres":
		db, err = store.NewDB(ctx, cfg.DatabaseURL)
	case "sqlite":
		db, err = store.NewSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
