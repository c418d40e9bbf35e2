package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fad-monitoring-backend/internal/audit"
	"fad-monitoring-backend/internal/config"
	"fad-monitoring-backend/internal/database"
	"fad-monitoring-backend/internal/logger"
	"fad-monitoring-backend/internal/media"
	"fad-monitoring-backend/internal/middleware"
	"fad-monitoring-backend/internal/repository"
	"fad-monitoring-backend/internal/service"
	"fad-monitoring-backend/internal/storage"
	"fad-monitoring-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load configuration
	cfg := config.LoadConfig()
	log := logger.New(cfg.Log, cfg.Server.Production())
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	log.Info("Configuration loaded successfully")

	// 2. Initialize database connection
	db, err := database.Connect(cfg, logger.NewGormLogger(log, cfg.Server.Production()))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer func() { _ = database.Close(db) }()
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}
	log.Info("Database connected successfully")

	signer := utils.NewTokenSigner(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	// 3. Initialize repositories
	userRepo := repository.NewUserRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	areaRepo := repository.NewAreaRepo(db)
	groupRepo := repository.NewGroupRepo(db)
	photoRepo := repository.NewPhotoRepo(db)
	fadRepo := repository.NewFadRepo(db)
	vendorRepo := repository.NewVendorRepo(db)
	infoRepo := repository.NewProgramInfoRepo(db)
	auditRepo := repository.NewAuditRepo(db)

	// 4. Audit sinks
	var sink audit.Sink = audit.NewDBSink(auditRepo)
	if cfg.AMQP.URL != "" {
		publisher := audit.NewAMQPSink(cfg.AMQP.URL, cfg.AMQP.Queue, log.WithField("component", "audit"))
		defer func() { _ = publisher.Close() }()
		sink = audit.Multi{sink, publisher}
		log.WithField("queue", cfg.AMQP.Queue).Info("Publishing change log to AMQP")
	}

	// 5. Upload storage
	store, err := storage.NewDisk(filepath.Join(cfg.Upload.Dir, cfg.Upload.SubDir))
	if err != nil {
		log.WithError(err).Fatal("Failed to prepare upload directory")
	}
	processor := media.NewProcessor()
	uploads := service.PhotoServiceConfig{
		PublicPrefix: cfg.Upload.PublicPath + "/" + cfg.Upload.SubDir,
		MaxFileSize:  cfg.Upload.MaxFileSize,
		MaxFiles:     cfg.Upload.MaxFiles,
	}

	// 6. Initialize services
	authService := service.NewAuthService(userRepo, sessionRepo, signer, sink, log.WithField("service", "auth"))
	userService := service.NewUserService(userRepo, sessionRepo, auditRepo, sink, log.WithField("service", "users"))
	areaService := service.NewAreaService(areaRepo, sink, log.WithField("service", "areas"))
	photoService := service.NewPhotoService(areaService, groupRepo, photoRepo, store, processor, uploads, sink, log.WithField("service", "photos"))
	fadService := service.NewFadService(fadRepo, vendorRepo, sink, log.WithField("service", "fad"))
	vendorService := service.NewVendorService(vendorRepo, sink, log.WithField("service", "vendors"))
	infoService := service.NewProgramInfoService(infoRepo, store, processor, uploads, sink, log.WithField("service", "program_info"))
	changeLogService := service.NewChangeLogService(auditRepo)

	// 7. Start background jobs
	workerService := service.NewWorkerService(sessionRepo, photoRepo, infoRepo, store, service.WorkerConfig{
		SessionPurgeSpec: cfg.Maintenance.SessionPurgeSpec,
		OrphanSweepSpec:  cfg.Maintenance.OrphanSweepSpec,
		SessionRetention: cfg.JWT.RefreshTokenExpiry,
		OrphanGrace:      cfg.Maintenance.OrphanGrace,
	}, log.WithField("component", "worker"))
	if err := workerService.Start(); err != nil {
		log.WithError(err).Fatal("Failed to schedule maintenance jobs")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limits := newRateLimits(ctx, cfg, log)
	defer limits.close()

	// 8. Setup Gin
	gin.SetMode(cfg.Server.GinMode)
	r := newRouter(cfg, routerDeps{
		log:         log,
		authn:       middleware.NewAuthenticator(signer, userRepo),
		limits:      limits,
		auth:        authService,
		users:       userService,
		areas:       areaService,
		photos:      photoService,
		fads:        fadService,
		vendors:     vendorService,
		programInfo: infoService,
		changeLogs:  changeLogService,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 9. Setup graceful shutdown
	go func() {
		log.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	workerService.Stop(shutdownCtx)
	cancel()
	log.Info("Server exited")
}

// rateLimits holds the limiter middleware for each route class
type rateLimits struct {
	general gin.HandlerFunc
	auth    gin.HandlerFunc
	upload  gin.HandlerFunc
	rdb     *redis.Client
}

func (l *rateLimits) close() {
	if l.rdb != nil {
		_ = l.rdb.Close()
	}
}

func newRateLimits(ctx context.Context, cfg *config.Config, log *logrus.Logger) *rateLimits {
	if !cfg.RateLimit.Enabled {
		return &rateLimits{general: middleware.Passthrough(), auth: middleware.Passthrough(), upload: middleware.Passthrough()}
	}

	rl := cfg.RateLimit
	entry := log.WithField("component", "ratelimit")
	limits := &rateLimits{}

	newLimiter := func(name string, limit int) middleware.Limiter {
		if limits.rdb != nil {
			return middleware.NewRedisLimiter(limits.rdb, rl.Prefix+":"+name, limit, rl.Window)
		}
		m := middleware.NewMemoryLimiter(limit, rl.Window)
		go func() {
			ticker := time.NewTicker(rl.Window)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					m.Sweep()
				}
			}
		}()
		return m
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			entry.WithError(err).Warn("Redis unavailable, using in-memory rate limits")
			_ = rdb.Close()
		} else {
			limits.rdb = rdb
			entry.WithField("addr", cfg.Redis.Addr).Info("Using Redis rate limits")
		}
	}

	limits.general = middleware.RateLimit(newLimiter("general", rl.General), middleware.RateLimitOptions{
		Name: "general",
	}, entry)
	limits.auth = middleware.RateLimit(newLimiter("auth", rl.Auth), middleware.RateLimitOptions{
		Name:           "auth",
		Message:        "Too many login attempts, please try again later.",
		SkipSuccessful: true,
	}, entry)
	limits.upload = middleware.RateLimit(newLimiter("upload", rl.Upload), middleware.RateLimitOptions{
		Name:    "upload",
		Message: "Too many uploads, please try again later.",
	}, entry)
	return limits
}
