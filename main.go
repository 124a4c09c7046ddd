package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"

	"academy_backend/internals/configs"
	database "academy_backend/internals/databases"
	nrepo "academy_backend/internals/features/home/notifications/repository"
	nservice "academy_backend/internals/features/home/notifications/service"
	quizrepo "academy_backend/internals/features/school/submissions_assesments/quizzes/repository"
	"academy_backend/internals/features/school/submissions_assesments/quizzes/scheduler"
	authrepo "academy_backend/internals/features/users/auth/repository"
	authsched "academy_backend/internals/features/users/auth/scheduler"
	helper "academy_backend/internals/helpers"
	"academy_backend/internals/helpers/dbtime"
	"academy_backend/internals/helpers/logger"
	middlewares "academy_backend/internals/middlewares"
	routes "academy_backend/internals/route"
)

func main() {
	configs.LoadEnv()
	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}

	host, _ := os.Hostname()
	logger.InitRollbar(cfg.RollbarToken, cfg.Env, host)
	defer logger.Flush()

	// 🔌 DB connect + pool (+ migrasi opsional)
	db, err := database.ConnectDB(cfg.DB)
	if err != nil {
		log.Fatalf("[DB] %v", err)
	}
	database.TunePool(db)
	if cfg.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.Fatalf("[DB] migrate: %v", err)
		}
	}

	// ⏱ scheduler setelah DB siap
	schedLog := logger.New("QUIZ-SCHED")
	loc := dbtime.LoadDisplayLocation(cfg.Scheduler.DisplayTimezone)

	dispatcher := nservice.NewDispatcher(nrepo.NewGormNotificationStore(db), logger.New("NOTIF"))
	lifecycle := scheduler.NewLifecycle(quizrepo.NewGormQuizStore(db), dispatcher, cfg.Scheduler.AttendanceWindow, schedLog, loc)
	reaper := authsched.NewSessionReaper(authrepo.NewGormSessionStore(db), cfg.Scheduler.SessionIdleTimeout, logger.New("SESSION-REAPER"))

	opts := []scheduler.Option{scheduler.WithLogger(schedLog)}
	var runLock *scheduler.RedisRunLock
	if cfg.Scheduler.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		runLock, err = scheduler.NewRedisRunLock(ctx, cfg.Scheduler.RedisURL, cfg.Scheduler.LockKey, cfg.Scheduler.LockTTL, schedLog)
		cancel()
		if err != nil {
			log.Fatalf("[REDIS] %v", err)
		}
		opts = append(opts, scheduler.WithRunLock(runLock))
		log.Printf("[REDIS] tick lock %q ttl=%s", cfg.Scheduler.LockKey, cfg.Scheduler.LockTTL)
	}

	driver := scheduler.NewDriver(cfg.Scheduler, scheduler.NewPipeline(lifecycle, reaper), opts...)
	if cfg.Scheduler.Enabled {
		if err := driver.Start(); err != nil {
			log.Fatalf("[QUIZ-SCHED] %v", err)
		}
	} else {
		log.Println("[QUIZ-SCHED] timer disabled (SCHEDULER_ENABLED=false), manual trigger only")
	}

	app := fiber.New(fiber.Config{
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
		ErrorHandler:          helper.FiberErrorHandler,
		ProxyHeader:           fiber.HeaderXForwardedFor,
	})
	middlewares.SetupMiddlewares(app, configs.GetEnv("CORS_ALLOW_ORIGINS"), cfg.Scheduler.DisplayTimezone)

	// ✅ Routes
	routes.SetupRoutes(app, routes.Deps{
		DB:        db,
		Scheduler: driver,
		JWTSecret: cfg.JWTSecret,
		Env:       cfg.Env,
	})

	// 🔒 Keep-Alive & timeout koneksi server
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 75 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	go func() {
		log.Printf("✅ Listening on :%s", cfg.Port)
		if err := app.Listen("0.0.0.0:" + cfg.Port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown: HTTP, lalu tunggu tick yang sedang jalan, lalu tutup pool DB
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = app.ShutdownWithContext(ctx)
	cancel()

	select {
	case <-driver.Stop().Done():
		log.Println("[QUIZ-SCHED] stopped")
	case <-time.After(cfg.Scheduler.TickTimeout + 5*time.Second):
		log.Println("[QUIZ-SCHED] stop timed out, exiting with a tick in flight")
	}

	if runLock != nil {
		_ = runLock.Close()
	}
	database.Close(db)
}
