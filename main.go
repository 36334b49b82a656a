package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AngelAdrianVR/WashApp/config"
	"github.com/AngelAdrianVR/WashApp/internal/consumer"
	"github.com/AngelAdrianVR/WashApp/internal/handler"
	"github.com/AngelAdrianVR/WashApp/internal/jobs"
	"github.com/AngelAdrianVR/WashApp/internal/lock"
	"github.com/AngelAdrianVR/WashApp/internal/middleware"
	"github.com/AngelAdrianVR/WashApp/internal/repository"
	"github.com/AngelAdrianVR/WashApp/internal/scheduling"
	"github.com/AngelAdrianVR/WashApp/internal/service"
	"github.com/AngelAdrianVR/WashApp/pkg/database"
	"github.com/AngelAdrianVR/WashApp/pkg/logger"
	"github.com/AngelAdrianVR/WashApp/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const catalogQueue = "booking-service.catalog"

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		stdlog.Fatalf("failed to init logger: %v", err)
	}
	defer log.Sync()

	// Both were validated by config.Load.
	hours, _ := cfg.Hours()
	loc, _ := cfg.Location()

	db, err := database.NewPostgresDB(cfg.DSN(), log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	// RabbitMQ: booking events out, catalog sync in
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, log)
	if err != nil {
		log.Fatal("failed to connect publisher to RabbitMQ", zap.Error(err))
	}
	defer publisher.Close()

	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, catalogQueue, "catalog.service.*", "catalog.user.*")
	if err != nil {
		log.Fatal("failed to connect consumer to RabbitMQ", zap.Error(err))
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		log.Fatal("failed to start consuming", zap.Error(err))
	}
	log.Info("consuming catalog updates", zap.String("queue", mqConsumer.Queue()))

	var locker lock.Locker = lock.Noop{}
	if cfg.RedisAddr != "" {
		redisLock, err := lock.NewRedisLock(cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, relying on database locks only", zap.Error(err))
		} else {
			defer redisLock.Close()
			locker = redisLock
		}
	}

	// Repositories
	serviceRepo := repository.NewServiceRepository(db)
	userRepo := repository.NewUserRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	// Scheduling core
	resolver := scheduling.NewResolver(scheduling.FirstFit{})
	slots := scheduling.NewSlotEnumerator(hours, loc, resolver, nil)

	// Services
	bookingSvc := service.NewBookingService(service.BookingServiceDeps{
		Tx:        repository.NewTransactor(db),
		Bookings:  bookingRepo,
		Services:  serviceRepo,
		Users:     userRepo,
		Slots:     slots,
		Resolver:  resolver,
		Locker:    locker,
		Publisher: publisher,
		Logger:    log,
	})
	availabilitySvc := service.NewAvailabilityService(userRepo, bookingRepo, slots)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogConsumer := consumer.NewCatalogConsumer(serviceRepo, userRepo, log)
	catalogConsumer.Start(ctx, msgs)

	reminders := jobs.NewReminderJob(bookingRepo, publisher, loc, nil, log)
	if err := reminders.Start(cfg.ReminderCron); err != nil {
		log.Fatal("failed to schedule reminders", zap.Error(err))
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(middleware.RequestLogger(log))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "booking-service"})
	})

	api := e.Group("/api/v1", middleware.JWTAuth(cfg.JWTSecret))
	handler.NewCatalogHandler(serviceRepo).RegisterRoutes(api)
	handler.NewBookingHandler(bookingSvc, availabilitySvc).RegisterRoutes(api)

	go func() {
		log.Info("booking service starting", zap.String("port", cfg.ServerPort))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	reminders.Stop(shutdownCtx)

	select {
	case <-catalogConsumer.Done():
	case <-time.After(5 * time.Second):
		log.Warn("catalog consumer did not stop in time")
	}
}
