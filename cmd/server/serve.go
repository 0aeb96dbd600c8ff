package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/iliyamo/habit-tracker/internal/config"
	"github.com/iliyamo/habit-tracker/internal/database"
	"github.com/iliyamo/habit-tracker/internal/dates"
	"github.com/iliyamo/habit-tracker/internal/handler"
	"github.com/iliyamo/habit-tracker/internal/logger"
	"github.com/iliyamo/habit-tracker/internal/middleware"
	"github.com/iliyamo/habit-tracker/internal/queue"
	"github.com/iliyamo/habit-tracker/internal/repository"
	"github.com/iliyamo/habit-tracker/internal/router"
	"github.com/iliyamo/habit-tracker/internal/service"
)

var (
	serveConsume bool
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Examples:
  habits serve
  habits serve --migrate
  habits serve --consume   # also append habit.logged events to the activity log`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveConsume, "consume", false, "run the habit.logged activity consumer alongside the API")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending schema migrations before serving")
}

// setup loads configuration, initialises logging and opens the database.
func setup() (config.Config, *sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Dir: cfg.LogDir, Format: cfg.LogFormat}); err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.Open(database.Options{
		User:     cfg.DBUser,
		Pass:     cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, db, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveMigrate {
		n, err := database.Migrate(ctx, db)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("schema up to date", "applied", n)
	}

	policy := dates.UseToday
	if cfg.PartialDatePolicy == config.PartialDateReject {
		policy = dates.Reject
	}
	normalizer, err := dates.NewNormalizer(cfg.Timezone, policy)
	if err != nil {
		return err
	}

	var events service.EventPublisher
	if cfg.EventsEnabled {
		events = service.NewAMQPPublisher(cfg.AMQPURL)
	}

	habitRepo := repository.NewHabitRepo(db)
	logRepo := repository.NewHabitLogRepo(db)
	userRepo := repository.NewUserRepo(db)

	habits := service.NewHabitService(habitRepo, logRepo, normalizer, events)
	users := service.NewUserService(userRepo, logRepo, normalizer)

	var limiter echo.MiddlewareFunc
	if rl := config.LoadRateLimitConfig(); rl.Enabled {
		rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
		if err != nil {
			logger.Warn("rate limiting disabled", "error", err)
		} else {
			defer rdb.Close()
			limiter = middleware.NewRateLimiter(rl, rdb)
		}
	}

	if serveConsume {
		activity := logger.NewRotatingFile(cfg.ActivityLogPath)
		defer activity.Close()
		go func() {
			if err := queue.StartActivityConsumer(ctx, cfg.AMQPURL, activity); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("activity consumer stopped", "error", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			kv := []interface{}{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "request_id", v.RequestID}
			if v.Error != nil {
				logger.Warn("request", append(kv, "error", v.Error)...)
				return nil
			}
			logger.Info("request", kv...)
			return nil
		},
	}))

	router.RegisterRoutes(e,
		handler.NewHabitHandler(habits, cfg.RequestTimeout),
		handler.NewUserHandler(users, cfg.RequestTimeout),
		handler.NewVoiceHandler(habits, users, cfg.RequestTimeout),
		limiter)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env, "timezone", cfg.Timezone, "events", cfg.EventsEnabled)

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
