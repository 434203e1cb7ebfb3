package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/terraincognita07/telecare/internal/api"
	"github.com/terraincognita07/telecare/internal/cli"
	"github.com/terraincognita07/telecare/internal/config"
	"github.com/terraincognita07/telecare/internal/db"
	"github.com/terraincognita07/telecare/internal/logger"
	"github.com/terraincognita07/telecare/internal/metrics"
	"github.com/terraincognita07/telecare/internal/realtime"
	"github.com/terraincognita07/telecare/internal/services"
	"github.com/terraincognita07/telecare/internal/tracing"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const usage = "usage: telecare [reset-password <email>]"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if len(args) == 0 {
		return serve(ctx, cfg, log)
	}
	switch args[0] {
	case "reset-password":
		if len(args) != 2 {
			return errors.New(usage)
		}
		return cli.RunResetPasswordCommand(ctx, cfg.Database, args[1], out, log)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	tracerProvider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing init failed: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	database, err := db.Open(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			log.Warn("database close failed", zap.Error(err))
		}
	}()

	if err := bootstrapAdmin(ctx, database, cfg.Auth, log); err != nil {
		return err
	}

	collector := metrics.NewCollector("telecare")
	hub := realtime.NewHub(collector.RealtimeDelivered, collector.RealtimeDropped, log)
	defer hub.Close()

	publisher := realtime.MultiPublisher{hub}
	if cfg.Kafka.Enabled() {
		kafkaPublisher := realtime.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				log.Warn("kafka writer close failed", zap.Error(err))
			}
		}()
		publisher = append(publisher, kafkaPublisher)
		log.Info("kafka event fan-out enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	handler, err := api.NewHandler(database, api.Options{
		SecretKey: cfg.Auth.SecretKey,
		TokenTTL:  cfg.Auth.TokenTTL,
		Hub:       hub,
		Publisher: publisher,
		Metrics:   collector,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}

	app := newApp(cfg.Server, handler, log)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		hub.Close()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("telecare listening",
		zap.String("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("tracing", cfg.Tracing.Enabled),
	)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	log.Info("telecare stopped")
	return nil
}

func newApp(server config.ServerConfig, handler *api.Handler, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Telecare",
		DisableStartupMessage: true,
		ErrorHandler:          api.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: server.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/ws"
		},
	}))
	app.Use(handler.RequestLogger)
	app.Use(api.NewIPRateLimiter(server.RateLimitRPS, server.RateLimitBurst).Middleware())

	api.RegisterRoutes(app, handler)
	return app
}

func bootstrapAdmin(ctx context.Context, database *gorm.DB, auth config.AuthConfig, log *zap.Logger) error {
	setup := services.NewSetupService(db.NewRepositories(database).Users, log)
	if _, err := setup.EnsureAdmin(ctx, auth.AdminEmail, auth.AdminPassword); err != nil {
		return fmt.Errorf("admin bootstrap failed: %w", err)
	}
	return nil
}
