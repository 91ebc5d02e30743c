package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"table-session-bot/config"
	"table-session-bot/handlers"
	"table-session-bot/logging"
	"table-session-bot/middleware"
	"table-session-bot/services"
	"table-session-bot/storage"
	"table-session-bot/utils"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file to load before reading the environment")
	migrateOnly := flag.Bool("migrate-only", false, "create the schema and exit")
	checkSchema := flag.Bool("check-schema", false, "report missing tables and exit non-zero if any")
	flag.Parse()

	if err := run(*envFile, *migrateOnly, *checkSchema); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(envFile string, migrateOnly, checkSchema bool) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg)
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg, log)
	if err != nil {
		return err
	}
	defer storage.Close(db)

	if checkSchema {
		if missing := storage.MissingTables(db); len(missing) > 0 {
			return fmt.Errorf("missing tables: %s", strings.Join(missing, ", "))
		}
		log.Info("schema complete")
		return nil
	}
	if err := storage.Migrate(db); err != nil {
		return err
	}
	if migrateOnly {
		log.Info("schema migrated")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store utils.ObjectStore
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Client(ctx, cfg.R2)
		if err != nil {
			return err
		}
		store = r2
		log.WithField("bucket", cfg.R2.Bucket).Info("object storage enabled")
	} else {
		log.Warn("R2 settings incomplete, image upload and listing archive disabled")
	}

	users := services.NewUserService(db, log, cfg.StoreTimeout)
	tables := services.NewTableService(db, log, cfg.StoreTimeout)
	registrations := services.NewRegistrationService(db, log, cfg.StoreTimeout)
	publisher := services.NewPublishService(tables, registrations, users, store, cfg.Locale, log)

	if cfg.PublishCron != "" {
		if store == nil {
			log.Warn("[Scheduler] PUBLISH_CRON set but object storage disabled, scheduler not started")
		} else {
			sched, err := publisher.StartPublishScheduler(cfg.PublishCron)
			if err != nil {
				return fmt.Errorf("start publish scheduler: %w", err)
			}
			defer func() {
				if err := sched.Shutdown(); err != nil {
					log.WithError(err).Warn("[Scheduler] shutdown failed")
				}
			}()
		}
	}

	app := fiber.New(fiber.Config{
		AppName:               "table-session-bot",
		BodyLimit:             10 * 1024 * 1024, // cover images
		ErrorHandler:          handlers.ErrorHandler(log),
		DisableStartupMessage: true,
	})
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-User-ID",
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID",
		MaxAge:        86400,
	}))

	h := handlers.NewHandler(db, users, tables, registrations, publisher, store, log)
	handlers.SetupRoutes(app, h, cfg.ServiceToken)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Port)
	}()
	log.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"environment": cfg.Environment,
		"origins":     cfg.AllowedOrigins,
	}).Info("server running")

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Warn("shutdown incomplete")
	}
	return nil
}
