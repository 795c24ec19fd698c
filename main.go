package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/config"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/content"
	courseControllers "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/controllers/course"
	leadControllers "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/controllers/lead"
	sequenceControllers "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/controllers/sequence"
	userControllers "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/controllers/userControllers"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/database"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/mailer"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/progress"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/routers/courseRoutes"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/routers/leadRoutes"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/routers/sequenceRoutes"
	userProfileRoutes "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/routers/userRoutes"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/sequence"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/tagging"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/utils"
)

func main() {
	cfg := config.LoadConfig()

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	db, err := database.ConnectDb(cfg, logg)
	if err != nil {
		logg.Fatal("Failed to connect database", "error", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logg.Fatal("Invalid APP_TIMEZONE", "timezone", cfg.Timezone, "error", err)
	}

	mail, err := newMailer(cfg, logg)
	if err != nil {
		logg.Fatal("Failed to configure mailer", "error", err)
	}

	// Lifecycle events fan out to the sequence scheduler, lead tagging and
	// the certificate email.
	events := lifecycle.NewFanout(logg)
	tags := tagging.NewService(db, logg)
	scheduler := sequence.NewScheduler(db, mail, logg,
		sequence.WithLocation(loc),
		sequence.WithBatchSize(cfg.SequenceBatchSize),
		sequence.WithInactivityDays(cfg.NeverLoggedInDays, cfg.AbandonedLearningDays),
		sequence.WithSendTimeout(cfg.MailTimeout),
		sequence.WithEventSink(events),
	)
	events.Add(scheduler)
	events.Add(tags)
	events.Add(mailer.NewCertificateNotifier(db, mail, cfg.FrontendBaseURL, cfg.MailTimeout, logg))

	engine := progress.NewEngine(db, logg, progress.WithNotifier(events))
	importer := content.NewImporter(db, logg)

	jobs, err := utils.InitializeSequenceScheduler(cfg, scheduler, logg)
	if err != nil {
		logg.Fatal("Failed to initialize sequence scheduler", "error", err)
	}
	jobs.Start()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(fiberLogger.New(fiberLogger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	auth := middleware.JWTMiddleware(cfg.JWTKey)
	admin := []fiber.Handler{auth, middleware.RequireRole(db, models.RoleAdmin)}

	courseController := courseControllers.NewCourseController(engine, importer)
	courseRoutes.SetupCourseRoutes(app, courseController, auth)
	courseRoutes.SetupAdminCourseRoutes(app, courseController, admin...)
	sequenceRoutes.SetupSequenceRoutes(app, sequenceControllers.NewSequenceController(scheduler, events), admin...)
	leadRoutes.SetupLeadRoutes(app, leadControllers.NewLeadController(tags, events, logg), admin...)
	userProfileRoutes.SetupUserRoutes(app, userControllers.NewUserController(db, tags), auth)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logg.Info("Shutting down...")
		<-jobs.Stop().Done()
		_ = app.Shutdown()
	}()

	logg.Info("Server is running", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logg.Fatal("Server stopped", "error", err)
	}
}

func newMailer(cfg *config.Config, logg *logger.Logger) (mailer.Mailer, error) {
	switch cfg.MailProvider {
	case "", "console":
		return mailer.NewConsole(logg), nil
	case "sendgrid":
		return mailer.NewSendGrid(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFrom, cfg.MailTimeout), nil
	case "resend":
		return mailer.NewResend(cfg.ResendBaseURL, cfg.ResendAPIKey, cfg.MailFromName, cfg.MailFrom, cfg.MailTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported MAIL_PROVIDER %q", cfg.MailProvider)
	}
}
