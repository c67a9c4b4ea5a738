package main

import (
	"alcyxob/health-tracker/internal/api"
	"alcyxob/health-tracker/internal/catalog"
	"alcyxob/health-tracker/internal/config"
	"alcyxob/health-tracker/internal/jobs"
	"alcyxob/health-tracker/internal/logging"
	"alcyxob/health-tracker/internal/metrics"
	"alcyxob/health-tracker/internal/repository/memory"
	"alcyxob/health-tracker/internal/repository/mongo"
	"alcyxob/health-tracker/internal/service"
	"alcyxob/health-tracker/internal/storage"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

// @title Health Tracker Plans API
// @version 1.0
// @description Training plan scheduling, progress tracking and plan maintenance.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
		LogFileName:   cfg.Log.File,
		MaxSizeMB:     cfg.Log.MaxSizeMB,
		MaxBackups:    cfg.Log.MaxBackups,
	})
	log.Info("starting health tracker plans server")
	if cfg.JWT.Secret == "" {
		log.Fatal("jwt.secret must be set")
	}

	// --- Repositories ---
	repos, closeDB, err := openRepositories(cfg.Database)
	if err != nil {
		log.Fatalf("could not open %s repositories: %v", cfg.Database.Driver, err)
	}
	defer closeDB()

	// --- Catalog ---
	if cfg.Catalog.SeedFile != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		_, err := catalog.NewSeeder(repos).SeedFile(ctx, cfg.Catalog.SeedFile)
		cancel()
		if err != nil {
			log.Fatalf("could not seed plan catalog: %v", err)
		}
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsManager := metrics.NewManager(registry)

	// --- Services ---
	reconcilerOpts := []service.ReconcilerOption{service.WithMetrics(metricsManager)}
	if cfg.S3.BucketName != "" {
		archive, err := storage.NewS3Archive(cfg.S3)
		if err != nil {
			log.Fatalf("could not initialize report archive: %v", err)
		}
		reconcilerOpts = append(reconcilerOpts, service.WithArchive(archive))
	}
	reconciler := service.NewReconciler(repos, reconcilerOpts...)

	var upsertReconciler *service.Reconciler
	if cfg.Reconcile.OnUpsert {
		upsertReconciler = reconciler
	}
	planService := service.NewPlanService(repos)
	scheduleService := service.NewScheduleService(repos, upsertReconciler, metricsManager)
	progressService := service.NewProgressService(repos)

	// --- Scheduled cleanup ---
	if cfg.Reconcile.Schedule != "" {
		job, err := jobs.NewCleanupJob(reconciler, cfg.Reconcile.Schedule, cfg.Reconcile.DryRun)
		if err != nil {
			log.Fatalf("could not schedule plan day cleanup: %v", err)
		}
		job.Start()
		defer job.Stop()
	}

	// --- HTTP ---
	router := gin.Default()
	api.SetupRoutes(router, cfg.JWT.Secret, api.Services{
		Plans:    planService,
		Schedule: scheduleService,
		Progress: progressService,
		Cleaner:  reconciler,
	}, registry)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("server listening on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen and serve: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}
	log.Info("server exiting")
}

// openRepositories wires the configured storage driver. The returned func
// releases its connections.
func openRepositories(cfg config.DatabaseConfig) (service.Repositories, func(), error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory storage; data is lost on exit")
		store := memory.NewStore()
		return service.Repositories{
			Templates:     store.Templates(),
			Weeks:         store.Weeks(),
			Days:          store.Days(),
			Prescriptions: store.Prescriptions(),
			Instances:     store.Instances(),
			Progress:      store.Progress(),
			Exercises:     store.Exercises(),
			Tx:            store.Transactor(),
		}, func() {}, nil

	case "mongo", "":
		client, err := mongo.ConnectDB(cfg.URI)
		if err != nil {
			return service.Repositories{}, nil, err
		}
		db := client.Database(cfg.Name)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			// Queries still work without indexes, only slower.
			log.WithError(err).Warn("failed to ensure some indexes")
		}

		closeFn := func() {
			if err := mongo.DisconnectDB(client); err != nil {
				log.WithError(err).Error("failed to disconnect MongoDB")
			}
		}
		return service.Repositories{
			Templates:     mongo.NewMongoTemplateRepository(db),
			Weeks:         mongo.NewMongoPlanWeekRepository(db),
			Days:          mongo.NewMongoPlanDayRepository(db),
			Prescriptions: mongo.NewMongoPrescriptionRepository(db),
			Instances:     mongo.NewMongoPlanInstanceRepository(db),
			Progress:      mongo.NewMongoProgressRepository(db),
			Exercises:     mongo.NewMongoExerciseRepository(db),
			Tx:            mongo.NewTransactor(client, cfg.Transactions),
		}, closeFn, nil

	default:
		return service.Repositories{}, nil, errors.New("unknown database driver " + cfg.Driver)
	}
}
