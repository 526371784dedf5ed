package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mescon/Dupearr/internal/api"
	"github.com/mescon/Dupearr/internal/config"
	"github.com/mescon/Dupearr/internal/db"
	"github.com/mescon/Dupearr/internal/eventbus"
	"github.com/mescon/Dupearr/internal/logger"
	"github.com/mescon/Dupearr/internal/metrics"
	"github.com/mescon/Dupearr/internal/notifier"
	"github.com/mescon/Dupearr/internal/services"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server with scheduled scans",
	Long: `Serve starts the REST API and WebSocket server, records run history in
the local database and optionally runs scheduled full scans on a cron
expression.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg := config.Get()
	logger.Init(cfg.LogDir)

	logger.Infof("========================================")
	logger.Infof("Dupearr %s starting", config.Version)
	logger.Infof("========================================")
	logger.Infof("Data directory: %s", cfg.DataDir)
	logger.Infof("Log level: %s", cfg.LogLevel)

	repo, err := db.NewRepository(cfg.DatabasePath)
	if err != nil {
		logger.Errorf("Failed to open database: %v", err)
		return err
	}
	logger.Infof("✓ Database ready: %s", cfg.DatabasePath)

	if err := repo.MigrateAPIKeyEncryption(); err != nil {
		logger.Warnf("API key encryption migration failed: %v", err)
	}

	// Environment or config.json keys win and are persisted; otherwise keys
	// stored through earlier runs are picked up from the settings table.
	for _, ck := range []struct {
		service string
		setting string
		key     *string
	}{
		{"Sonarr", db.SettingSonarrAPIKey, &cfg.Sonarr.APIKey},
		{"Radarr", db.SettingRadarrAPIKey, &cfg.Radarr.APIKey},
	} {
		resolved, err := repo.ResolveCatalogKey(ck.setting, *ck.key)
		if err != nil {
			logger.Warnf("%s API key not synced with settings: %v", ck.service, err)
		}
		*ck.key = resolved
	}

	bus := eventbus.NewEventBus()
	logger.Infof("✓ Event bus started")

	metricsService := metrics.NewMetricsService()
	metricsService.Start(bus)
	logger.Infof("✓ Metrics collector started")

	if len(cfg.NotifyURLs) > 0 {
		notifier.New(cfg.NotifyURLs).Start(bus)
		logger.Infof("✓ Notifications enabled (%d target(s))", len(cfg.NotifyURLs))
	}

	runner := services.NewRunner(cfg, repo, bus)

	scheduler := services.NewSchedulerService(runner)
	if err := scheduler.Start(cfg.ScanCron); err != nil {
		logger.Errorf("Invalid scan schedule %q: %v", cfg.ScanCron, err)
		return err
	}
	if cfg.ScanCron != "" {
		logger.Infof("✓ Scheduled scans enabled: %s (next run %s)",
			cfg.ScanCron, scheduler.NextRun().Format(time.RFC3339))
	}

	apiKey, err := api.EnsureAPIKey(repo)
	if err != nil {
		logger.Errorf("Failed to provision API key: %v", err)
		return err
	}
	if apiKey != "" {
		// Shown once; only the bcrypt hash is stored.
		logger.Infof("Generated API key: %s", apiKey)
		logger.Infof("Store it now, it will not be shown again")
	}

	server := api.NewRESTServer(api.ServerDeps{
		Repo:      repo,
		EventBus:  bus,
		Runner:    runner,
		Scheduler: scheduler,
		Metrics:   metricsService,
	})

	stopMaintenance := make(chan struct{})
	go maintenanceLoop(repo, cfg.RetentionDays, stopMaintenance)
	go checkpointLoop(repo, stopMaintenance)

	go func() {
		addr := ":" + cfg.Port
		logger.Infof("✓ API server listening on %s", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("Shutdown signal received")

	close(stopMaintenance)
	scheduler.Stop()
	bus.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("API server shutdown error: %v", err)
	}

	if err := repo.GracefulClose(); err != nil {
		logger.Errorf("Database close error: %v", err)
	}

	logger.Infof("Dupearr stopped")
	return nil
}

// maintenanceLoop prunes run history and compacts the database once a day at
// 03:00 local time.
func maintenanceLoop(repo *db.Repository, retentionDays int, stop <-chan struct{}) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			if err := repo.RunMaintenance(retentionDays); err != nil {
				logger.Errorf("Database maintenance failed: %v", err)
			}
		}
	}
}

// checkpointLoop folds the WAL back into the main database periodically so it
// does not grow unbounded between maintenance windows.
func checkpointLoop(repo *db.Repository, stop <-chan struct{}) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := repo.Checkpoint(); err != nil {
				logger.Warnf("WAL checkpoint failed: %v", err)
			}
		}
	}
}
