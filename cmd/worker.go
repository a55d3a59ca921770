package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/platformkit/user-management/internal/core/events"
	"github.com/platformkit/user-management/internal/user"
	userPostgres "github.com/platformkit/user-management/internal/user/postgres"
	"github.com/platformkit/user-management/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers such as the event bus consumer.`,
}

var eventWorkerCmd = &cobra.Command{
	Use:   "events",
	Short: "Start event bus worker",
	Long:  `Start the event bus and log every user lifecycle event it receives`,
	Run: func(cmd *cobra.Command, args []string) {
		startEventWorker()
	},
}

func startEventWorker() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	eventBus := events.NewEventBus(lg)

	for _, eventType := range []string{events.EventUserCreated, events.EventUserDeactivated, events.EventUserDeleted} {
		eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			lg.Info("received user lifecycle event",
				"event_id", event.EventID(),
				"event_type", event.EventType(),
				"payload", event.Payload())
			return nil
		})
	}

	lg.Info("event bus worker started. Waiting for events...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("received signal, shutting down event bus", "signal", sig)
	lg.Info("event bus shutdown complete")
}

var inactiveDays int

var cleanupWorkerCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Deactivate stale user accounts",
	Long:  `Deactivate accounts whose last sign-in is older than the inactivity window. Intended to run on a schedule.`,
	Run: func(cmd *cobra.Command, args []string) {
		runCleanupWorker()
	},
}

func runCleanupWorker() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init db: %v\n", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open gorm: %v\n", err)
		os.Exit(1)
	}

	svc := user.NewService(userPostgres.NewRepository(db), nil, nil, lg)

	window := time.Duration(inactiveDays) * 24 * time.Hour
	count, err := svc.CleanupInactive(context.Background(), window)
	if err != nil {
		lg.Error("cleanup failed", "error", err)
		os.Exit(1)
	}

	lg.Info("cleanup finished", "deactivated", count, "inactive_days", inactiveDays)
}

func init() {
	cleanupWorkerCmd.Flags().IntVar(&inactiveDays, "inactive-days", 90, "deactivate accounts idle for at least this many days")

	workerCmd.AddCommand(eventWorkerCmd)
	workerCmd.AddCommand(cleanupWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
