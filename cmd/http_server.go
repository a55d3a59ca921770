package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/platformkit/user-management/internal"
	"github.com/platformkit/user-management/internal/auth"
	authPostgres "github.com/platformkit/user-management/internal/auth/postgres"
	"github.com/platformkit/user-management/internal/core/events"
	"github.com/platformkit/user-management/internal/role"
	rolePostgres "github.com/platformkit/user-management/internal/role/postgres"
	"github.com/platformkit/user-management/internal/transport/rest"
	"github.com/platformkit/user-management/internal/transport/swagger"
	"github.com/platformkit/user-management/internal/user"
	userPostgres "github.com/platformkit/user-management/internal/user/postgres"
	"github.com/platformkit/user-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config      *internal.Config
	DB          *sqlx.DB
	Router      *chi.Mux
	AuthHandler *auth.Handler
	RBAC        *auth.RBACAuthorization
	UserHandler *user.Handler
	RoleHandler *role.Handler
	Logger      *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.AuthHandler, deps.RBAC,
		deps.UserHandler, deps.RoleHandler, deps.Config.Server.AllowedOrigins, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	// a broken API document should fail the boot, not the first UI visit
	if err := swagger.ValidateSpec(context.Background(), "./api/openapi.yml"); err != nil {
		return nil, fmt.Errorf("openapi spec: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over pgx pool: %w", err)
	}

	codec, err := auth.NewTokenCodec(&config.Security)
	if err != nil {
		return nil, fmt.Errorf("failed to build token codec: %w", err)
	}

	authRepo := authPostgres.NewRepository(gdb)
	authService := auth.NewService(authRepo, authRepo, codec, config.Security.BCryptCost, lg)
	authHandler := auth.NewHandler(authService)
	rbac := auth.NewRBACAuthorization(authService, lg)

	bus := events.NewEventBus(lg)
	registerEventHandlers(bus, lg)

	userRepo := userPostgres.NewRepository(gdb)
	userService := user.NewService(userRepo, authService, bus, lg)
	userHandler := user.NewHandler(userService)

	roleRepo := rolePostgres.NewRepository(gdb)
	roleService := role.NewService(roleRepo, lg)
	roleHandler := role.NewHandler(roleService)

	return &Dependencies{
		Config:      config,
		DB:          db,
		Router:      chi.NewRouter(),
		AuthHandler: authHandler,
		RBAC:        rbac,
		UserHandler: userHandler,
		RoleHandler: roleHandler,
		Logger:      lg,
	}, nil
}

// registerEventHandlers wires the lifecycle notifications. The welcome
// handler stands in for the outbound mailer; it runs in-process on the
// same bus the worker command consumes.
func registerEventHandlers(bus *events.EventBus, lg *slog.Logger) {
	bus.Subscribe(events.EventUserCreated, func(ctx context.Context, event events.Event) error {
		lg.Info("sending welcome notification",
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	})

	bus.Subscribe(events.EventUserDeactivated, func(ctx context.Context, event events.Event) error {
		lg.Info("user deactivated, sessions will expire with their tokens",
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	})
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
