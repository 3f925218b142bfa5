package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	_ "gameserver_panel/docs"
	"gameserver_panel/internal/auth"
	"gameserver_panel/internal/config"
	"gameserver_panel/internal/controlapi"
	"gameserver_panel/internal/handlers"
	"gameserver_panel/internal/logger"
	"gameserver_panel/internal/metrics"
	"gameserver_panel/internal/repository"
	"gameserver_panel/internal/repository/db"
	"gameserver_panel/internal/server"
	"gameserver_panel/internal/service"
)

// @title        Game Server Panel API
// @version      1.0
// @description  Sign in, start/stop the game server and follow its status.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load configs/config.yml + PANEL_* env
	cfg, err := config.Load("configs", ".")
	if err != nil {
		log.Fatalw("error reading config", "err", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := openDB(cfg.Storage, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	providers, err := auth.BuildRegistry(ctx, cfg.Auth, log.Named("auth"))
	if err != nil {
		log.Fatalw("failed to init identity provider", "provider", cfg.Auth.Provider, "err", err)
	}
	verifier, err := auth.BuildVerifier(ctx, cfg.Auth)
	if err != nil {
		log.Fatalw("failed to init id token verifier", "err", err)
	}

	m := metrics.New()
	api := controlapi.NewClient(cfg.ControlAPI.Endpoint,
		controlapi.WithTimeout(cfg.ControlAPI.Timeout),
		controlapi.WithLogger(log.Named("controlapi")),
		controlapi.WithMetrics(m),
	)

	// wire dependencies
	services := service.NewService(service.Deps{
		Repos:     repository.NewRepository(conn),
		Providers: providers,
		Verifier:  verifier,
		API:       api,
		Session:   cfg.Session,
		Poll:      cfg.Poll,
		Metrics:   m,
		Log:       log,
	})
	apiHandler := handlers.NewHandler(services, log,
		handlers.WithMetricsHandler(m.Handler()),
		handlers.WithAllowedOrigins(cfg.CORS.AllowedOrigins),
	)

	// drop expired panel sessions until shutdown
	go services.Reaper.Run(ctx, cfg.Session.SweepInterval)

	log.Infow("panel_server_starting",
		"port", cfg.Port,
		"provider", providers.Default(),
		"control_api", api.Endpoint(),
		"verify_id_token", verifier != nil,
	)

	srv := server.New(cfg.Port, apiHandler.InitRoutes(), log)
	if err := srv.Run(ctx); err != nil {
		log.Fatalw("server stopped with error", "err", err)
	}
	log.Infow("panel_server_stopped")
}

// openDB initializes the SQLite database holding session state.
func openDB(cfg config.StorageConfig, log *logger.Logger) (*sql.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		log.Infow("storage.dsn not set in config; using in-memory database")
		dsn = db.MemoryDSN
	}
	return db.InitDB(dsn)
}
