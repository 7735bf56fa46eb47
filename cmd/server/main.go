package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"terminal_bridge/internal/broker"
	"terminal_bridge/internal/broker/gateway"
	"terminal_bridge/internal/broker/simulated"
	"terminal_bridge/internal/cache"
	"terminal_bridge/internal/config"
	"terminal_bridge/internal/handlers"
	"terminal_bridge/internal/logger"
	"terminal_bridge/internal/registry"
	"terminal_bridge/internal/services"
	"terminal_bridge/internal/session"
	"terminal_bridge/internal/sync"
	"terminal_bridge/internal/terminal"
)

// App holds the long-lived components that need an orderly shutdown.
type App struct {
	config    *config.Config
	router    *handlers.Router
	server    *http.Server
	scheduler *sync.Scheduler
	terminal  *terminal.Manager
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
		JSON:       cfg.LogJSON,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	app, err := newApp(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	app.run()
}

func newApp(cfg *config.Config) (*App, error) {
	reg, err := registry.New(cfg.Accounts)
	if err != nil {
		return nil, err
	}

	var enc *broker.Encryptor
	if cfg.EncryptionSecret != "" {
		if enc, err = broker.NewEncryptor(cfg.EncryptionSecret); err != nil {
			return nil, err
		}
	}

	var term broker.Terminal
	credentials := cfg.Credentials
	if cfg.DemoMode {
		term = simulated.Seed(reg.All(), time.Now())
		// Simulated accounts accept any password
		credentials = map[string]config.CredentialConfig{}
		for _, acc := range reg.All() {
			credentials[acc.CredentialRef] = config.CredentialConfig{Server: "Demo-Server"}
		}
		enc = nil
	} else {
		term = gateway.NewClient(cfg.GatewayURL)
	}

	creds, err := broker.NewCredentialStore(credentials, cfg.TerminalServer, enc)
	if err != nil {
		return nil, err
	}

	conn := terminal.NewManager(term)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.LoginTimeout)
	if err := conn.Initialize(ctx); err != nil {
		// The broker retries initialization on every session request
		log.WithError(err).Warn("[Terminal] Not available at startup, continuing")
	}
	cancel()

	sessions := session.NewBroker(term, conn, cfg.LoginTimeout)
	accountCache := cache.New()
	syncService := sync.NewService(reg, creds, sessions, accountCache, cfg.InterAccountDelay, cfg.CycleHistorySize)
	scheduler := sync.NewScheduler(syncService, cfg.WarmupDelay, cfg.RefreshInterval)

	deps := handlers.NewDependencies().
		WithQueryService(services.NewQueryService(reg, accountCache)).
		WithTradeService(services.NewTradeHistoryService(reg, creds, sessions, cfg.HistoryDays)).
		WithHealthReporter(services.NewHealthReporter(conn, sessions, reg, accountCache, scheduler, syncService, cfg.Version)).
		WithScheduler(scheduler).
		WithSyncService(syncService)

	router := handlers.NewRouter(deps, handlers.RouterOptions{CORSOrigins: cfg.CORSOrigins})

	// WriteTimeout covers a trade request queued behind a full refresh cycle
	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.WithFields(log.Fields{
		"accounts":    reg.Len(),
		"demo":        cfg.DemoMode,
		"gateway_url": cfg.GatewayURL,
		"interval":    cfg.RefreshInterval,
	}).Info("Terminal bridge configured")

	return &App{
		config:    cfg,
		router:    router,
		server:    server,
		scheduler: scheduler,
		terminal:  conn,
	}, nil
}

func (app *App) run() {
	if err := app.scheduler.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Start server in goroutine
	go func() {
		log.Infof("Server starting on http://%s", app.config.Address())
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	app.scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	app.router.Close()
	if err := app.terminal.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("[Terminal] Shutdown failed")
	}

	log.Info("Server stopped")
}
