// Package container wires the application graph: database, repositories,
// services, messaging and the HTTP server.
package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/elevix/approval-flow/internal/application/port"
	"github.com/elevix/approval-flow/internal/application/service"
	"github.com/elevix/approval-flow/internal/config"
	"github.com/elevix/approval-flow/internal/infrastructure/external/lark"
	"github.com/elevix/approval-flow/internal/infrastructure/notify"
	"github.com/elevix/approval-flow/internal/infrastructure/persistence/repository"
	"github.com/elevix/approval-flow/internal/infrastructure/persistence/sqlite"
	httpiface "github.com/elevix/approval-flow/internal/interfaces/http"
	"github.com/elevix/approval-flow/internal/report"
	"github.com/elevix/approval-flow/pkg/database"
)

// Container holds the assembled application
type Container struct {
	cfg    *config.Config
	logger *zap.Logger

	db     *database.DB
	txDB   *sqlite.DB
	server *httpiface.Server

	engine service.TransitionEngine
	ledger *service.LedgerService
	users  *repository.UserRepository
}

// New builds the full dependency graph from configuration
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	txDB := sqlite.NewDB(db.DB, logger)

	workflowRepo := repository.NewWorkflowRepository(txDB, logger)
	subjectRepo := repository.NewSubjectRepository(txDB, logger)
	routingRepo := repository.NewRoutingRepository(txDB, logger)
	ledgerRepo := repository.NewLedgerRepository(txDB, logger)
	userRepo := repository.NewUserRepository(txDB, logger)

	notifier := buildNotifier(cfg.Lark, logger)

	serviceLogger := &zapLoggerAdapter{logger: logger}

	routing := service.NewRoutingService(routingRepo, serviceLogger)
	ledger := service.NewLedgerService(ledgerRepo, txDB, serviceLogger)
	engine := service.NewTransitionEngine(
		workflowRepo,
		subjectRepo,
		routing,
		ledger,
		userRepo,
		notifier,
		serviceLogger,
	)

	exporter := report.NewExporter(logger)

	server := httpiface.NewServer(
		httpiface.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		engine,
		ledger,
		userRepo,
		exporter,
		serviceLogger,
	)

	return &Container{
		cfg:    cfg,
		logger: logger,
		db:     db,
		txDB:   txDB,
		server: server,
		engine: engine,
		ledger: ledger,
		users:  userRepo,
	}, nil
}

// buildNotifier picks the messaging backend. Without Lark credentials the
// log-only notifier keeps the engine's notification path exercised.
func buildNotifier(cfg config.LarkConfig, logger *zap.Logger) port.Notifier {
	larkCfg := lark.Config{AppID: cfg.AppID, AppSecret: cfg.AppSecret}
	if !larkCfg.Enabled() {
		logger.Warn("Lark credentials not set, notifications are log-only")
		return notify.NewLogNotifier(logger)
	}
	return lark.NewMessenger(lark.NewClient(larkCfg, logger), logger)
}

// Server returns the HTTP server
func (c *Container) Server() *httpiface.Server {
	return c.server
}

// Engine returns the transition engine
func (c *Container) Engine() service.TransitionEngine {
	return c.engine
}

// Close releases held resources
func (c *Container) Close() error {
	return c.db.Close()
}

// zapLoggerAdapter adapts zap.Logger to the service and http Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
