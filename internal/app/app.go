package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	temporalsdkclient "go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/backup"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/clients/redis"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/db"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/events"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/http"
	httpH "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/http/handlers"
	httpMW "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/http/middleware"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/observability"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/services"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/temporalx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/temporalx/backupjob"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Roles    *access.RoleTable
	Repos    *repos.Set
	Files    filestore.Store
	Events   events.Publisher
	Services *services.Services
	Backup   backup.Service
	Runs     backupjob.Service
	Server   *http.Server

	temporal     temporalsdkclient.Client
	worker       *temporalworker.Runner
	dbService    *db.Service
	bus          redis.EventBus
	otelShutdown func(context.Context) error
}

// LoadEnv reads .env (or ENV_FILE) when present. Existing variables win.
func LoadEnv() {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}

func newLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// New wires everything the server and the CLIs share. Temporal is optional:
// without TEMPORAL_ADDRESS backup runs execute inline.
func New(ctx context.Context) (*App, error) {
	LoadEnv()
	log, err := newLogger()
	if err != nil {
		return nil, err
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	a := &App{Log: log, Cfg: cfg}

	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})

	if a.Roles, err = access.LoadRoleTable(log); err != nil {
		a.Close()
		return nil, fmt.Errorf("load role table: %w", err)
	}

	if a.dbService, err = db.NewService(log); err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := a.dbService.AutoMigrateAll(); err != nil {
		a.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	a.DB = a.dbService.DB()

	pool, err := resolveBlobPool(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Events = events.NewLogPublisher(log)
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		bus, err := redis.NewEventBus(log)
		if err != nil {
			log.Warn("Redis event bus unavailable; events go to the log", "error", err)
		} else {
			a.bus = bus
			a.Events = bus
		}
	}

	a.Repos = repos.NewSet(a.DB, log)
	a.Files = filestore.NewStore(a.Repos.Files, pool, log)
	a.Services = services.New(a.DB, log, a.Repos, a.Files, a.Events)
	a.Backup = backup.NewService(a.DB, log, a.Repos, a.Files, a.Events, nil)

	acts := &backupjob.Activities{
		Log:    log.With("component", "BackupRunActivities"),
		DB:     a.DB,
		Runs:   a.Repos.BackupRuns,
		Backup: a.Backup,
		Files:  a.Files,
	}
	if a.temporal, err = temporalx.NewClient(log); err != nil {
		a.Close()
		return nil, fmt.Errorf("init temporal client: %w", err)
	}
	tcfg := temporalx.LoadConfig()
	a.Runs = backupjob.NewService(log, a.temporal, tcfg.TaskQueue, a.Repos.Activities, acts)
	if a.temporal != nil && cfg.RunWorker {
		if a.worker, err = temporalworker.NewRunner(log, a.temporal, acts); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Server = http.NewServer(a.routerConfig())
	return a, nil
}

func (a *App) routerConfig() http.RouterConfig {
	a.Log.Info("Wiring handlers...")
	svc := a.Services
	return http.RouterConfig{
		Log:               a.Log,
		ServiceName:       a.Cfg.ServiceName,
		CORSOrigins:       a.Cfg.CORSOrigins,
		AuthMiddleware:    httpMW.NewAuthMiddleware(a.Log, a.Roles, a.Cfg.JWTSecretKey),
		HealthHandler:     httpH.NewHealthHandler(a.DB),
		ActivityHandler:   httpH.NewActivityHandler(svc.Activities, svc.View),
		StructureHandler:  httpH.NewStructureHandler(svc.Sections, svc.Items),
		ResponseHandler:   httpH.NewResponseHandler(a.Log, svc.Responses, a.Cfg.MaxUploadBytes),
		EvaluationHandler: httpH.NewEvaluationHandler(svc.Evaluations, svc.Completion),
		BackupHandler:     httpH.NewBackupHandler(a.Backup, a.Runs, a.Cfg.MaxArchiveBytes),
	}
}

// Run serves HTTP and, when configured, the Temporal worker until ctx is
// done or either fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	if a.worker != nil {
		g.Go(func() error {
			if err := a.worker.Start(gctx); err != nil {
				return fmt.Errorf("temporal worker: %w", err)
			}
			<-gctx.Done()
			return nil
		})
	}
	g.Go(func() error {
		addr := ":" + strings.TrimPrefix(a.Cfg.Port, ":")
		a.Log.Info("Starting HTTP server", "addr", addr)
		return a.Server.Run(gctx, addr)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.temporal != nil {
		a.temporal.Close()
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
