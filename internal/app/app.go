// Package app initializes and runs the sync engine daemon. It wires the
// local store, the remote clients and the orchestrator, handles graceful
// shutdown, and keeps the background triggers (connectivity, timer) running.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/modicscan/syncengine/internal/config"
	"github.com/modicscan/syncengine/internal/cryptox"
	"github.com/modicscan/syncengine/internal/logging"
	"github.com/modicscan/syncengine/internal/reconciler"
	"github.com/modicscan/syncengine/internal/remote/docs"
	"github.com/modicscan/syncengine/internal/remote/identity"
	"github.com/modicscan/syncengine/internal/remote/objstore"
	"github.com/modicscan/syncengine/internal/store"
	"github.com/modicscan/syncengine/internal/syncer"
	"github.com/modicscan/syncengine/internal/uploader"
)

// Slot names used when requesting sync runs. One slot per trigger source,
// so bursts from the same source collapse into a single queued run.
const (
	slotStartup      = "startup"
	slotConnectivity = "connectivity"
	slotPeriodic     = "periodic"
	slotManual       = "manual"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	store      *store.Store
	reconciler *reconciler.Service
	orch       *syncer.Orchestrator
	scheduler  *syncer.Scheduler
	watcher    *syncer.Watcher
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewJSONLogger(c.LogFile)

	st, err := store.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	provider := identity.NewHTTPProvider(c.IdentityBaseURL, c.IdentityAPIKey)
	docStore := docs.NewHTTPStore(c.DocsBaseURL, c.DocsAuthToken)

	objects, err := objstore.NewS3Storage(ctx, objstore.S3Config{
		Endpoint:  c.S3BaseEndpoint,
		Region:    c.S3Region,
		Bucket:    c.S3Bucket,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	guard := cryptox.NewGuard(cryptox.NewDerivedKeeper([]byte(c.AppSecret)))

	rec := reconciler.NewService(st, provider, docStore, guard, logger)
	proc := uploader.NewProcessor(st, objects, docStore, c.UploadsPerSecond, logger)
	orch := syncer.NewOrchestrator(st, rec, proc, docStore, logger)

	sched := syncer.NewScheduler(orch, time.Second, time.Minute, 5, logger)
	watcher := syncer.NewWatcher(provider, c.OnlineCheckInterval, func() {
		sched.Trigger(slotConnectivity, syncer.ScopeFull)
	}, logger)

	return &App{
		config:     c,
		logger:     logger,
		store:      st,
		reconciler: rec,
		orch:       orch,
		scheduler:  sched,
		watcher:    watcher,
	}, nil
}

// Reconciler exposes signup and login to the CLI layer.
func (app *App) Reconciler() *reconciler.Service {
	return app.reconciler
}

// Store exposes the local store, e.g. for status reporting.
func (app *App) Store() *store.Store {
	return app.store
}

// Online reports the connectivity state of the last probe.
func (app *App) Online() bool {
	return app.watcher.Online()
}

// TriggerSync requests a manual synchronization run.
func (app *App) TriggerSync(scope syncer.Scope) {
	app.scheduler.Trigger(slotManual, scope)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// rearm queues a startup run when the store still holds unsynced work from
// a previous session.
func (app *App) rearm(ctx context.Context) {
	counts, err := app.store.CountPending(ctx)
	if err != nil {
		app.logger.Error(ctx, "could not read pending counts", "error", err)
		return
	}
	if counts.Total() > 0 {
		app.logger.Info(ctx, "unsynced work found, queueing startup sync",
			"identities", counts.Identities, "records", counts.Records,
			"uploads", counts.Uploads, "signups", counts.Signups)
		app.scheduler.Trigger(slotStartup, syncer.ScopeFull)
	}
}

func (app *App) startPeriodicTrigger(ctx context.Context) {
	ticker := time.NewTicker(app.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			app.scheduler.Trigger(slotPeriodic, syncer.ScopeFull)
		case <-ctx.Done():
			return
		}
	}
}

// Run starts the daemon and blocks until the context is cancelled or a
// termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting sync engine",
		"dsn", app.config.DatabaseDSN, "sync_interval", app.config.SyncInterval)

	app.initSignalHandler(cancelFunc)
	app.rearm(ctx)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.scheduler.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.watcher.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startPeriodicTrigger(ctx)
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "store close error", "error", err)
	}
	app.logger.Info(ctx, "sync engine stopped")
}
