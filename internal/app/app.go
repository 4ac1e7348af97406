// Package app wires every component together and owns the startup
// routine.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tubearchivist/internal/cfg"
	"tubearchivist/internal/config"
	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/domain/keys"
	"tubearchivist/internal/downloads"
	"tubearchivist/internal/es"
	"tubearchivist/internal/es/backup"
	"tubearchivist/internal/es/index"
	"tubearchivist/internal/es/snapshot"
	"tubearchivist/internal/extractor"
	"tubearchivist/internal/file"
	"tubearchivist/internal/importer"
	"tubearchivist/internal/kv"
	"tubearchivist/internal/notify"
	"tubearchivist/internal/pipeline"
	"tubearchivist/internal/playlists"
	"tubearchivist/internal/queue"
	"tubearchivist/internal/reindex"
	"tubearchivist/internal/release"
	"tubearchivist/internal/scraper"
	"tubearchivist/internal/subscriptions"
	"tubearchivist/internal/tasks"
	"tubearchivist/internal/thumbnails"
	"tubearchivist/internal/urlparser"
	"tubearchivist/internal/utils/logging"
	"tubearchivist/internal/watched"
)

// App bundles the fully wired components.
type App struct {
	Env       *cfg.EnvConfig
	KV        *kv.Store
	Conn      *es.Connection
	AppConfig *config.AppConfig
	ConfigMgr *config.Manager

	Extractor  *extractor.Extractor
	CookieJar  *extractor.CookieJar
	Parser     *urlparser.Parser
	Queue      *queue.PendingQueue
	Pipeline   *pipeline.Pipeline
	Scanner    *subscriptions.Scanner
	SubMgr     *subscriptions.Manager
	Worker     *downloads.Worker
	Reindexer  *reindex.Reindexer
	Importer   *importer.Importer
	Thumbnails *thumbnails.Validator
	Playlists  *playlists.Custom
	Watched    *watched.Tracker
	Notifier   *notify.Notifier
	Release    *release.Checker
	IndexMgr   *index.Manager
	Snapshots  *snapshot.Manager
	Backups    *backup.Manager
	Registry   *tasks.Registry
	Runner     *tasks.Runner
	Scheduler  *tasks.Scheduler
}

// New connects the stores and builds every component.
func New(ctx context.Context, env *cfg.EnvConfig) (*App, error) {
	kvs, err := kv.NewStore(env.RedisCon, env.RedisNamespace)
	if err != nil {
		return nil, err
	}
	if err := kvs.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}

	conn := es.NewConnection(env.ESURL, env.ESUser, env.ESPassword)

	configMgr := config.NewManager(conn)
	// Components share this snapshot by pointer. Startup refreshes it
	// from the store once the indices exist.
	appCfg := config.Defaults()

	jar := extractor.NewCookieJar(kvs, env.CacheDir)
	ex := extractor.New(filepath.Join(env.CacheDir, consts.CacheDownload), jar)
	ex.Tokens = kvs
	ex.PotProviderURL = env.PotProviderURL

	resolver, err := scraper.NewHandleResolver()
	if err != nil {
		return nil, err
	}
	parser := urlparser.New(resolver, kvs)

	q := queue.New(conn)
	pipe := pipeline.New(conn, q, ex, appCfg, env.Location)

	backups := backup.NewManager(conn, env.CacheDir, consts.AllIndexes[:])
	manifest, err := loadManifest(env)
	if err != nil {
		return nil, err
	}
	indexMgr := index.NewManager(conn, manifest, func(ctx context.Context, reason string) error {
		_, err := backups.Run(ctx, reason)
		return err
	})

	notifier := notify.New(conn)
	registry := tasks.NewRegistry()
	runner := tasks.NewRunner(kvs, registry, notifier, 4)
	scheduler := tasks.NewScheduler(conn, runner, env.Location, env.TZName)

	a := &App{
		Env:        env,
		KV:         kvs,
		Conn:       conn,
		AppConfig:  appCfg,
		ConfigMgr:  configMgr,
		Extractor:  ex,
		CookieJar:  jar,
		Parser:     parser,
		Queue:      q,
		Pipeline:   pipe,
		Scanner:    subscriptions.NewScanner(conn, ex, appCfg, pipe),
		SubMgr:     subscriptions.NewManager(conn, ex, appCfg),
		Worker:     downloads.NewWorker(conn, kvs, q, ex, appCfg, env),
		Reindexer:  reindex.New(conn, kvs, ex, appCfg, env),
		Importer:   importer.New(conn, ex, appCfg, env),
		Thumbnails: thumbnails.NewValidator(conn, env),
		Playlists:  playlists.NewCustom(conn),
		Watched:    watched.NewTracker(conn, kvs),
		Notifier:   notifier,
		Release:    release.NewChecker(kvs),
		IndexMgr:   indexMgr,
		Snapshots:  snapshot.NewManager(conn, env.SnapshotDir, env.Location, consts.AllIndexes[:]),
		Backups:    backups,
		Registry:   registry,
		Runner:     runner,
		Scheduler:  scheduler,
	}
	a.registerTasks()
	return a, nil
}

// loadManifest prefers an operator-provided mapping file in the app
// dir, falling back to the embedded default.
func loadManifest(env *cfg.EnvConfig) (*index.Manifest, error) {
	path := filepath.Join(env.AppDir, "es_index_mapping.json")
	if file.Exists(path) {
		return index.LoadManifest(path)
	}
	return index.DefaultManifest()
}

// Startup runs the boot sequence: cache layout, stale state cleanup,
// store migrations, snapshot setup and the release check. A migration
// failure holds the process for a while so operators can read the
// logs, then surfaces the error.
func (a *App) Startup(ctx context.Context) error {
	for _, dir := range consts.CacheDirs {
		if err := os.MkdirAll(filepath.Join(a.Env.CacheDir, dir), 0o755); err != nil {
			return err
		}
	}
	if err := file.ClearDir(filepath.Join(a.Env.CacheDir, consts.CacheDownload)); err != nil {
		logging.W("startup: clearing download cache: %v", err)
	}

	if err := a.Runner.StartupCleanup(ctx); err != nil {
		return err
	}

	if err := a.IndexMgr.Migrate(ctx); err != nil {
		logging.E("startup: index migration failed, holding for log review: %v", err)
		select {
		case <-time.After(consts.FatalStartupDelay):
		case <-ctx.Done():
		}
		return fmt.Errorf("index migration: %w", err)
	}

	stored, err := a.ConfigMgr.Load(ctx)
	if err != nil {
		return fmt.Errorf("load app config: %w", err)
	}
	*a.AppConfig = *stored

	if a.Env.EnableSnapshot && a.AppConfig.Application.EnableSnapshot {
		if err := a.Snapshots.Setup(ctx); err != nil {
			logging.E("startup: snapshot setup failed: %v", err)
		}
	}

	if err := a.Scheduler.SyncTimezone(ctx); err != nil {
		logging.E("startup: schedule timezone sync failed: %v", err)
	}

	if _, err := a.Release.Check(ctx); err != nil {
		logging.W("startup: release check failed: %v", err)
	}

	logging.S("startup complete, media at %s, cache at %s", a.Env.MediaDir, a.Env.CacheDir)
	return nil
}

// EnqueueRefs validates raw URL input and parks the parsed refs for
// the extraction task.
func (a *App) EnqueueRefs(ctx context.Context, raw string, opts pipeline.ParseOpts) ([]string, error) {
	refs, err := a.Parser.Parse(ctx, raw)
	if err != nil {
		return nil, err
	}

	rq := a.KV.Queue(keys.DLQueueID)
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if err := rq.Add(ctx, encodeRef(ref, opts)); err != nil {
			return nil, err
		}
		ids = append(ids, ref.ID)
	}

	if _, err := a.Runner.Start(ctx, tasks.TaskExtractDownload); err != nil {
		return nil, err
	}
	return ids, nil
}

// EnqueueSubscribe parks parsed refs for the subscription task and
// starts it.
func (a *App) EnqueueSubscribe(ctx context.Context, raw string, subscribe bool) error {
	refs, err := a.Parser.Parse(ctx, raw)
	if err != nil {
		return err
	}

	rq := a.KV.Queue(keys.SubscribeQueue)
	for _, ref := range refs {
		if err := rq.Add(ctx, encodeSubscribeRef(ref, subscribe)); err != nil {
			return err
		}
	}

	name := tasks.TaskSubscribeTo
	if !subscribe {
		name = tasks.TaskUnsubscribe
	}
	_, err = a.Runner.Start(ctx, name)
	return err
}

// Close releases the store connections.
func (a *App) Close() {
	a.Runner.Wait()
	if err := a.KV.Close(); err != nil {
		logging.W("closing redis: %v", err)
	}
}
