package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tubearchivist/internal/domain/keys"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/es/backup"
	"tubearchivist/internal/models"
	"tubearchivist/internal/pipeline"
	"tubearchivist/internal/tasks"
	"tubearchivist/internal/utils/logging"
)

// defaultBackupRotate bounds rotation of scheduled backups when the
// schedule carries no rotate setting.
const defaultBackupRotate = 5

// queuedRef is the wire shape for refs parked in a KV queue between
// the HTTP handler and the task that consumes them.
type queuedRef struct {
	Ref       models.ParsedRef `json:"ref"`
	Status    string           `json:"status,omitempty"`
	AutoStart bool             `json:"auto_start"`
	Force     bool             `json:"force"`
	Subscribe bool             `json:"subscribe"`
}

func encodeRef(ref models.ParsedRef, opts pipeline.ParseOpts) string {
	raw, _ := json.Marshal(queuedRef{
		Ref:       ref,
		Status:    opts.Status,
		AutoStart: opts.AutoStart,
		Force:     opts.Force,
	})
	return string(raw)
}

func encodeSubscribeRef(ref models.ParsedRef, subscribe bool) string {
	raw, _ := json.Marshal(queuedRef{Ref: ref, Subscribe: subscribe})
	return string(raw)
}

// drainRefs pops every queued ref from the named KV queue.
func (a *App) drainRefs(ctx context.Context, queueName string) ([]queuedRef, error) {
	rq := a.KV.Queue(queueName)
	var out []queuedRef
	for {
		raw, err := rq.Next(ctx)
		if errors.Is(err, errs.ErrNotFound) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		var qr queuedRef
		if err := json.Unmarshal([]byte(raw), &qr); err != nil {
			logging.W("tasks: dropping undecodable queued ref: %v", err)
			continue
		}
		out = append(out, qr)
	}
}

// registerTasks binds every task name to its handler.
func (a *App) registerTasks() {
	reg := []*tasks.Definition{
		{
			Name: tasks.TaskUpdateSubscribed, Title: "Rescan your Subscriptions",
			Group: "download", APIStart: true, APIStop: true, Schedulable: true,
			Handler: a.runUpdateSubscribed,
		},
		{
			Name: tasks.TaskDownloadPending, Title: "Downloading",
			Group: "download", APIStart: true, APIStop: true, Schedulable: true,
			Handler: a.runDownloadPending,
		},
		{
			Name: tasks.TaskExtractDownload, Title: "Add to download queue",
			Group: "download", APIStop: true,
			Handler: a.runExtractDownload,
		},
		{
			Name: tasks.TaskCheckReindex, Title: "Reindex Documents",
			APIStop: true, Schedulable: true,
			Handler: a.runCheckReindex,
		},
		{
			Name: tasks.TaskManualImport, Title: "Manual video import",
			APIStart: true,
			Handler:  a.runManualImport,
		},
		{
			Name: tasks.TaskRunBackup, Title: "Index Backup",
			Group: "setting:application", APIStart: true, Schedulable: true,
			Handler: a.runBackup,
		},
		{
			Name: tasks.TaskRestoreBackup, Title: "Restore Backup",
			Group:   "setting:application",
			Handler: a.runRestoreBackup,
		},
		{
			Name: tasks.TaskRescanFilesystem, Title: "Rescan your Filesystem",
			Group: "rescan", APIStart: true, APIStop: true, Schedulable: true,
			Handler: a.runRescanFilesystem,
		},
		{
			Name: tasks.TaskThumbnailCheck, Title: "Check your Thumbnails",
			APIStart: true, APIStop: true, Schedulable: true,
			Handler: a.runThumbnailCheck,
		},
		{
			Name: tasks.TaskIndexPlaylists, Title: "Index Channel Playlists",
			Group: "playlistscan", APIStart: true, APIStop: true,
			Handler: a.runIndexPlaylists,
		},
		{
			Name: tasks.TaskSubscribeTo, Title: "Add Subscription",
			Handler: a.runSubscribe(true),
		},
		{
			Name: tasks.TaskUnsubscribe, Title: "Remove Subscription",
			Handler: a.runSubscribe(false),
		},
		{
			Name: tasks.TaskVersionCheck, Title: "Look for new updates",
			Schedulable: true,
			Handler:     a.runVersionCheck,
		},
	}
	for _, def := range reg {
		a.Registry.Register(def)
	}
}

func (a *App) runUpdateSubscribed(ctx context.Context, run *tasks.Run) error {
	scanner := a.Scanner.WithHooks(
		func() bool { return run.Stopped(ctx) },
		func(msg string) { run.Message(ctx, msg) },
	)

	channels, err := scanner.ScanChannels(ctx)
	if err != nil {
		return err
	}
	playlists, err := scanner.ScanPlaylists(ctx)
	if err != nil {
		return err
	}
	run.Message(ctx, fmt.Sprintf("queued %d videos from subscriptions", channels+playlists))
	if run.Stopped(ctx) {
		return errs.ErrTaskAborted
	}
	if channels+playlists > 0 && a.AppConfig.Subscriptions.AutoStart {
		return a.startAutoDownload(ctx)
	}
	return nil
}

// startAutoDownload marks the next download pass as auto-start only and
// kicks it off. Without the marker a pass works the whole pending queue.
func (a *App) startAutoDownload(ctx context.Context) error {
	if err := a.KV.Set(ctx, keys.DLAutoOnly, "true", 0); err != nil {
		return err
	}
	_, err := a.Runner.Start(ctx, tasks.TaskDownloadPending)
	return err
}

func (a *App) runDownloadPending(ctx context.Context, run *tasks.Run) error {
	worker := a.Worker.WithHooks(
		func() bool { return run.Stopped(ctx) },
		func(msg string, progress float64) {
			run.Message(ctx, msg)
			if progress > 0 {
				run.SetProgress(ctx, progress)
			}
		},
	)

	autoOnly, err := a.KV.Exists(ctx, keys.DLAutoOnly)
	if err != nil {
		return err
	}
	if autoOnly {
		if err := a.KV.Del(ctx, keys.DLAutoOnly); err != nil {
			return err
		}
	}

	err = worker.Run(ctx, autoOnly)
	if errors.Is(err, errs.ErrCookieInvalid) {
		a.disableCookie(ctx)
	}
	return err
}

// disableCookie revokes the stored cookie and turns the cookie import
// setting off so the next pass runs without it.
func (a *App) disableCookie(ctx context.Context) {
	if err := a.CookieJar.Revoke(ctx); err != nil {
		logging.E("tasks: cookie revoke failed: %v", err)
	}
	updated, err := a.ConfigMgr.Update(ctx, map[string]any{"downloads.cookie_import": false})
	if err != nil {
		logging.E("tasks: disabling cookie import failed: %v", err)
		return
	}
	*a.AppConfig = *updated
}

func (a *App) runExtractDownload(ctx context.Context, run *tasks.Run) error {
	refs, err := a.drainRefs(ctx, keys.DLQueueID)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return nil
	}

	pipe := a.Pipeline.WithHooks(
		func() bool { return run.Stopped(ctx) },
		func(msg string) { run.Message(ctx, msg) },
	)

	// Group by options so one POST expands as one batch.
	type optsKey struct {
		status    string
		autoStart bool
		force     bool
	}
	batches := map[optsKey][]models.ParsedRef{}
	for _, qr := range refs {
		k := optsKey{qr.Status, qr.AutoStart, qr.Force}
		batches[k] = append(batches[k], qr.Ref)
	}

	total := 0
	autoStarted := 0
	for k, batch := range batches {
		n, err := pipe.ParseURLList(ctx, batch, pipeline.ParseOpts{
			Status:    k.status,
			AutoStart: k.autoStart,
			Force:     k.force,
		})
		total += n
		if k.autoStart {
			autoStarted += n
		}
		if err != nil {
			return err
		}
	}
	run.Message(ctx, fmt.Sprintf("added %d videos to the queue", total))
	if autoStarted > 0 {
		return a.startAutoDownload(ctx)
	}
	return nil
}

func (a *App) runCheckReindex(ctx context.Context, run *tasks.Run) error {
	return a.Reindexer.WithStop(func() bool { return run.Stopped(ctx) }).Run(ctx)
}

func (a *App) runManualImport(ctx context.Context, run *tasks.Run) error {
	n, err := a.Importer.WithStop(func() bool { return run.Stopped(ctx) }).Run(ctx)
	if err != nil {
		return err
	}
	run.Message(ctx, fmt.Sprintf("imported %d videos", n))
	return nil
}

func (a *App) runBackup(ctx context.Context, run *tasks.Run) error {
	name, err := a.Backups.Run(ctx, backup.ReasonAuto)
	if err != nil {
		return err
	}
	run.Message(ctx, "backup written: "+name)

	rotate := defaultBackupRotate
	if tc, err := a.Scheduler.TaskConfig(ctx, tasks.TaskRunBackup); err == nil {
		if n, ok := tc["rotate"].(float64); ok && n > 0 {
			rotate = int(n)
		}
	}
	return a.Backups.Rotate(rotate)
}

// runRestoreBackup restores the newest archive on disk. Targeted
// restores go through the HTTP API, which calls Restore directly.
func (a *App) runRestoreBackup(ctx context.Context, run *tasks.Run) error {
	archives, err := a.Backups.List()
	if err != nil {
		return err
	}
	if len(archives) == 0 {
		return fmt.Errorf("%w: no backup archives on disk", errs.ErrNotFound)
	}
	run.Message(ctx, "restoring "+archives[0])
	return a.Backups.Restore(ctx, archives[0])
}

func (a *App) runRescanFilesystem(ctx context.Context, run *tasks.Run) error {
	res, err := a.Importer.WithStop(func() bool { return run.Stopped(ctx) }).Rescan(ctx)
	if err != nil {
		return err
	}
	run.Message(ctx, fmt.Sprintf("%d files indexed, %d videos deactivated", res.Added, res.Deactivated))
	return nil
}

func (a *App) runThumbnailCheck(ctx context.Context, run *tasks.Run) error {
	v := a.Thumbnails.WithStop(func() bool { return run.Stopped(ctx) })
	return v.Run(ctx, func(p float64) { run.SetProgress(ctx, p) })
}

func (a *App) runIndexPlaylists(ctx context.Context, run *tasks.Run) error {
	n, err := a.SubMgr.IndexChannelPlaylists(ctx, func() bool { return run.Stopped(ctx) })
	if err != nil {
		return err
	}
	run.Message(ctx, fmt.Sprintf("indexed %d playlists", n))
	return nil
}

// runSubscribe drains the whole subscribe queue regardless of which of
// the two task names triggered it, so neither direction can starve the
// other.
func (a *App) runSubscribe(_ bool) tasks.Handler {
	return func(ctx context.Context, run *tasks.Run) error {
		queued, err := a.drainRefs(ctx, keys.SubscribeQueue)
		if err != nil {
			return err
		}
		if len(queued) == 0 {
			return nil
		}

		var add, remove []models.ParsedRef
		for _, qr := range queued {
			if qr.Subscribe {
				add = append(add, qr.Ref)
			} else {
				remove = append(remove, qr.Ref)
			}
		}

		var errAll error
		if len(add) > 0 {
			errAll = errors.Join(errAll, a.SubMgr.Subscribe(ctx, add, true))
		}
		if len(remove) > 0 {
			errAll = errors.Join(errAll, a.SubMgr.Subscribe(ctx, remove, false))
		}
		if errAll != nil {
			return errAll
		}
		run.Message(ctx, fmt.Sprintf("updated %d subscriptions", len(queued)))
		return nil
	}
}

func (a *App) runVersionCheck(ctx context.Context, _ *tasks.Run) error {
	_, err := a.Release.Check(ctx)
	return err
}
