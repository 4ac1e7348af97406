// Package tasks is the runtime for long-running jobs: registry,
// records, cooperative cancellation and scheduling.
package tasks

import "context"

// Handler runs one task. The Run carries progress reporting and the
// cooperative stop check; KILL arrives as context cancellation.
type Handler func(ctx context.Context, run *Run) error

// Definition describes one registered task.
type Definition struct {
	Name  string
	Title string
	// Group is the message group the UI subscribes to.
	Group string
	// APIStart allows starting through the HTTP API.
	APIStart bool
	// APIStop allows STOP/KILL through the HTTP API.
	APIStop bool
	// Schedulable tasks accept a crontab schedule.
	Schedulable bool

	Handler Handler
}

// Known task names.
const (
	TaskUpdateSubscribed = "update_subscribed"
	TaskDownloadPending  = "download_pending"
	TaskExtractDownload  = "extract_download"
	TaskCheckReindex     = "check_reindex"
	TaskManualImport     = "manual_import"
	TaskRunBackup        = "run_backup"
	TaskRestoreBackup    = "restore_backup"
	TaskRescanFilesystem = "rescan_filesystem"
	TaskThumbnailCheck   = "thumbnail_check"
	TaskIndexPlaylists   = "index_playlists"
	TaskSubscribeTo      = "subscribe_to"
	TaskUnsubscribe      = "unsubscribe"
	TaskVersionCheck     = "version_check"
)

// Registry holds every known task in registration order.
type Registry struct {
	order  []string
	byName map[string]*Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]*Definition{}}
}

// Register adds a definition. Re-registering a name replaces the
// handler, which tests rely on.
func (r *Registry) Register(def *Definition) {
	if _, ok := r.byName[def.Name]; !ok {
		r.order = append(r.order, def.Name)
	}
	r.byName[def.Name] = def
}

// Get returns the definition for a name, or nil.
func (r *Registry) Get(name string) *Definition {
	return r.byName[name]
}

// All returns definitions in registration order.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
