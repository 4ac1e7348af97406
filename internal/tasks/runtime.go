package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tubearchivist/internal/domain/keys"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/kv"
	"tubearchivist/internal/models"
	"tubearchivist/internal/notify"
	"tubearchivist/internal/utils/logging"
)

const (
	taskKeyPrefix = "task:"
	// messageTTL keeps completed task messages visible briefly.
	messageTTL = 4 * time.Minute
	// recordTTL expires finished task records.
	recordTTL = time.Hour
)

// Runner executes registered tasks on a bounded worker pool. Each run
// keeps its authoritative TaskRecord in the KV store.
type Runner struct {
	kvs      *kv.Store
	reg      *Registry
	notifier *notify.Notifier

	sem chan struct{}
	wg  sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewRunner builds a runner with the given worker pool size.
func NewRunner(kvs *kv.Store, reg *Registry, notifier *notify.Notifier, workers int) *Runner {
	if workers <= 0 {
		workers = 4
	}
	return &Runner{
		kvs:      kvs,
		reg:      reg,
		notifier: notifier,
		sem:      make(chan struct{}, workers),
		cancels:  map[string]context.CancelFunc{},
	}
}

// StartupCleanup removes the well-known lock keys and all UI messages
// left behind by a previous process, then stamps the start time.
func (r *Runner) StartupCleanup(ctx context.Context) error {
	if err := r.kvs.Del(ctx, keys.StartupClearLocks[:]...); err != nil {
		return err
	}
	if n, err := r.kvs.ClearMessages(ctx); err != nil {
		return err
	} else if n > 0 {
		logging.I("tasks: cleared %d stale messages", n)
	}
	return r.kvs.Set(ctx, keys.StartTimestamp, fmt.Sprint(time.Now().Unix()), 0)
}

// Start launches a task by name. When a run of the same name is
// already pending or running, no new run starts: the existing id is
// returned and an "already in progress" message is emitted.
func (r *Runner) Start(ctx context.Context, name string) (string, error) {
	def := r.reg.Get(name)
	if def == nil {
		return "", fmt.Errorf("%w: unknown task %q", errs.ErrNotFound, name)
	}

	if existing, err := r.findActive(ctx, name); err != nil {
		return "", err
	} else if existing != nil {
		logging.I("tasks: %s already in progress as %s", name, existing.ID)
		existing.Messages = append(existing.Messages, "already in progress")
		r.saveRecord(ctx, existing, 0)
		r.publish(ctx, existing)
		return existing.ID, nil
	}

	rec := &models.TaskRecord{
		ID:        uuid.New().String(),
		Name:      name,
		State:     models.TaskStatePending,
		Group:     def.Group,
		Title:     def.Title,
		Level:     "info",
		StartedAt: time.Now().Unix(),
	}
	if err := r.saveRecord(ctx, rec, 0); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.mu.Lock()
	r.cancels[rec.ID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go r.execute(runCtx, def, rec)

	return rec.ID, nil
}

func (r *Runner) execute(ctx context.Context, def *Definition, rec *models.TaskRecord) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.cancels, rec.ID)
		r.mu.Unlock()
	}()

	r.sem <- struct{}{}
	defer func() { <-r.sem }()

	rec.State = models.TaskStateRunning
	r.saveRecord(ctx, rec, 0)
	r.publish(ctx, rec)

	run := &Run{runner: r, rec: rec}
	err := def.Handler(ctx, run)

	rec.EndedAt = time.Now().Unix()
	switch {
	case err == nil:
		rec.State = models.TaskStateSuccess
	case errors.Is(err, errs.ErrTaskAborted):
		// Cooperative stop counts as a clean run.
		rec.State = models.TaskStateSuccess
		rec.Messages = append(rec.Messages, "stopped")
	default:
		rec.State = models.TaskStateFailure
		rec.Level = "error"
		rec.Messages = append(rec.Messages, err.Error())
		logging.E("tasks: %s (%s) failed: %v", rec.Name, rec.ID, err)
	}

	// The run context may be cancelled by KILL; persist with a fresh one.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	r.saveRecord(finishCtx, rec, recordTTL)
	r.publish(finishCtx, rec)

	if r.notifier != nil {
		r.notifier.Send(finishCtx, rec.Name, rec.ID, rec.Title, rec.Messages)
	}
}

// SendCommand writes STOP or KILL onto a running task. KILL also
// cancels the worker context immediately.
func (r *Runner) SendCommand(ctx context.Context, taskID, command string) error {
	if command != models.TaskCommandStop && command != models.TaskCommandKill {
		return fmt.Errorf("%w: unknown command %q", errs.ErrValidation, command)
	}

	rec, err := r.Record(ctx, taskID)
	if err != nil {
		return err
	}
	if rec.Done() {
		return fmt.Errorf("%w: task %s already finished", errs.ErrValidation, taskID)
	}
	def := r.reg.Get(rec.Name)
	if def == nil || !def.APIStop {
		return fmt.Errorf("%w: task %s is not stoppable", errs.ErrValidation, rec.Name)
	}

	rec.Command = command
	if err := r.saveRecord(ctx, rec, 0); err != nil {
		return err
	}

	if command == models.TaskCommandKill {
		r.mu.Lock()
		cancel := r.cancels[taskID]
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	}
	return nil
}

// Record loads one task record by id.
func (r *Runner) Record(ctx context.Context, taskID string) (*models.TaskRecord, error) {
	var rec models.TaskRecord
	if err := r.kvs.GetJSON(ctx, taskKeyPrefix+taskID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Records lists all live task records.
func (r *Runner) Records(ctx context.Context) ([]*models.TaskRecord, error) {
	ks, err := r.kvs.KeysByPrefix(ctx, taskKeyPrefix)
	if err != nil {
		return nil, err
	}

	out := make([]*models.TaskRecord, 0, len(ks))
	for _, k := range ks {
		raw, err := r.kvs.Get(ctx, k)
		if err != nil {
			continue // expired between scan and read
		}
		var rec models.TaskRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

// Wait blocks until every running task returns. Used on shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// findActive returns a pending or running record with the given name.
func (r *Runner) findActive(ctx context.Context, name string) (*models.TaskRecord, error) {
	records, err := r.Records(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Name == name && !rec.Done() {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *Runner) saveRecord(ctx context.Context, rec *models.TaskRecord, ttl time.Duration) error {
	return r.kvs.SetJSON(ctx, taskKeyPrefix+rec.ID, rec, ttl)
}

// publish mirrors the record into its message group for the UI.
func (r *Runner) publish(ctx context.Context, rec *models.TaskRecord) {
	if rec.Group == "" {
		return
	}
	short := rec.ID
	if len(short) > 8 {
		short = short[:8]
	}
	if err := r.kvs.SetMessage(ctx, rec.Group, short, rec, messageTTL); err != nil {
		logging.D(1, "tasks: publishing message for %s: %v", rec.ID, err)
	}
}

// Run is the handle a task handler uses to report progress and observe
// cancellation.
type Run struct {
	runner *Runner
	rec    *models.TaskRecord
	mu     sync.Mutex
}

// ID returns the run id.
func (t *Run) ID() string {
	return t.rec.ID
}

// SetProgress publishes fractional progress in 0..1.
func (t *Run) SetProgress(ctx context.Context, progress float64) {
	t.mu.Lock()
	t.rec.Progress = progress
	t.mu.Unlock()
	t.runner.saveRecord(ctx, t.rec, 0)
	t.runner.publish(ctx, t.rec)
}

// Message appends a progress message and publishes it.
func (t *Run) Message(ctx context.Context, msg string) {
	t.mu.Lock()
	t.rec.Messages = append(t.rec.Messages, msg)
	t.mu.Unlock()
	t.runner.saveRecord(ctx, t.rec, 0)
	t.runner.publish(ctx, t.rec)
}

// Stopped re-reads the record and reports whether STOP or KILL was
// requested. Handlers poll this between items.
func (t *Run) Stopped(ctx context.Context) bool {
	rec, err := t.runner.Record(ctx, t.rec.ID)
	if err != nil {
		return false
	}
	if rec.Command == models.TaskCommandStop || rec.Command == models.TaskCommandKill {
		t.mu.Lock()
		t.rec.Command = rec.Command
		t.mu.Unlock()
		return true
	}
	return false
}
