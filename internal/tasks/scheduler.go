package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/es"
	"tubearchivist/internal/models"
	"tubearchivist/internal/tasks/cron"
	"tubearchivist/internal/utils/logging"
)

// schedulesDocID is the ta_config doc holding all crontab schedules.
const schedulesDocID = "schedules"

// Scheduler persists crontab schedules and fires due tasks once per
// minute.
type Scheduler struct {
	conn   *es.Connection
	runner *Runner
	loc    *time.Location
	tzName string
}

// NewScheduler wires a scheduler in the process timezone.
func NewScheduler(conn *es.Connection, runner *Runner, loc *time.Location, tzName string) *Scheduler {
	if loc == nil {
		loc = time.UTC
		tzName = "UTC"
	}
	return &Scheduler{conn: conn, runner: runner, loc: loc, tzName: tzName}
}

// scheduleDoc is the stored shape: task name to its periodic config.
type scheduleDoc struct {
	Schedules map[string]models.CustomPeriodicTask `json:"schedules"`
}

// All returns every stored schedule.
func (s *Scheduler) All(ctx context.Context) (map[string]models.CustomPeriodicTask, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Schedules, nil
}

// Set validates and stores a schedule for a task name. The expression
// is the 3-field form "minute hour day_of_week". taskConfig carries
// per-task settings such as the backup rotate count.
func (s *Scheduler) Set(ctx context.Context, taskName, expr string, taskConfig map[string]any) error {
	def := s.runner.reg.Get(taskName)
	if def == nil {
		return fmt.Errorf("%w: unknown task %q", errs.ErrNotFound, taskName)
	}
	if !def.Schedulable {
		return fmt.Errorf("%w: task %q does not accept a schedule", errs.ErrValidation, taskName)
	}
	if err := cron.Validate(expr); err != nil {
		return err
	}

	fields := splitCron(expr)
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	doc.Schedules[taskName] = models.CustomPeriodicTask{
		Name: "schedule_" + taskName,
		Task: taskName,
		Crontab: models.CrontabSchedule{
			Minute:    fields[0],
			Hour:      fields[1],
			DayOfWeek: fields[2],
			Timezone:  s.tzName,
		},
		TaskConfig: taskConfig,
	}
	return s.save(ctx, doc)
}

// TaskConfig returns the stored task_config for a scheduled task, or
// nil when the task has no schedule.
func (s *Scheduler) TaskConfig(ctx context.Context, taskName string) (map[string]any, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Schedules[taskName].TaskConfig, nil
}

// Delete removes a schedule.
func (s *Scheduler) Delete(ctx context.Context, taskName string) error {
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := doc.Schedules[taskName]; !ok {
		return fmt.Errorf("%w: no schedule for %q", errs.ErrNotFound, taskName)
	}
	delete(doc.Schedules, taskName)
	return s.save(ctx, doc)
}

// SyncTimezone rewrites every stored schedule onto the current process
// timezone. Called at startup so a changed TZ applies everywhere.
func (s *Scheduler) SyncTimezone(ctx context.Context) error {
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}

	changed := false
	for name, sched := range doc.Schedules {
		if sched.Crontab.Timezone != s.tzName {
			sched.Crontab.Timezone = s.tzName
			doc.Schedules[name] = sched
			changed = true
		}
	}
	if !changed {
		return nil
	}
	logging.I("tasks: timezone changed, rewriting %d schedules to %s", len(doc.Schedules), s.tzName)
	return s.save(ctx, doc)
}

// RunLoop ticks once per minute and starts every due task. Returns when
// ctx is cancelled.
func (s *Scheduler) RunLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	doc, err := s.load(ctx)
	if err != nil {
		logging.E("tasks: loading schedules: %v", err)
		return
	}

	fired := false
	for taskName, sched := range doc.Schedules {
		expr := sched.Crontab.Minute + " " + sched.Crontab.Hour + " " + sched.Crontab.DayOfWeek
		parsed, err := cron.Parse(expr, s.loc)
		if err != nil {
			logging.E("tasks: stored schedule for %s is invalid: %v", taskName, err)
			continue
		}
		if !parsed.Matches(now) {
			continue
		}

		logging.I("tasks: schedule fired for %s", taskName)
		if _, err := s.runner.Start(ctx, taskName); err != nil {
			logging.E("tasks: scheduled start of %s failed: %v", taskName, err)
			continue
		}
		sched.LastRunAt = now.Unix()
		doc.Schedules[taskName] = sched
		fired = true
	}

	if !fired {
		return
	}
	if err := s.save(ctx, doc); err != nil {
		logging.E("tasks: saving schedule state: %v", err)
	}
}

func (s *Scheduler) load(ctx context.Context) (*scheduleDoc, error) {
	var doc scheduleDoc
	err := s.conn.GetDoc(ctx, consts.IndexConfig, schedulesDocID, &doc)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	if doc.Schedules == nil {
		doc.Schedules = map[string]models.CustomPeriodicTask{}
	}
	return &doc, nil
}

func (s *Scheduler) save(ctx context.Context, doc *scheduleDoc) error {
	return s.conn.IndexDoc(ctx, consts.IndexConfig, schedulesDocID, doc)
}

func splitCron(expr string) [3]string {
	var out [3]string
	copy(out[:], strings.Fields(expr))
	return out
}
