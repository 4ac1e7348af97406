package models

// Task states.
const (
	TaskStatePending = "pending"
	TaskStateRunning = "running"
	TaskStateSuccess = "success"
	TaskStateFailure = "failure"
)

// Task commands written by the API onto a running task.
const (
	TaskCommandStop = "STOP"
	TaskCommandKill = "KILL"
)

// TaskRecord is the KV-stored state of one task run. It doubles as the
// structured message object the UI consumes.
type TaskRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	State     string   `json:"status"`
	Command   string   `json:"command,omitempty"`
	Group     string   `json:"group"`
	Title     string   `json:"title"`
	Level     string   `json:"level"`
	Messages  []string `json:"messages"`
	Progress  float64  `json:"progress,omitempty"`
	StartedAt int64    `json:"started_at"`
	EndedAt   int64    `json:"ended_at,omitempty"`
}

// Done reports whether the task reached a terminal state.
func (t *TaskRecord) Done() bool {
	return t.State == TaskStateSuccess || t.State == TaskStateFailure
}

// CrontabSchedule is a 3-field cron expression bound to a timezone.
type CrontabSchedule struct {
	Minute    string `json:"minute"`
	Hour      string `json:"hour"`
	DayOfWeek string `json:"day_of_week"`
	Timezone  string `json:"timezone"`
}

// CustomPeriodicTask binds a schedule to a registered task name.
type CustomPeriodicTask struct {
	Name       string          `json:"name"`
	Task       string          `json:"task"`
	Crontab    CrontabSchedule `json:"crontab"`
	TaskConfig map[string]any  `json:"task_config,omitempty"`
	LastRunAt  int64           `json:"last_run_at,omitempty"`
}
