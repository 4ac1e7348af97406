// Package snapshot manages the filesystem snapshot repository and its
// lifecycle policy on the store.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/es"
	"tubearchivist/internal/utils/logging"
)

const (
	RepoName   = "ta_snapshot"
	PolicyName = "ta_daily"
)

// Manager owns the snapshot repository and SLM policy.
type Manager struct {
	conn     *es.Connection
	location string
	loc      *time.Location
	indices  []string
}

// NewManager builds a snapshot manager. location is the injected
// snapshot directory, loc the process timezone used to anchor the
// daily schedule.
func NewManager(conn *es.Connection, location string, loc *time.Location, indices []string) *Manager {
	return &Manager{conn: conn, location: location, loc: loc, indices: indices}
}

// Setup idempotently ensures the repository and the SLM policy, then
// triggers a snapshot if the newest one is older than a day.
func (m *Manager) Setup(ctx context.Context) error {
	if err := m.ensureRepo(ctx); err != nil {
		return err
	}
	if err := m.ensurePolicy(ctx); err != nil {
		return err
	}

	stale, err := m.lastSnapshotStale(ctx)
	if err != nil {
		return err
	}
	if stale {
		logging.I("snapshot: no recent snapshot found, triggering one now")
		if _, err := m.TakeNow(ctx, false); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) ensureRepo(ctx context.Context) error {
	body := map[string]any{
		"type": "fs",
		"settings": map[string]any{
			"compress":   true,
			"chunk_size": "1g",
			"location":   m.location,
		},
	}
	_, _, err := m.conn.Put(ctx, "_snapshot/"+RepoName, body)
	if err != nil {
		return fmt.Errorf("ensure snapshot repo: %w", err)
	}
	return nil
}

func (m *Manager) ensurePolicy(ctx context.Context) error {
	body := map[string]any{
		"schedule":   m.dailySchedule(),
		"name":       "<" + PolicyName + "_{now/d}>",
		"repository": RepoName,
		"config": map[string]any{
			"indices":              m.indices,
			"ignore_unavailable":   true,
			"include_global_state": false,
		},
		"retention": map[string]any{
			"expire_after": "30d",
			"min_count":    5,
			"max_count":    50,
		},
	}
	_, _, err := m.conn.Put(ctx, "_slm/policy/"+PolicyName, body)
	if err != nil {
		return fmt.Errorf("ensure SLM policy: %w", err)
	}
	return nil
}

// dailySchedule returns a cron expression for local noon converted to
// the UTC hour, keeping snapshot load away from local activity peaks.
func (m *Manager) dailySchedule() string {
	now := time.Now().In(m.loc)
	noon := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, m.loc)
	return fmt.Sprintf("0 0 %d * * ?", noon.UTC().Hour())
}

// Snapshot is one snapshot's decoded state.
type Snapshot struct {
	ID       string   `json:"snapshot"`
	State    string   `json:"state"`
	StartMs  int64    `json:"start_time_in_millis"`
	EndMs    int64    `json:"end_time_in_millis"`
	Indices  []string `json:"indices"`
	Metadata struct {
		Policy string `json:"policy"`
	} `json:"metadata"`
}

// List returns all snapshots in the repository, newest first.
func (m *Manager) List(ctx context.Context) ([]Snapshot, error) {
	raw, _, err := m.conn.Get(ctx, "_snapshot/"+RepoName+"/_all")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Snapshots []Snapshot `json:"snapshots"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	sort.Slice(resp.Snapshots, func(i, j int) bool {
		return resp.Snapshots[i].StartMs > resp.Snapshots[j].StartMs
	})
	return resp.Snapshots, nil
}

func (m *Manager) lastSnapshotStale(ctx context.Context) (bool, error) {
	snapshots, err := m.List(ctx)
	if err != nil {
		return false, err
	}
	if len(snapshots) == 0 {
		return true, nil
	}
	newest := time.UnixMilli(snapshots[0].StartMs)
	return time.Since(newest) > 24*time.Hour, nil
}

// TakeNow executes the SLM policy. When wait is set, it polls until the
// created snapshot reports SUCCESS.
func (m *Manager) TakeNow(ctx context.Context, wait bool) (string, error) {
	raw, _, err := m.conn.Post(ctx, "_slm/policy/"+PolicyName+"/_execute", nil)
	if err != nil {
		return "", fmt.Errorf("execute SLM policy: %w", err)
	}

	var resp struct {
		SnapshotName string `json:"snapshot_name"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	if wait {
		if err := m.waitFor(ctx, resp.SnapshotName); err != nil {
			return resp.SnapshotName, err
		}
	}
	return resp.SnapshotName, nil
}

func (m *Manager) waitFor(ctx context.Context, name string) error {
	ticker := time.NewTicker(consts.SnapshotPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		raw, _, err := m.conn.Get(ctx, "_snapshot/"+RepoName+"/"+name)
		if err != nil {
			return err
		}
		var resp struct {
			Snapshots []Snapshot `json:"snapshots"`
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			return err
		}
		if len(resp.Snapshots) == 0 {
			continue
		}
		switch resp.Snapshots[0].State {
		case "SUCCESS":
			return nil
		case "FAILED", "PARTIAL":
			return fmt.Errorf("snapshot %s finished in state %s", name, resp.Snapshots[0].State)
		}
	}
}

// Restore deletes every managed index and restores all indices from the
// named snapshot. The store rebuilds aliases from the snapshot content.
func (m *Manager) Restore(ctx context.Context, name string) error {
	// Aliases cannot be deleted directly, wipe the versioned indices.
	for _, idx := range m.indices {
		if _, code, err := m.conn.Delete(ctx, idx+"_*", nil); err != nil && code != 404 {
			return fmt.Errorf("delete %s before restore: %w", idx, err)
		}
	}

	body := map[string]any{
		"indices": "*",
	}
	if _, _, err := m.conn.Post(ctx, "_snapshot/"+RepoName+"/"+name+"/_restore", body); err != nil {
		return fmt.Errorf("restore snapshot %s: %w", name, err)
	}
	return nil
}
