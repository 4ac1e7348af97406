package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tubearchivist/internal/es"
	"tubearchivist/internal/utils/logging"
)

// BackupFunc runs a store backup before destructive migrations.
type BackupFunc func(ctx context.Context, reason string) error

// Manager reconciles the declared manifest with the live store.
type Manager struct {
	conn     *es.Connection
	manifest *Manifest
	backup   BackupFunc
}

// NewManager builds an index manager. backup may be nil, in which case
// reindexes run without a prior backup.
func NewManager(conn *es.Connection, manifest *Manifest, backup BackupFunc) *Manager {
	return &Manager{conn: conn, manifest: manifest, backup: backup}
}

// Migrate walks every declared index and applies the needed action.
// A failure aborts the migration for that index only; the others still
// run. All failures are joined into the returned error.
func (m *Manager) Migrate(ctx context.Context) error {
	var (
		errsAll  []error
		backedUp bool
	)

	for _, ic := range m.manifest.IndexConfig {
		action, err := m.migrateOne(ctx, ic, &backedUp)
		if err != nil {
			logging.E("index %s: migration failed: %v", ic.IndexName, err)
			errsAll = append(errsAll, fmt.Errorf("index %s: %w", ic.IndexName, err))
			continue
		}
		logging.I("index %s: %s", ic.IndexName, action)
	}

	return errors.Join(errsAll...)
}

func (m *Manager) migrateOne(ctx context.Context, ic IndexConfig, backedUp *bool) (Action, error) {
	version, versioned, exists, err := m.resolveVersion(ctx, ic.IndexName)
	if err != nil {
		return ActionNone, err
	}

	if !exists {
		if err := m.createIndex(ctx, ic.IndexName, versioned, ic); err != nil {
			return ActionNone, err
		}
		return ActionNone, nil
	}

	currentMap, currentSet, err := m.currentConfig(ctx, versioned)
	if err != nil {
		return ActionNone, err
	}

	diff := DiffMappings(currentMap, ic.ExpectedMap)
	settingsChanged := SettingsChanged(currentSet, ic.ExpectedSet)
	action := Classify(diff, settingsChanged)

	switch action {
	case ActionReindex:
		if m.backup != nil && !*backedUp {
			if err := m.backup(ctx, "update"); err != nil {
				return action, fmt.Errorf("pre-migration backup: %w", err)
			}
			*backedUp = true
		}
		if err := m.rebuild(ctx, ic, version, versioned, RemovedFields(diff)); err != nil {
			return action, err
		}

	case ActionPutMapping:
		body := map[string]any{"properties": ic.ExpectedMap}
		if _, _, err := m.conn.Put(ctx, versioned+"/_mapping", body); err != nil {
			return action, err
		}
	}

	return action, nil
}

// resolveVersion reads the alias to find the live versioned index.
// An absent alias means version 1 and no index.
func (m *Manager) resolveVersion(ctx context.Context, name string) (version int, versioned string, exists bool, err error) {
	raw, code, err := m.conn.Get(ctx, "_alias/"+name)
	if code == 404 {
		return 1, name + "_v1", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}

	var aliasResp map[string]json.RawMessage
	if err := json.Unmarshal(raw, &aliasResp); err != nil {
		return 0, "", false, err
	}

	for indexName := range aliasResp {
		if v, ok := parseVersion(indexName); ok {
			return v, indexName, true, nil
		}
	}
	return 0, "", false, fmt.Errorf("alias %s points at no versioned index", name)
}

func parseVersion(indexName string) (int, bool) {
	i := strings.LastIndex(indexName, "_v")
	if i < 0 {
		return 0, false
	}
	v, err := strconv.Atoi(indexName[i+2:])
	if err != nil {
		return 0, false
	}
	return v, true
}

func (m *Manager) currentConfig(ctx context.Context, versioned string) (mapping, settings map[string]any, err error) {
	raw, _, err := m.conn.Get(ctx, versioned+"/_mapping")
	if err != nil {
		return nil, nil, err
	}
	var mapResp map[string]struct {
		Mappings struct {
			Properties map[string]any `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.Unmarshal(raw, &mapResp); err != nil {
		return nil, nil, err
	}
	for _, v := range mapResp {
		mapping = v.Mappings.Properties
	}

	raw, _, err = m.conn.Get(ctx, versioned+"/_settings")
	if err != nil {
		return nil, nil, err
	}
	var setResp map[string]struct {
		Settings struct {
			Index map[string]any `json:"index"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(raw, &setResp); err != nil {
		return nil, nil, err
	}
	for _, v := range setResp {
		settings = v.Settings.Index
	}

	return mapping, settings, nil
}

func (m *Manager) createIndex(ctx context.Context, alias, versioned string, ic IndexConfig) error {
	body := map[string]any{
		"mappings": map[string]any{"properties": ic.ExpectedMap},
	}
	if len(ic.ExpectedSet) > 0 {
		body["settings"] = ic.ExpectedSet
	}
	if _, _, err := m.conn.Put(ctx, versioned, body); err != nil {
		return err
	}

	actions := map[string]any{
		"actions": []any{
			map[string]any{"add": map[string]any{
				"index": versioned, "alias": alias, "is_write_index": true,
			}},
		},
	}
	_, _, err := m.conn.Post(ctx, "_aliases", actions)
	return err
}

// rebuild performs the zero-downtime versioned reindex: create the next
// versioned index, copy documents (dropping removed fields through an
// inline script), flip the alias in a single actions payload, then drop
// the old index.
func (m *Manager) rebuild(ctx context.Context, ic IndexConfig, version int, oldVersioned string, removedFields []string) error {
	newVersioned := fmt.Sprintf("%s_v%d", ic.IndexName, version+1)

	body := map[string]any{
		"mappings": map[string]any{"properties": ic.ExpectedMap},
	}
	if len(ic.ExpectedSet) > 0 {
		body["settings"] = ic.ExpectedSet
	}
	if _, _, err := m.conn.Put(ctx, newVersioned, body); err != nil {
		return fmt.Errorf("create %s: %w", newVersioned, err)
	}

	reindexBody := map[string]any{
		"source": map[string]any{"index": oldVersioned},
		"dest":   map[string]any{"index": newVersioned},
	}
	if len(removedFields) > 0 {
		reindexBody["script"] = map[string]any{
			"lang":   "painless",
			"source": removeScript(removedFields),
		}
	}
	if _, _, err := m.conn.Post(ctx, "_reindex?refresh=true", reindexBody); err != nil {
		return fmt.Errorf("reindex %s to %s: %w", oldVersioned, newVersioned, err)
	}

	actions := map[string]any{
		"actions": []any{
			map[string]any{"add": map[string]any{
				"index": newVersioned, "alias": ic.IndexName, "is_write_index": true,
			}},
			map[string]any{"remove": map[string]any{
				"index": oldVersioned, "alias": ic.IndexName,
			}},
		},
	}
	if _, _, err := m.conn.Post(ctx, "_aliases", actions); err != nil {
		return fmt.Errorf("flip alias %s: %w", ic.IndexName, err)
	}

	if _, _, err := m.conn.Delete(ctx, oldVersioned, nil); err != nil {
		return fmt.Errorf("delete %s: %w", oldVersioned, err)
	}

	return nil
}

func removeScript(fields []string) string {
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "ctx._source.remove('%s'); ", f)
	}
	return strings.TrimSpace(b.String())
}
