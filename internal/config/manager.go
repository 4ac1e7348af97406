package config

import (
	"context"
	"errors"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/es"
	"tubearchivist/internal/utils/logging"
)

// AppSettingsID is the fixed document id of the application config.
const AppSettingsID = "appsettings"

// Manager provides read-through access to the stored AppConfig.
// Every read hits the store; the document is the single source of
// truth shared between workers.
type Manager struct {
	conn *es.Connection
}

// NewManager builds a config manager.
func NewManager(conn *es.Connection) *Manager {
	return &Manager{conn: conn}
}

// Load fetches the current config, falling back to (and persisting)
// defaults on first run.
func (m *Manager) Load(ctx context.Context) (*AppConfig, error) {
	var cfg AppConfig
	err := m.conn.GetDoc(ctx, consts.IndexConfig, AppSettingsID, &cfg)
	if errors.Is(err, errs.ErrNotFound) {
		logging.I("config: no appsettings document, writing defaults")
		cfg := Defaults()
		if err := m.conn.IndexDoc(ctx, consts.IndexConfig, AppSettingsID, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Update applies dotted-path updates against the stored config and
// persists the result.
func (m *Manager) Update(ctx context.Context, updates map[string]any) (*AppConfig, error) {
	cfg, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := cfg.Update(updates)
	if err != nil {
		return nil, err
	}

	if err := m.conn.IndexDoc(ctx, consts.IndexConfig, AppSettingsID, updated); err != nil {
		return nil, err
	}
	return updated, nil
}
