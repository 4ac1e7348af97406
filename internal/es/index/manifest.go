package index

import (
	"encoding/json"
	"fmt"
	"os"
)

// IndexConfig declares one index: its alias name and the mapping and
// settings it must end up with.
type IndexConfig struct {
	IndexName   string         `json:"index_name"`
	ExpectedMap map[string]any `json:"expected_map"`
	ExpectedSet map[string]any `json:"expected_set"`
}

// Manifest is the declarative index configuration loaded at startup.
type Manifest struct {
	IndexConfig []IndexConfig `json:"index_config"`
}

// LoadManifest reads and validates the mapping manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse mapping manifest: %w", err)
	}
	if len(m.IndexConfig) == 0 {
		return nil, fmt.Errorf("mapping manifest %s declares no indices", path)
	}
	for _, ic := range m.IndexConfig {
		if ic.IndexName == "" {
			return nil, fmt.Errorf("mapping manifest %s has an entry without index_name", path)
		}
	}
	return &m, nil
}
