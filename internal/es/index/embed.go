package index

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed es_index_mapping.json
var defaultManifest []byte

// DefaultManifest returns the manifest shipped with the binary, used
// when no external mapping file is configured.
func DefaultManifest() (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(defaultManifest, &m); err != nil {
		return nil, fmt.Errorf("parse embedded mapping manifest: %w", err)
	}
	return &m, nil
}
