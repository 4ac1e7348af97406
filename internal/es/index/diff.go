// Package index reconciles declared index mappings and settings against
// the live store, classifying changes as no-ops, additive mapping
// updates or full versioned reindexes.
package index

import (
	"fmt"
	"reflect"
	"strings"
)

// Action is the outcome of classifying a mapping/settings diff.
type Action int

const (
	// ActionNone means the live index already matches the declaration.
	ActionNone Action = iota
	// ActionPutMapping means new fields can be added in place.
	ActionPutMapping
	// ActionReindex means a versioned rebuild with alias flip is needed.
	ActionReindex
)

func (a Action) String() string {
	switch a {
	case ActionPutMapping:
		return "PUT_MAPPING"
	case ActionReindex:
		return "REINDEX"
	}
	return "NOOP"
}

// reindexLeafKeys are the mapping leaf keys whose change cannot be
// applied in place.
var reindexLeafKeys = map[string]struct{}{
	"type":            {},
	"analyzer":        {},
	"search_analyzer": {},
	"normalizer":      {},
	"index":           {},
	"doc_values":      {},
	"norms":           {},
	"ignore_above":    {},
	"enabled":         {},
	"format":          {},
}

// MappingDiff is the categorized deep diff between the current and the
// expected mapping, order-insensitive.
type MappingDiff struct {
	// TypeChanges are paths where the value shape changed entirely
	// (object vs scalar).
	TypeChanges []string
	// ValuesChanged are scalar leaves with different values.
	ValuesChanged []string
	// Added are dotted paths present only in the expected mapping.
	Added []string
	// Removed are dotted paths present only in the current mapping,
	// paired with the removed subtree.
	Removed map[string]any
}

// Empty reports whether nothing differs.
func (d *MappingDiff) Empty() bool {
	return len(d.TypeChanges) == 0 && len(d.ValuesChanged) == 0 &&
		len(d.Added) == 0 && len(d.Removed) == 0
}

// DiffMappings compares the current mapping against the expected one.
func DiffMappings(current, expected map[string]any) *MappingDiff {
	d := &MappingDiff{Removed: map[string]any{}}
	diffWalk(current, expected, "", d)
	return d
}

func diffWalk(current, expected map[string]any, path string, d *MappingDiff) {
	for key, expVal := range expected {
		p := joinPath(path, key)
		curVal, ok := current[key]
		if !ok {
			d.Added = append(d.Added, p)
			continue
		}

		expMap, expIsMap := expVal.(map[string]any)
		curMap, curIsMap := curVal.(map[string]any)

		switch {
		case expIsMap && curIsMap:
			diffWalk(curMap, expMap, p, d)
		case expIsMap != curIsMap:
			d.TypeChanges = append(d.TypeChanges, p)
		default:
			if !scalarEqual(curVal, expVal) {
				d.ValuesChanged = append(d.ValuesChanged, p)
			}
		}
	}

	for key, curVal := range current {
		if _, ok := expected[key]; !ok {
			d.Removed[joinPath(path, key)] = curVal
		}
	}
}

// scalarEqual compares leaves loosely: JSON decodes numbers as float64
// while declared manifests may carry ints, and the store normalizes
// some values to strings.
func scalarEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Classify derives the migration action from a mapping diff and the
// settings comparison.
func Classify(d *MappingDiff, settingsChanged bool) Action {
	if settingsChanged || len(d.TypeChanges) > 0 {
		return ActionReindex
	}

	for _, p := range d.ValuesChanged {
		leaf := p
		if i := strings.LastIndex(p, "."); i >= 0 {
			leaf = p[i+1:]
		}
		if _, reindex := reindexLeafKeys[leaf]; reindex {
			return ActionReindex
		}
	}

	if len(d.Added) > 0 {
		return ActionPutMapping
	}
	return ActionNone
}

// RemovedFields returns the dotted field paths dropped during reindex:
// removed subtrees that describe an actual field (contain a type or
// properties leaf). Paths are translated from mapping-space to
// document-space by stripping "properties." segments.
func RemovedFields(d *MappingDiff) []string {
	var fields []string
	for path, val := range d.Removed {
		if describesField(val) {
			fields = append(fields, docPath(path))
		}
	}
	return fields
}

func describesField(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if _, ok := m["type"]; ok {
		return true
	}
	if _, ok := m["properties"]; ok {
		return true
	}
	for _, sub := range m {
		if describesField(sub) {
			return true
		}
	}
	return false
}

func docPath(mappingPath string) string {
	parts := strings.Split(mappingPath, ".")
	kept := parts[:0]
	for _, p := range parts {
		if p == "properties" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ".")
}

// SettingsChanged reports whether any expected setting is missing from
// or unequal to the live settings.
func SettingsChanged(current, expected map[string]any) bool {
	for key, expVal := range expected {
		curVal, ok := current[key]
		if !ok {
			return true
		}
		expMap, expIsMap := expVal.(map[string]any)
		curMap, curIsMap := curVal.(map[string]any)
		if expIsMap && curIsMap {
			if SettingsChanged(curMap, expMap) {
				return true
			}
			continue
		}
		if !scalarEqual(curVal, expVal) {
			return true
		}
	}
	return false
}
