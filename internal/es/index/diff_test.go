package index

import (
	"testing"
)

func props(fields map[string]any) map[string]any {
	return fields
}

func TestClassifyAnalyzerChange(t *testing.T) {
	current := props(map[string]any{
		"channel_name": map[string]any{
			"type": "search_as_you_type",
			"fields": map[string]any{
				"keyword": map[string]any{"type": "keyword"},
			},
			"analyzer": "standard",
		},
	})
	expected := props(map[string]any{
		"channel_name": map[string]any{
			"type": "search_as_you_type",
			"fields": map[string]any{
				"keyword": map[string]any{"type": "keyword"},
			},
			"analyzer": "whitespace",
		},
	})

	d := DiffMappings(current, expected)
	if got := Classify(d, false); got != ActionReindex {
		t.Fatalf("analyzer change should classify as REINDEX, got %s", got)
	}
}

func TestClassifyAdditiveLeaf(t *testing.T) {
	current := props(map[string]any{
		"youtube_id": map[string]any{"type": "keyword"},
	})
	expected := props(map[string]any{
		"youtube_id": map[string]any{"type": "keyword"},
		"tags_v2":    map[string]any{"type": "keyword"},
	})

	d := DiffMappings(current, expected)
	if got := Classify(d, false); got != ActionPutMapping {
		t.Fatalf("new leaf property should classify as PUT_MAPPING, got %s", got)
	}
}

func TestClassifyNoChanges(t *testing.T) {
	mapping := props(map[string]any{
		"youtube_id": map[string]any{"type": "keyword"},
		"published":  map[string]any{"type": "date", "format": "epoch_second"},
	})

	d := DiffMappings(mapping, mapping)
	if !d.Empty() {
		t.Fatalf("identical mappings produced a non-empty diff: %+v", d)
	}
	if got := Classify(d, false); got != ActionNone {
		t.Fatalf("identical mappings should classify as NOOP, got %s", got)
	}
}

func TestClassifyTypeChange(t *testing.T) {
	current := props(map[string]any{
		"view_count": map[string]any{"type": "long"},
	})
	expected := props(map[string]any{
		"view_count": map[string]any{"type": "keyword"},
	})

	d := DiffMappings(current, expected)
	if got := Classify(d, false); got != ActionReindex {
		t.Fatalf("mapping type change should classify as REINDEX, got %s", got)
	}
}

func TestClassifySettingsChange(t *testing.T) {
	mapping := props(map[string]any{
		"youtube_id": map[string]any{"type": "keyword"},
	})

	d := DiffMappings(mapping, mapping)
	if got := Classify(d, true); got != ActionReindex {
		t.Fatalf("settings change should classify as REINDEX, got %s", got)
	}
}

func TestClassifyOrderInsensitive(t *testing.T) {
	// Same keys declared in a different order must not trip the diff.
	current := props(map[string]any{
		"a": map[string]any{"type": "keyword"},
		"b": map[string]any{"type": "long"},
	})
	expected := props(map[string]any{
		"b": map[string]any{"type": "long"},
		"a": map[string]any{"type": "keyword"},
	})

	if d := DiffMappings(current, expected); !d.Empty() {
		t.Fatalf("reordered mapping produced diff: %+v", d)
	}
}

func TestSettingsChanged(t *testing.T) {
	current := map[string]any{
		"number_of_replicas": "0",
		"refresh_interval":   "5s",
	}

	cases := []struct {
		name     string
		expected map[string]any
		want     bool
	}{
		{"equal", map[string]any{"number_of_replicas": "0"}, false},
		{"numeric equivalence", map[string]any{"number_of_replicas": 0}, false},
		{"changed value", map[string]any{"refresh_interval": "30s"}, true},
		{"missing key", map[string]any{"codec": "best_compression"}, true},
	}

	for _, tc := range cases {
		if got := SettingsChanged(current, tc.expected); got != tc.want {
			t.Errorf("%s: SettingsChanged = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRemovedFields(t *testing.T) {
	current := props(map[string]any{
		"youtube_id": map[string]any{"type": "keyword"},
		"legacy_field": map[string]any{
			"type": "text",
		},
		"nested": map[string]any{
			"properties": map[string]any{
				"dropped": map[string]any{"type": "keyword"},
			},
		},
	})
	expected := props(map[string]any{
		"youtube_id": map[string]any{"type": "keyword"},
	})

	d := DiffMappings(current, expected)
	fields := RemovedFields(d)

	want := map[string]bool{"legacy_field": false, "nested": false}
	for _, f := range fields {
		if _, ok := want[f]; !ok {
			t.Fatalf("unexpected removed field %q", f)
		}
		want[f] = true
	}
	for f, seen := range want {
		if !seen {
			t.Fatalf("removed field %q not reported (got %v)", f, fields)
		}
	}
}

func TestParseVersion(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"ta_video_v2", 2, true},
		{"ta_channel_v14", 14, true},
		{"ta_video", 0, false},
		{"ta_video_vx", 0, false},
	}

	for _, tc := range cases {
		got, ok := parseVersion(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseVersion(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
