package importer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIDFromFilename(t *testing.T) {
	cases := map[string]string{
		"My Video [7DKv5H5Frt0].mp4":         "7DKv5H5Frt0",
		"weird [brackets] [YG3-Pw3rixU].mp4": "YG3-Pw3rixU",
		"no id here.mp4":                     "",
		"short [abc].mp4":                    "",
	}
	for name, want := range cases {
		if got := IDFromFilename(name); got != want {
			t.Errorf("IDFromFilename(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("My Video [7DKv5H5Frt0].mp4", "x")
	write("sidecar video.mp4", "x")
	write("sidecar video.info.json", `{"id": "YG3-Pw3rixU"}`)
	write("unidentifiable.mp4", "x")
	write("notes.txt", "x")

	got, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 candidates, got %d: %+v", len(got), got)
	}

	ids := map[string]bool{}
	for _, c := range got {
		ids[c.YoutubeID] = true
	}
	if !ids["7DKv5H5Frt0"] || !ids["YG3-Pw3rixU"] {
		t.Fatalf("wrong ids discovered: %v", ids)
	}
}

func TestScanMissingDir(t *testing.T) {
	got, err := Scan(filepath.Join(t.TempDir(), "absent"))
	if err != nil || got != nil {
		t.Fatalf("missing dir must be a no-op, got %v, %v", got, err)
	}
}
