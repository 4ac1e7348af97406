package importer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanMediaDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, "UCBa659QWEk1AI4Tg--mrJ2A"))
	mustTouch(t, filepath.Join(dir, "UCBa659QWEk1AI4Tg--mrJ2A", "7DKv5H5Frt0.mp4"))
	mustTouch(t, filepath.Join(dir, "UCBa659QWEk1AI4Tg--mrJ2A", "7DKv5H5Frt0.en.vtt"))
	mustMkdir(t, filepath.Join(dir, "UCother000000000000000000"))
	mustTouch(t, filepath.Join(dir, "UCother000000000000000000", "YG3-Pw3rixU.mp4"))
	// Loose files at the top level are not part of the layout.
	mustTouch(t, filepath.Join(dir, "stray.mp4"))

	got, err := scanMediaDir(dir)
	if err != nil {
		t.Fatalf("scanMediaDir: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("found %d media files, want 2: %v", len(got), got)
	}
	want := filepath.Join(dir, "UCBa659QWEk1AI4Tg--mrJ2A", "7DKv5H5Frt0.mp4")
	if got["7DKv5H5Frt0"] != want {
		t.Errorf("7DKv5H5Frt0 = %q, want %q", got["7DKv5H5Frt0"], want)
	}
}

func TestScanMediaDirMissing(t *testing.T) {
	t.Parallel()

	got, err := scanMediaDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing dir should be a no-op, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("missing dir returned %d entries", len(got))
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
}

func mustTouch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}
