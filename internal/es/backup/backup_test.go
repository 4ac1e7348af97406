package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tubearchivist/internal/es"
)

// fakeStore serves the minimal store API used by export and restore.
type fakeStore struct {
	sources  []string
	bulkBody string
}

func (f *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ta_video/_pit", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"pit-1"}`)
	})
	mux.HandleFunc("/ta_video/_count", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"count":%d}`, len(f.sources))
	})
	mux.HandleFunc("/_search", func(w http.ResponseWriter, r *http.Request) {
		hits := make([]string, 0, len(f.sources))
		for i, src := range f.sources {
			hits = append(hits, fmt.Sprintf(`{"_index":"ta_video","_id":"id%d","_source":%s,"sort":[%d]}`, i, src, i))
		}
		fmt.Fprintf(w, `{"pit_id":"pit-1","hits":{"total":{"value":%d},"hits":[%s]}}`,
			len(f.sources), strings.Join(hits, ","))
	})
	mux.HandleFunc("/_pit", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"succeeded":true}`)
	})
	mux.HandleFunc("/_bulk", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		f.bulkBody = string(raw)
		fmt.Fprint(w, `{"errors":false,"items":[]}`)
	})

	return mux
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	store := &fakeStore{
		sources: []string{
			`{"youtube_id":"7DKv5H5Frt0","title":"first","published":1700000000}`,
			`{"youtube_id":"YG3-Pw3rixU","title":"second","media_size":42}`,
		},
	}
	srv := httptest.NewServer(store.handler())
	defer srv.Close()

	conn := es.NewConnection(srv.URL, "elastic", "secret")
	mgr := NewManager(conn, t.TempDir(), []string{"ta_video"})

	archive, err := mgr.Run(context.Background(), ReasonManual)
	if err != nil {
		t.Fatalf("backup run failed: %v", err)
	}
	if !strings.HasSuffix(archive, "-manual.zip") {
		t.Fatalf("archive name %q missing reason suffix", archive)
	}

	if err := mgr.Restore(context.Background(), archive); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	// The bulk payload must contain every original source byte-for-byte.
	lines := strings.Split(strings.TrimRight(store.bulkBody, "\n"), "\n")
	if len(lines) != 2*len(store.sources) {
		t.Fatalf("expected %d bulk lines, got %d", 2*len(store.sources), len(lines))
	}
	for i, src := range store.sources {
		action := lines[i*2]
		var decoded struct {
			Index struct {
				Index string `json:"_index"`
				ID    string `json:"_id"`
			} `json:"index"`
		}
		if err := json.Unmarshal([]byte(action), &decoded); err != nil {
			t.Fatalf("bad action line %q: %v", action, err)
		}
		if decoded.Index.Index != "ta_video" {
			t.Fatalf("action line targets %q, want ta_video", decoded.Index.Index)
		}
		if got := lines[i*2+1]; got != src {
			t.Fatalf("source line %d changed:\n got: %s\nwant: %s", i, got, src)
		}
	}
}

func TestRotateKeepsNonAuto(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(nil, dir, nil)

	names := []string{
		"ta_backup-20260101-auto.zip",
		"ta_backup-20260102-auto.zip",
		"ta_backup-20260103-auto.zip",
		"ta_backup-20260104-manual.zip",
		"ta_backup-20260105-update.zip",
	}
	for _, n := range names {
		writeEmpty(t, dir+"/backup/"+n)
	}

	if err := mgr.Rotate(1); err != nil {
		t.Fatalf("rotate failed: %v", err)
	}

	left, err := mgr.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	want := map[string]bool{
		"ta_backup-20260103-auto.zip":   true, // newest auto kept
		"ta_backup-20260104-manual.zip": true,
		"ta_backup-20260105-update.zip": true,
	}
	if len(left) != len(want) {
		t.Fatalf("rotate left %v, want %v", left, want)
	}
	for _, n := range left {
		if !want[n] {
			t.Fatalf("rotate kept unexpected %q", n)
		}
	}
}

func writeEmpty(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
