package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tubearchivist/internal/config"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/es"
	"tubearchivist/internal/models"
	"tubearchivist/internal/pipeline"
)

func TestChannelQueriesTabIntersection(t *testing.T) {
	cfg := config.Defaults()
	ch := &models.Channel{
		ChannelID:   "UCBa659QWEk1AI4Tg--mrJ2A",
		ChannelTabs: []string{"videos", "shorts"},
	}

	queries := ChannelQueries(ch, cfg)
	for _, q := range queries {
		if q.VidType == models.VidTypeStreams {
			t.Fatalf("streams query built for channel without streams tab")
		}
	}
	if len(queries) != 2 {
		t.Fatalf("want 2 queries for tabs videos+shorts, got %d", len(queries))
	}
}

func TestChannelQueriesNoTabData(t *testing.T) {
	cfg := config.Defaults()
	ch := &models.Channel{ChannelID: "UCBa659QWEk1AI4Tg--mrJ2A"}

	queries := ChannelQueries(ch, cfg)
	if len(queries) != 3 {
		t.Fatalf("channel without tab data scans all enabled types, got %d", len(queries))
	}
}

func TestChannelQueriesDisabledType(t *testing.T) {
	cfg := config.Defaults()
	cfg.Subscriptions.ShortsChannelSize = 0
	ch := &models.Channel{
		ChannelID:   "UCBa659QWEk1AI4Tg--mrJ2A",
		ChannelTabs: []string{"videos", "streams", "shorts"},
	}

	queries := ChannelQueries(ch, cfg)
	for _, q := range queries {
		if q.VidType == models.VidTypeShorts {
			t.Fatalf("shorts query built despite size 0")
		}
	}
	if len(queries) != 2 {
		t.Fatalf("want 2 queries, got %d", len(queries))
	}
}

func TestScannerWithHooks(t *testing.T) {
	pipe := pipeline.New(nil, nil, nil, config.Defaults(), nil)
	shared := NewScanner(nil, nil, config.Defaults(), pipe)

	hooked := shared.WithHooks(func() bool { return true }, func(string) {})

	if shared.Stop != nil || pipe.Stop != nil || pipe.Notify != nil {
		t.Fatalf("shared scanner or pipeline picked up per-run hooks")
	}
	if hooked.pipe == pipe {
		t.Fatalf("hooked scanner still shares the pipeline instance")
	}
	if hooked.Stop == nil || hooked.pipe.Stop == nil || hooked.pipe.Notify == nil {
		t.Fatalf("hooked copy missing callbacks")
	}
}

func TestSetOverwrites(t *testing.T) {
	channelID := "UCBa659QWEk1AI4Tg--mrJ2A"
	var updateBody []byte

	mux := http.NewServeMux()
	mux.HandleFunc("/ta_channel/_doc/"+channelID, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"found":true,"_source":{"channel_id":%q,"channel_overwrites":{"autodelete_days":30}}}`, channelID)
	})
	mux.HandleFunc("/ta_channel/_update/"+channelID, func(w http.ResponseWriter, r *http.Request) {
		updateBody, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"result":"updated"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := es.NewConnection(srv.URL, "elastic", "secret")
	mgr := NewManager(conn, nil, config.Defaults())

	err := mgr.SetOverwrites(context.Background(), channelID, map[string]any{
		"download_format": "best",
		"autodelete_days": nil,
	})
	if err != nil {
		t.Fatalf("SetOverwrites failed: %v", err)
	}

	var update struct {
		Doc struct {
			ChannelOverwrites map[string]any `json:"channel_overwrites"`
		} `json:"doc"`
	}
	if err := json.Unmarshal(updateBody, &update); err != nil {
		t.Fatalf("decode update body: %v", err)
	}
	if got := update.Doc.ChannelOverwrites["download_format"]; got != "best" {
		t.Errorf("download_format = %v, want best", got)
	}
	if _, ok := update.Doc.ChannelOverwrites["autodelete_days"]; ok {
		t.Errorf("nil value should clear autodelete_days, still present")
	}
}

func TestSetOverwritesUnknownKey(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	conn := es.NewConnection(srv.URL, "elastic", "secret")
	mgr := NewManager(conn, nil, config.Defaults())

	err := mgr.SetOverwrites(context.Background(), "UCBa659QWEk1AI4Tg--mrJ2A", map[string]any{
		"no_such_key": true,
	})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("unknown key error = %v, want validation", err)
	}
	if requests != 0 {
		t.Fatalf("rejected overwrites must not touch the store, saw %d requests", requests)
	}
}
