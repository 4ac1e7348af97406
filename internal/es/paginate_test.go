package es

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPaginateClosesRotatedPIT(t *testing.T) {
	var closedID string

	mux := http.NewServeMux()
	mux.HandleFunc("/ta_video/_pit", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"pit-initial"}`)
	})
	mux.HandleFunc("/ta_video/_count", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count":1}`)
	})
	mux.HandleFunc("/_search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pit_id":"pit-rotated","hits":{"total":{"value":1},"hits":[`+
			`{"_index":"ta_video","_id":"7DKv5H5Frt0","_source":{"youtube_id":"7DKv5H5Frt0"},"sort":[0]}]}}`)
	})
	mux.HandleFunc("/_pit", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("close body not JSON: %v", err)
		}
		closedID = body.ID
		fmt.Fprint(w, `{"succeeded":true}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := NewConnection(srv.URL, "elastic", "secret")
	hits, err := conn.Paginate(context.Background(), "ta_video", nil, nil)
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("want 1 hit, got %d", len(hits))
	}
	if closedID != "pit-rotated" {
		t.Fatalf("closed PIT %q, want the rotated id", closedID)
	}
}
