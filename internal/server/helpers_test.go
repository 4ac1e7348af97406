package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tubearchivist/internal/errs"
)

func TestRespondErrMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("video: %w", errs.ErrNotFound), http.StatusNotFound},
		{"validation", fmt.Errorf("bad cron: %w", errs.ErrValidation), http.StatusBadRequest},
		{"internal", fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondErr(rec, tc.err)
			if rec.Code != tc.want {
				t.Errorf("respondErr(%v) = %d, want %d", tc.err, rec.Code, tc.want)
			}
		})
	}
}

func TestRespondErrHidesInternalDetail(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	respondErr(rec, fmt.Errorf("dial tcp 10.0.0.1:9200: connection refused"))
	if strings.Contains(rec.Body.String(), "10.0.0.1") {
		t.Errorf("internal error detail leaked to the client: %q", rec.Body.String())
	}
}

func TestDecodeBody(t *testing.T) {
	t.Parallel()

	var out struct {
		Status string `json:"status"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"pending"}`))
	rec := httptest.NewRecorder()
	if !decodeBody(rec, req, &out) {
		t.Fatalf("decodeBody rejected valid JSON")
	}
	if out.Status != "pending" {
		t.Errorf("decoded status = %q, want pending", out.Status)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{invalid`))
	rec = httptest.NewRecorder()
	if decodeBody(rec, req, &out) {
		t.Fatalf("decodeBody accepted invalid JSON")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRespondJSONContentType(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	respondJSON(rec, http.StatusOK, map[string]string{"response": "pong"})
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if !strings.Contains(rec.Body.String(), "pong") {
		t.Errorf("body = %q, missing payload", rec.Body.String())
	}
}
