package pipeline

import (
	"context"
	"testing"
	"time"

	"tubearchivist/internal/config"
	"tubearchivist/internal/extractor"
	"tubearchivist/internal/models"
)

func TestInferVidTypeLongVideo(t *testing.T) {
	meta := &extractor.VideoJSON{ID: "abc", Duration: 200}
	got := InferVidType(context.Background(), meta, nil)
	if got != models.VidTypeVideos {
		t.Fatalf("duration 200: want videos, got %s", got)
	}
}

func TestInferVidTypeWasLive(t *testing.T) {
	meta := &extractor.VideoJSON{ID: "abc", LiveStatus: "was_live", Duration: 3600}
	got := InferVidType(context.Background(), meta, nil)
	if got != models.VidTypeStreams {
		t.Fatalf("was_live: want streams, got %s", got)
	}
}

func TestInferVidTypeShortViaProbe(t *testing.T) {
	meta := &extractor.VideoJSON{ID: "abc", Duration: 30}
	probe := func(context.Context, string) bool { return true }

	got := InferVidType(context.Background(), meta, probe)
	if got != models.VidTypeShorts {
		t.Fatalf("short with positive probe: want shorts, got %s", got)
	}
}

func TestInferVidTypeShortProbeMiss(t *testing.T) {
	meta := &extractor.VideoJSON{ID: "abc", Duration: 30}
	probe := func(context.Context, string) bool { return false }

	got := InferVidType(context.Background(), meta, probe)
	if got != models.VidTypeVideos {
		t.Fatalf("short with negative probe: want videos, got %s", got)
	}
}

func TestInferVidTypeLandscapeSkipsProbe(t *testing.T) {
	meta := &extractor.VideoJSON{ID: "abc", Duration: 30, Width: 1920, Height: 1080}
	probe := func(context.Context, string) bool {
		t.Fatal("probe must not run for landscape videos")
		return false
	}

	got := InferVidType(context.Background(), meta, probe)
	if got != models.VidTypeVideos {
		t.Fatalf("landscape: want videos, got %s", got)
	}
}

func TestPublishedPrefersTimestamp(t *testing.T) {
	p := &Pipeline{loc: time.UTC}
	meta := &extractor.VideoJSON{Timestamp: 1700000000, UploadDate: "20230115"}
	if got := p.published(meta); got != 1700000000 {
		t.Fatalf("want timestamp passthrough, got %d", got)
	}
}

func TestPublishedFromUploadDate(t *testing.T) {
	p := &Pipeline{loc: time.UTC}
	meta := &extractor.VideoJSON{UploadDate: "20230115"}

	want := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC).Unix()
	if got := p.published(meta); got != want {
		t.Fatalf("upload_date 20230115: want %d, got %d", want, got)
	}
}

func TestBuildVideoQueries(t *testing.T) {
	cfg := config.Defaults()
	cfg.Subscriptions.ChannelSize = 25
	cfg.Subscriptions.LiveChannelSize = 0
	cfg.Subscriptions.ShortsChannelSize = 10

	ch := &models.Channel{ChannelOverwrites: map[string]any{
		"subscriptions_shorts_channel_size": float64(3),
	}}

	got := BuildVideoQueries(ch, cfg, "")
	want := []VideoQuery{
		{VidType: models.VidTypeVideos, Limit: 25},
		{VidType: models.VidTypeShorts, Limit: 3},
	}
	if len(got) != len(want) {
		t.Fatalf("want %d queries, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("query %d: want %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestBuildVideoQueriesSingleType(t *testing.T) {
	got := BuildVideoQueries(nil, config.Defaults(), models.VidTypeStreams)
	if len(got) != 1 || got[0].VidType != models.VidTypeStreams {
		t.Fatalf("want one streams query, got %v", got)
	}
}
