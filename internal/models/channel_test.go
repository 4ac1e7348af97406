package models

import (
	"errors"
	"testing"
)

func TestOverwriteAccessors(t *testing.T) {
	t.Parallel()

	ch := Channel{ChannelOverwrites: map[string]any{
		"autodelete_days": float64(30), // decoded JSON numbers are float64
		"download_format": "bestvideo",
		"index_playlists": true,
	}}

	if got := ch.OverwriteInt("autodelete_days", 0); got != 30 {
		t.Errorf("OverwriteInt = %d, want 30", got)
	}
	if got := ch.OverwriteInt("subscriptions_channel_size", 50); got != 50 {
		t.Errorf("unset OverwriteInt = %d, want default 50", got)
	}
	if got := ch.OverwriteString("download_format"); got != "bestvideo" {
		t.Errorf("OverwriteString = %q", got)
	}
	if !ch.OverwriteBool("index_playlists") {
		t.Error("OverwriteBool(index_playlists) = false")
	}
	if ch.OverwriteBool("integrate_sponsorblock") {
		t.Error("unset OverwriteBool = true")
	}
}

func TestValidateOverwrites(t *testing.T) {
	t.Parallel()

	if err := ValidateOverwrites(map[string]any{"download_format": "best"}); err != nil {
		t.Errorf("known key rejected: %v", err)
	}

	err := ValidateOverwrites(map[string]any{"no_such_key": 1})
	if err == nil {
		t.Fatal("unknown key accepted")
	}
	var keyErr *OverwriteKeyError
	if !errors.As(err, &keyErr) || keyErr.Key != "no_such_key" {
		t.Errorf("error = %v, want OverwriteKeyError for no_such_key", err)
	}
}

func TestHasTab(t *testing.T) {
	t.Parallel()

	ch := Channel{ChannelTabs: []string{"videos", "shorts"}}
	if !ch.HasTab("shorts") {
		t.Error("HasTab(shorts) = false")
	}
	if ch.HasTab("streams") {
		t.Error("HasTab(streams) = true")
	}
}
