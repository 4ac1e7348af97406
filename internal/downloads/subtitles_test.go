package downloads

import (
	"testing"

	"tubearchivist/internal/extractor"
	"tubearchivist/internal/subtitles"
)

func TestPickTrackPrefersUserSource(t *testing.T) {
	t.Parallel()

	meta := &extractor.VideoJSON{
		Subtitles: map[string][]extractor.SubtitleTrack{
			"en": {
				{Ext: "vtt", URL: "http://example.com/en.vtt"},
				{Ext: "json3", URL: "http://example.com/en.json3"},
			},
		},
		AutomaticCaptions: map[string][]extractor.SubtitleTrack{
			"en": {{Ext: "json3", URL: "http://example.com/en-auto.json3"}},
		},
	}

	track, source := pickTrack(meta, "en", subtitles.SourceUser)
	if track == nil {
		t.Fatal("expected a track")
	}
	if source != subtitles.SourceUser {
		t.Errorf("source = %q, want user", source)
	}
	if track.URL != "http://example.com/en.json3" {
		t.Errorf("picked %q, want the user json3 rendition", track.URL)
	}
}

func TestPickTrackFallsBackToAuto(t *testing.T) {
	t.Parallel()

	meta := &extractor.VideoJSON{
		AutomaticCaptions: map[string][]extractor.SubtitleTrack{
			"de": {{Ext: "json3", URL: "http://example.com/de-auto.json3"}},
		},
	}

	track, source := pickTrack(meta, "de", subtitles.SourceUser)
	if track == nil {
		t.Fatal("expected the auto track as fallback")
	}
	if source != subtitles.SourceAuto {
		t.Errorf("source = %q, want auto", source)
	}
}

func TestPickTrackAutoSourceSkipsUser(t *testing.T) {
	t.Parallel()

	meta := &extractor.VideoJSON{
		Subtitles: map[string][]extractor.SubtitleTrack{
			"en": {{Ext: "json3", URL: "http://example.com/en.json3"}},
		},
		AutomaticCaptions: map[string][]extractor.SubtitleTrack{
			"en": {{Ext: "json3", URL: "http://example.com/en-auto.json3"}},
		},
	}

	track, source := pickTrack(meta, "en", subtitles.SourceAuto)
	if track == nil {
		t.Fatal("expected a track")
	}
	if source != subtitles.SourceAuto || track.URL != "http://example.com/en-auto.json3" {
		t.Errorf("got %q from %q, want the auto rendition", track.URL, source)
	}
}

func TestPickTrackNoJSON3(t *testing.T) {
	t.Parallel()

	meta := &extractor.VideoJSON{
		Subtitles: map[string][]extractor.SubtitleTrack{
			"en": {{Ext: "vtt", URL: "http://example.com/en.vtt"}},
		},
	}

	if track, _ := pickTrack(meta, "en", subtitles.SourceUser); track != nil {
		t.Errorf("expected no track without a json3 rendition, got %q", track.URL)
	}
}
