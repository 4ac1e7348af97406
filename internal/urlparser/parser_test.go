package urlparser

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tubearchivist/internal/errs"
	"tubearchivist/internal/models"
)

// fakeResolver maps URLs to channel ids and counts lookups.
type fakeResolver struct {
	ids   map[string]string
	calls int
}

func (f *fakeResolver) ResolveChannelID(_ context.Context, url string) (string, error) {
	f.calls++
	id, ok := f.ids[url]
	if !ok {
		return "", errors.New("unresolvable")
	}
	return id, nil
}

// memCache is an in-memory HandleCache.
type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) GetJSON(_ context.Context, key string, out any) error {
	raw, ok := m.data[key]
	if !ok {
		return errs.ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

func (m *memCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func TestParseKnownForms(t *testing.T) {
	resolver := &fakeResolver{ids: map[string]string{
		"https://www.youtube.com/@TomScottGo": "UCBa659QWEk1AI4Tg--mrJ2A",
	}}
	p := New(resolver, newMemCache())

	cases := []struct {
		in      string
		kind    models.RefKind
		id      string
		vidType models.VidType
	}{
		{"7DKv5H5Frt0", models.RefVideo, "7DKv5H5Frt0", models.VidTypeUnknown},
		{"https://youtu.be/7DKv5H5Frt0", models.RefVideo, "7DKv5H5Frt0", models.VidTypeUnknown},
		{"https://www.youtube.com/watch?v=7DKv5H5Frt0", models.RefVideo, "7DKv5H5Frt0", models.VidTypeUnknown},
		{"https://www.youtube.com/shorts/YG3-Pw3rixU", models.RefVideo, "YG3-Pw3rixU", models.VidTypeShorts},
		{"https://www.youtube.com/live/7DKv5H5Frt0", models.RefVideo, "7DKv5H5Frt0", models.VidTypeUnknown},
		{"UCBa659QWEk1AI4Tg--mrJ2A", models.RefChannel, "UCBa659QWEk1AI4Tg--mrJ2A", models.VidTypeUnknown},
		{"https://www.youtube.com/channel/UCBa659QWEk1AI4Tg--mrJ2A", models.RefChannel, "UCBa659QWEk1AI4Tg--mrJ2A", models.VidTypeUnknown},
		{"https://www.youtube.com/channel/UCBa659QWEk1AI4Tg--mrJ2A/streams", models.RefChannel, "UCBa659QWEk1AI4Tg--mrJ2A", models.VidTypeStreams},
		{"@TomScottGo", models.RefChannel, "UCBa659QWEk1AI4Tg--mrJ2A", models.VidTypeUnknown},
		{"PL96C35uN7xGJu6skU4TBYrIWxggkZBrF5", models.RefPlaylist, "PL96C35uN7xGJu6skU4TBYrIWxggkZBrF5", models.VidTypeUnknown},
		{"https://www.youtube.com/playlist?list=PL96C35uN7xGJu6skU4TBYrIWxggkZBrF5", models.RefPlaylist, "PL96C35uN7xGJu6skU4TBYrIWxggkZBrF5", models.VidTypeUnknown},
		{"WL", models.RefPlaylist, "WL", models.VidTypeUnknown},
		{"LL", models.RefPlaylist, "LL", models.VidTypeUnknown},
		{"TA_playlist_custom01", models.RefPlaylist, "TA_playlist_custom01", models.VidTypeUnknown},
	}

	for _, tc := range cases {
		refs, err := p.Parse(context.Background(), tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if len(refs) != 1 {
			t.Fatalf("parse %q: expected one ref, got %d", tc.in, len(refs))
		}
		ref := refs[0]
		if ref.Kind != tc.kind || ref.ID != tc.id || ref.VidType != tc.vidType {
			t.Fatalf("parse %q = %+v, want kind=%s id=%s vid_type=%s",
				tc.in, ref, tc.kind, tc.id, tc.vidType)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	p := New(&fakeResolver{}, nil)

	for _, in := range []string{"aaaaa", "https://vimeo.com/12345"} {
		if _, err := p.Parse(context.Background(), in); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("parse %q: expected validation error, got %v", in, err)
		}
	}
}

func TestParseMultipleTokens(t *testing.T) {
	p := New(&fakeResolver{}, nil)

	refs, err := p.Parse(context.Background(), "7DKv5H5Frt0 UCBa659QWEk1AI4Tg--mrJ2A")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].Kind != models.RefVideo || refs[1].Kind != models.RefChannel {
		t.Fatalf("unexpected kinds: %+v", refs)
	}
}

func TestHandleResolutionCached(t *testing.T) {
	resolver := &fakeResolver{ids: map[string]string{
		"https://www.youtube.com/@TomScottGo": "UCBa659QWEk1AI4Tg--mrJ2A",
	}}
	cache := newMemCache()
	p := New(resolver, cache)

	for i := 0; i < 3; i++ {
		if _, err := p.Parse(context.Background(), "@TomScottGo"); err != nil {
			t.Fatalf("parse failed: %v", err)
		}
	}

	if resolver.calls != 1 {
		t.Fatalf("expected one remote resolution, got %d", resolver.calls)
	}
	if _, ok := cache.data["channel:handlesearch:@tomscottgo"]; !ok {
		t.Fatalf("handle not cached under lowercased key: %v", keysOf(cache.data))
	}
}

func keysOf(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
