package reindex

import "testing"

func TestBudget(t *testing.T) {
	cases := []struct {
		total    int64
		interval int
		want     int
	}{
		{total: 0, interval: 90, want: 0},
		{total: 90, interval: 90, want: 2},     // 1.2 rounded up
		{total: 900, interval: 90, want: 12},   // exact
		{total: 1000, interval: 90, want: 14},  // 13.33 rounded up
		{total: 5000, interval: 1, want: 6000}, // full backlog plus headroom
		{total: 100, interval: 0, want: 0},
	}
	for _, c := range cases {
		if got := Budget(c.total, c.interval); got != c.want {
			t.Errorf("Budget(%d, %d) = %d, want %d", c.total, c.interval, got, c.want)
		}
	}
}

func TestIndexFields(t *testing.T) {
	for index, want := range map[string][2]string{
		"ta_video":    {"active", "vid_last_refresh"},
		"ta_channel":  {"channel_active", "channel_last_refresh"},
		"ta_playlist": {"playlist_active", "playlist_last_refresh"},
	} {
		active, refresh := indexFields(index)
		if active != want[0] || refresh != want[1] {
			t.Errorf("indexFields(%s) = %s, %s; want %s, %s", index, active, refresh, want[0], want[1])
		}
	}
}

func TestDedup(t *testing.T) {
	got := dedup([]string{"a", "b", "a", "c", "b"})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("dedup order-preserving failed: %v", got)
	}
}
