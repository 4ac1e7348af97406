package release

import "testing"

func TestNewerThan(t *testing.T) {
	cases := []struct {
		candidate, current string
		want               bool
	}{
		{"v0.4.0", "v0.3.6", true},
		{"v0.3.6", "v0.3.6", false},
		{"v0.3.5", "v0.3.6", false},
		{"0.4.0", "v0.3.6", true},
		{"v0.4.0-unstable", "v0.3.6", true},
		{"v0.3.6-unstable", "v0.3.6", false},
		{"v1.0.0", "v0.9.9", true},
		{"v0.3.6.1", "v0.3.6", true},
		{"v0.3.6", "v0.3.6.1", false},
	}
	for _, c := range cases {
		if got := NewerThan(c.candidate, c.current); got != c.want {
			t.Errorf("NewerThan(%q, %q) = %v, want %v", c.candidate, c.current, got, c.want)
		}
	}
}
