package downloads

import "testing"

func TestParseProgress(t *testing.T) {
	line := "[download]  42.5% of 120.00MiB at 2.50MiB/s ETA 00:32"

	p, ok := ParseProgress(line)
	if !ok {
		t.Fatalf("line not recognized: %q", line)
	}
	if p.Percent != 42.5 {
		t.Errorf("percent: want 42.5, got %v", p.Percent)
	}
	want := "42.5% of 120.00MiB at 2.50MiB/s - time left: 00:32"
	if p.Message != want {
		t.Errorf("message: want %q, got %q", want, p.Message)
	}
	if p.Fraction() != 0.425 {
		t.Errorf("fraction: want 0.425, got %v", p.Fraction())
	}
}

func TestParseProgressEstimatedSize(t *testing.T) {
	line := "[download]   5.0% of ~ 1.20GiB at 512.00KiB/s ETA 41:05"

	p, ok := ParseProgress(line)
	if !ok {
		t.Fatalf("line not recognized: %q", line)
	}
	if p.Percent != 5.0 {
		t.Errorf("percent: want 5.0, got %v", p.Percent)
	}
}

func TestParseProgressNonProgressLines(t *testing.T) {
	for _, line := range []string{
		"[youtube] 7DKv5H5Frt0: Downloading webpage",
		"[download] Destination: /cache/download/7DKv5H5Frt0.mp4",
		"[download] 100% of 120.00MiB in 00:48",
		"",
	} {
		if _, ok := ParseProgress(line); ok {
			t.Errorf("line wrongly parsed as progress: %q", line)
		}
	}
}
