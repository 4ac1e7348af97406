package cron

import (
	"testing"
	"time"
)

func TestValidateAccepted(t *testing.T) {
	for _, expr := range []string{
		"0 0 *",
		"30 4 *",
		"0 12 0",
		"0,30 * *",
		"* * *",
	} {
		if err := Validate(expr); err != nil {
			t.Errorf("Validate(%q) rejected: %v", expr, err)
		}
	}
}

func TestValidateRejected(t *testing.T) {
	for _, expr := range []string{
		"* 25 *",  // hour out of range
		"60 0 *",  // minute out of range
		"0 0 7",   // day out of range
		"0/5 * *", // step syntax unsupported
		"0 0",     // too few fields
		"0 0 * *", // too many fields
		"a 0 *",   // not an integer
		"1-5 0 *", // range syntax unsupported
	} {
		if err := Validate(expr); err == nil {
			t.Errorf("Validate(%q) accepted, want rejection", expr)
		}
	}
}

func TestNext(t *testing.T) {
	sched, err := Parse("30 4 *", time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	from := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	want := time.Date(2024, 3, 11, 4, 30, 0, 0, time.UTC)
	if got := sched.Next(from); !got.Equal(want) {
		t.Fatalf("Next(%v) = %v, want %v", from, got, want)
	}
}

func TestNextSameDay(t *testing.T) {
	sched, err := Parse("0 18 *", time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	from := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	want := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)
	if got := sched.Next(from); !got.Equal(want) {
		t.Fatalf("Next(%v) = %v, want %v", from, got, want)
	}
}

func TestNextWeekday(t *testing.T) {
	// Sunday is 0.
	sched, err := Parse("0 0 0", time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	from := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC) // a Monday
	got := sched.Next(from)
	if got.Weekday() != time.Sunday {
		t.Fatalf("Next landed on %v, want Sunday", got.Weekday())
	}
}

func TestNextHonorsTimezone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	sched, err := Parse("0 12 *", berlin)
	if err != nil {
		t.Fatal(err)
	}

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got := sched.Next(from)
	if got.In(berlin).Hour() != 12 {
		t.Fatalf("Next in Berlin = %v, want local noon", got.In(berlin))
	}
}
