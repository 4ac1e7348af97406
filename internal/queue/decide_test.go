package queue

import "testing"

func TestDecideFreshID(t *testing.T) {
	got := Decide("abc", IDSet{}, IDSet{}, IDSet{}, false, false)
	if got != DecisionAdd {
		t.Fatalf("fresh id: want add, got %v", got)
	}
}

func TestDecideSecondInsertSkipped(t *testing.T) {
	pending := IDSet{}
	if got := Decide("abc", pending, IDSet{}, IDSet{}, false, false); got != DecisionAdd {
		t.Fatalf("first insert: want add, got %v", got)
	}
	pending.Add("abc")

	// Re-adding without priority must leave exactly one row.
	if got := Decide("abc", pending, IDSet{}, IDSet{}, false, false); got != DecisionSkip {
		t.Fatalf("second insert: want skip, got %v", got)
	}
}

func TestDecidePendingBumpedToPriority(t *testing.T) {
	pending := IDSet{}
	pending.Add("abc")

	got := Decide("abc", pending, IDSet{}, IDSet{}, false, true)
	if got != DecisionPriority {
		t.Fatalf("pending with autostart: want priority, got %v", got)
	}
}

func TestDecideIgnored(t *testing.T) {
	ignored := IDSet{}
	ignored.Add("abc")

	if got := Decide("abc", IDSet{}, ignored, IDSet{}, false, false); got != DecisionSkip {
		t.Fatalf("ignored without force: want skip, got %v", got)
	}
	if got := Decide("abc", IDSet{}, ignored, IDSet{}, true, false); got != DecisionAdd {
		t.Fatalf("ignored with force: want add, got %v", got)
	}
}

func TestDecideArchived(t *testing.T) {
	archived := IDSet{}
	archived.Add("abc")

	if got := Decide("abc", IDSet{}, IDSet{}, archived, false, false); got != DecisionSkip {
		t.Fatalf("archived without force: want skip, got %v", got)
	}
	if got := Decide("abc", IDSet{}, IDSet{}, archived, true, false); got != DecisionAdd {
		t.Fatalf("archived with force: want add, got %v", got)
	}
}
