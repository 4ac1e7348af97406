// Package queue implements the canonical download-queue state machine
// on top of the ta_download index.
package queue

// Decision is the outcome for one id during batch insertion.
type Decision int

const (
	// DecisionSkip drops the id: already queued, ignored or archived.
	DecisionSkip Decision = iota
	// DecisionAdd inserts a fresh row with the requested status.
	DecisionAdd
	// DecisionPriority bumps an already queued row to priority.
	DecisionPriority
)

// IDSet is a membership set of youtube ids.
type IDSet map[string]struct{}

// Has reports membership.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts an id.
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// Decide applies the insertion rules for one id:
//   - archived ids are skipped unless forced
//   - ignored ids are skipped, force re-adds them as pending
//   - ids already pending are skipped, unless auto start was requested
//     which bumps them to priority
//   - everything else is added
func Decide(id string, pending, ignored, archived IDSet, force, autoStart bool) Decision {
	if archived.Has(id) && !force {
		return DecisionSkip
	}

	if ignored.Has(id) {
		if force {
			return DecisionAdd
		}
		return DecisionSkip
	}

	if pending.Has(id) {
		if autoStart {
			return DecisionPriority
		}
		return DecisionSkip
	}

	return DecisionAdd
}
