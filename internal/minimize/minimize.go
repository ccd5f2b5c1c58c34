// Package minimize implements the oracle-guided counterexample shrinker
// (component I): delta-debugging-lite over a trace-kind counterexample's
// event list.
package minimize

import "github.com/cspx/cspx/internal/result"

// Oracle reports whether candidate still reproduces the original failure
// class. The caller (the engine that produced the counterexample) supplies
// this; minimize never inspects the failure beyond Type/Events.
type Oracle func(candidate []string) bool

// Minimize repeatedly tries dropping one event at a time, keeping the drop
// whenever the oracle still accepts, restarting the scan on each successful
// drop, until no single deletion preserves the failure. Non-trace
// counterexamples, a nil oracle, or an oracle that rejects the original
// trace are all left untouched with IsMinimized=false — this is the
// explicit fallback spec.md §4.I requires, not an error.
func Minimize(ce *result.Counterexample, oracle Oracle) *result.Counterexample {
	if ce == nil || ce.Type != "trace" || oracle == nil {
		return ce
	}
	candidate := ce.Labels()
	if !oracle(candidate) {
		return ce
	}

	for {
		shrunk := false
		for i := range candidate {
			trial := make([]string, 0, len(candidate)-1)
			trial = append(trial, candidate[:i]...)
			trial = append(trial, candidate[i+1:]...)
			if oracle(trial) {
				candidate = trial
				shrunk = true
				break
			}
		}
		if !shrunk {
			break
		}
	}

	events := make([]result.Event, len(candidate))
	for i, l := range candidate {
		events[i] = result.Event{Label: l}
	}
	ce.Events = events
	ce.IsMinimized = true
	return ce
}
