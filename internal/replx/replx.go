// Package replx implements an interactive step debugger over an LTS
// provider: a prompt that lets a user walk one labeled transition at a
// time, inspect what's currently enabled, and back up.
package replx

import (
	"github.com/cspx/cspx/internal/lts"
)

// Debugger holds the stack of states visited so far; Current is always
// the top of the stack. Step/Back push/pop it, so the full history is
// available for :back and :trace without recomputation.
type Debugger struct {
	prov  *lts.Provider
	stack []*lts.State
	trace []string
}

// New starts a debugger session rooted at initial.
func New(prov *lts.Provider, initial *lts.State) *Debugger {
	return &Debugger{prov: prov, stack: []*lts.State{initial}}
}

// Current returns the state at the top of the history stack.
func (d *Debugger) Current() *lts.State { return d.stack[len(d.stack)-1] }

// Transitions returns the enabled transitions from Current, in the
// provider's canonical (label, encoded-next-state) order.
func (d *Debugger) Transitions() []lts.Transition {
	return d.prov.Transitions(d.Current())
}

// Step takes the first enabled transition whose label matches, pushing the
// resulting state onto the history stack. Reports false if no transition
// offers that label.
func (d *Debugger) Step(label string) bool {
	for _, t := range d.Transitions() {
		if t.Label == label {
			d.stack = append(d.stack, t.Next)
			d.trace = append(d.trace, label)
			return true
		}
	}
	return false
}

// Back undoes the last Step. Reports false if already at the root.
func (d *Debugger) Back() bool {
	if len(d.stack) <= 1 {
		return false
	}
	d.stack = d.stack[:len(d.stack)-1]
	d.trace = d.trace[:len(d.trace)-1]
	return true
}

// Trace returns the labels taken to reach Current, in order.
func (d *Debugger) Trace() []string {
	return append([]string(nil), d.trace...)
}

// Depth is how many steps have been taken (0 at the root).
func (d *Debugger) Depth() int { return len(d.trace) }

// StateKey is the canonical byte key for Current, as used by the state
// stores and checkers — useful for correlating a debugger session against
// a counterexample trace or a store dump.
func (d *Debugger) StateKey() []byte {
	return lts.Encode(d.Current())
}
