// Package explore implements the three BFS exploration modes over an LTS
// provider and a state store: serial, parallel non-deterministic, and
// parallel deterministic.
package explore

import (
	"sort"
	"sync"

	"github.com/cspx/cspx/internal/lts"
	"github.com/cspx/cspx/internal/statecodec"
	"github.com/cspx/cspx/internal/store"
)

// Stats is the result of an exploration run.
type Stats struct {
	States      int
	Transitions int
}

// Explorer drives BFS over a provider, recording discovered states in a
// store.
type Explorer struct {
	Provider *lts.Provider
	Store    store.Store
}

func New(p *lts.Provider, s store.Store) *Explorer {
	return &Explorer{Provider: p, Store: s}
}

// Serial pops a FIFO of seeds, expands each, inserts discovered next-states,
// and enqueues new ones. Transitions are counted per edge generated,
// including duplicates.
func (e *Explorer) Serial(seed *lts.State) (Stats, error) {
	var stats Stats
	isNew, err := e.Store.Insert(lts.Encode(seed))
	if err != nil {
		return stats, err
	}
	if isNew {
		stats.States++
	}

	queue := []*lts.State{seed}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, t := range e.Provider.Transitions(s) {
			stats.Transitions++
			isNew, err := e.Store.Insert(lts.Encode(t.Next))
			if err != nil {
				return stats, err
			}
			if isNew {
				stats.States++
				queue = append(queue, t.Next)
			}
		}
	}
	return stats, nil
}

// expanded pairs a frontier state with its freshly computed successor
// transitions, produced by a worker and consumed by the sequential
// insertion pass.
type expanded struct {
	state *lts.State
	trans []lts.Transition
}

// ParallelND performs level-synchronous map-style expansion of a frontier
// using a fixed-size worker pool; the main thread sequentially inserts all
// discovered successors. Insert order and therefore tie-breaks are not
// guaranteed deterministic across runs.
func (e *Explorer) ParallelND(seed *lts.State, workers int) (Stats, error) {
	return e.levelSynchronous(seed, workers, false)
}

// ParallelDeterministic is identical to ParallelND except the current
// frontier is sorted in canonical state order before dispatch and newly
// produced successors are sorted and globally deduplicated before
// insertion, making the sequence of insertions reproducible given the same
// seed and worker count.
func (e *Explorer) ParallelDeterministic(seed *lts.State, workers int) (Stats, error) {
	return e.levelSynchronous(seed, workers, true)
}

func (e *Explorer) levelSynchronous(seed *lts.State, workers int, deterministic bool) (Stats, error) {
	if workers < 1 {
		workers = 1
	}
	var stats Stats
	isNew, err := e.Store.Insert(lts.Encode(seed))
	if err != nil {
		return stats, err
	}
	if isNew {
		stats.States++
	}

	frontier := []*lts.State{seed}
	for len(frontier) > 0 {
		if deterministic {
			sort.Slice(frontier, func(i, j int) bool {
				return statecodec.Compare(lts.Encode(frontier[i]), lts.Encode(frontier[j])) < 0
			})
		}

		results, err := e.expandFrontier(frontier, workers)
		if err != nil {
			return stats, err
		}

		var nextFrontier []*lts.State
		if deterministic {
			nextFrontier, err = e.insertDeterministic(results, &stats)
		} else {
			nextFrontier, err = e.insertSequential(results, &stats)
		}
		if err != nil {
			return stats, err
		}
		frontier = nextFrontier
	}
	return stats, nil
}

// expandFrontier computes each frontier state's successor transitions in
// parallel via a fixed-size worker pool; no worker touches the store.
func (e *Explorer) expandFrontier(frontier []*lts.State, workers int) ([]expanded, error) {
	results := make([]expanded, len(frontier))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = expanded{state: frontier[i], trans: e.Provider.Transitions(frontier[i])}
			}
		}()
	}
	for i := range frontier {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results, nil
}

func (e *Explorer) insertSequential(results []expanded, stats *Stats) ([]*lts.State, error) {
	var next []*lts.State
	for _, r := range results {
		for _, t := range r.trans {
			stats.Transitions++
			isNew, err := e.Store.Insert(lts.Encode(t.Next))
			if err != nil {
				return nil, err
			}
			if isNew {
				stats.States++
				next = append(next, t.Next)
			}
		}
	}
	return next, nil
}

// insertDeterministic sorts and globally deduplicates all successors
// produced at this level before insertion, so the sequence of insertions is
// reproducible given the same seed and worker count.
func (e *Explorer) insertDeterministic(results []expanded, stats *Stats) ([]*lts.State, error) {
	type candidate struct {
		enc   []byte
		state *lts.State
	}
	var all []candidate
	for _, r := range results {
		for _, t := range r.trans {
			stats.Transitions++
			all = append(all, candidate{enc: lts.Encode(t.Next), state: t.Next})
		}
	}
	sort.Slice(all, func(i, j int) bool { return statecodec.Compare(all[i].enc, all[j].enc) < 0 })

	var next []*lts.State
	var lastEnc []byte
	for _, c := range all {
		if lastEnc != nil && statecodec.Compare(lastEnc, c.enc) == 0 {
			continue
		}
		lastEnc = c.enc
		isNew, err := e.Store.Insert(c.enc)
		if err != nil {
			return nil, err
		}
		if isNew {
			stats.States++
			next = append(next, c.state)
		}
	}
	return next, nil
}
