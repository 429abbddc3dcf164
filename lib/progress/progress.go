// Package progress aggregates per-subtask processed/total counters into a
// single overall fraction (spec component G). It models the math only —
// reporting plumbing (a CLI bar, a GUI widget) is an external collaborator's
// concern, not this package's.
package progress

import (
	"sync"

	"github.com/dustin/go-humanize"
)

// Token is one subtask's progress, published as processing advances.
// Total of 0 means the subtask's size isn't known yet.
type Token struct {
	Processed int64
	Total     int64
}

// Aggregator sums every published Token into a single fraction. Safe for
// concurrent use: multiple subtasks publish tokens from their own
// goroutines, readers call Fraction/String at any time.
type Aggregator struct {
	mu        sync.Mutex
	tokens    map[int]Token
	next      int
	completed bool
	onDone    []func()
}

// NewAggregator returns an empty Aggregator with no subtasks yet.
func NewAggregator() *Aggregator {
	return &Aggregator{tokens: make(map[int]Token)}
}

// Track registers a new subtask and returns a Publish func the subtask
// calls with its own running Token as work proceeds. Publishing a Token
// whose Processed == Total for every tracked subtask fires OnCompleted
// callbacks exactly once.
func (a *Aggregator) Track() func(Token) {
	a.mu.Lock()
	id := a.next
	a.next++
	a.tokens[id] = Token{}
	a.mu.Unlock()

	return func(t Token) {
		a.mu.Lock()
		a.tokens[id] = t
		done := a.allDone()
		fire := done && !a.completed
		if fire {
			a.completed = true
		}
		callbacks := append([]func(){}, a.onDone...)
		a.mu.Unlock()

		if fire {
			for _, cb := range callbacks {
				cb()
			}
		}
	}
}

// allDone reports whether every tracked subtask has a known, fully
// processed total. Caller must hold a.mu.
func (a *Aggregator) allDone() bool {
	if len(a.tokens) == 0 {
		return false
	}
	for _, t := range a.tokens {
		if t.Total == 0 || t.Processed < t.Total {
			return false
		}
	}
	return true
}

// Processed returns the sum of every subtask's Processed counter.
func (a *Aggregator) Processed() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var sum int64
	for _, t := range a.tokens {
		sum += t.Processed
	}
	return sum
}

// Total returns the sum of every subtask's Total counter.
func (a *Aggregator) Total() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var sum int64
	for _, t := range a.tokens {
		sum += t.Total
	}
	return sum
}

// Fraction returns sum(processed)/sum(total) in [0,1]. It is only
// meaningful when IsIndeterminate is false.
func (a *Aggregator) Fraction() float64 {
	total := a.Total()
	if total == 0 {
		return 0
	}
	return float64(a.Processed()) / float64(total)
}

// IsIndeterminate reports whether no subtask has published a known total
// yet, so Fraction can't be trusted as a real progress estimate.
func (a *Aggregator) IsIndeterminate() bool {
	return a.Total() == 0
}

// OnCompleted registers cb to run once, the first time every tracked
// subtask reports Processed == Total. Registering after completion already
// happened runs cb immediately.
func (a *Aggregator) OnCompleted(cb func()) {
	a.mu.Lock()
	if a.completed {
		a.mu.Unlock()
		cb()
		return
	}
	a.onDone = append(a.onDone, cb)
	a.mu.Unlock()
}

// String renders "processed/total" using human-readable byte counts, for
// log lines (e.g. logging.Logger.WithField("progress", agg.String())).
func (a *Aggregator) String() string {
	if a.IsIndeterminate() {
		return humanize.Bytes(uint64(a.Processed())) + "/?"
	}
	return humanize.Bytes(uint64(a.Processed())) + "/" + humanize.Bytes(uint64(a.Total()))
}
