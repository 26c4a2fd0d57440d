package sim

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/csim/sim/trace"
)

// EventSource yields trace events in order. Read returns io.EOF after the
// last event; trace.Reader implements it.
type EventSource interface {
	Read() (trace.Event, error)
}

// EventObserver is notified once per data event with the results of the
// accesses the event expanded to (one for loads and stores, two for modifies).
// The results slice is owned by the observer after the call.
type EventObserver interface {
	ObserveEvent(seq int, ev trace.Event, results []AccessResult)
}

// Runner replays a trace against a Cache.
type Runner struct {
	cache     *Cache
	observers []EventObserver
	summary   trace.TraceSummary
}

// NewRunner returns a Runner driving cache and notifying observers in order.
func NewRunner(cache *Cache, observers ...EventObserver) *Runner {
	return &Runner{cache: cache, observers: observers}
}

// Run consumes src to the end. Instruction fetches are counted in the trace
// summary but never reach the cache. A modify is a load followed by a store
// to the same address, i.e. two accesses.
//
// If src fails, Run returns the error and zero counters: a run either
// processes the whole trace or reports nothing.
func (r *Runner) Run(src EventSource) (Counters, error) {
	r.summary = trace.TraceSummary{}
	seq := 0
	for {
		ev, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Counters{}, err
		}

		r.summary.Add(ev)
		if !ev.IsData() {
			continue
		}

		n := ev.Kind.Accesses()
		results := make([]AccessResult, 0, n)
		for i := 0; i < n; i++ {
			results = append(results, r.cache.Access(ev.Address))
		}
		for _, o := range r.observers {
			o.ObserveEvent(seq, ev, results)
		}
		seq++
	}

	logrus.Infof("Replayed %d events (%d loads, %d stores, %d modifies, %d instruction fetches skipped)",
		r.summary.TotalEvents, r.summary.Loads, r.summary.Stores, r.summary.Modifies, r.summary.Instructions)
	return r.cache.Counters(), nil
}

// Summary returns per-kind statistics of the last Run.
func (r *Runner) Summary() trace.TraceSummary {
	return r.summary
}

// Simulate builds a fresh cache of geometry g and replays src against it.
func Simulate(g Geometry, src EventSource, observers ...EventObserver) (Counters, error) {
	cache, err := NewCache(g)
	if err != nil {
		return Counters{}, err
	}
	return NewRunner(cache, observers...).Run(src)
}
