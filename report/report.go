// Package report - Named observation sinks for evaluation metrics.
package report

import (
	"math"
	"sync"
)

// Observation maps metric keys to values. NaN is a legal value and marks a
// metric that exists in name only, such as AP for a class with no ground
// truth.
type Observation map[string]float64

// Equal compares two observations key-for-key, treating NaN as equal to
// NaN so undefined metrics do not break comparisons.
func (o Observation) Equal(other Observation) bool {
	if len(o) != len(other) {
		return false
	}
	for k, v := range o {
		w, ok := other[k]
		if !ok {
			return false
		}
		if math.IsNaN(v) && math.IsNaN(w) {
			continue
		}
		if v != w {
			return false
		}
	}
	return true
}

// Clone returns a copy of the observation.
func (o Observation) Clone() Observation {
	out := make(Observation, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Reporter accumulates metric observations during an evaluation invocation.
// It holds a current observation mapping and a registry of named observers;
// values reported against a registered observer are stored under
// "<name>/<key>".
type Reporter struct {
	mu          sync.Mutex
	observers   map[interface{}]string
	observation Observation
}

// NewReporter returns an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{
		observers:   make(map[interface{}]string),
		observation: make(Observation),
	}
}

// AddObserver registers target under a name. Re-registering a target
// replaces its name.
func (r *Reporter) AddObserver(name string, target interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers[target] = name
}

// Report merges values into the current observation, prefixed by the name
// registered for target. Values for an unregistered or nil target are
// stored under their own keys.
func (r *Reporter) Report(values Observation, target interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := ""
	if name, ok := r.observers[target]; ok {
		prefix = name + "/"
	}
	for k, v := range values {
		r.observation[prefix+k] = v
	}
}

// Write merges values into the current observation under identical keys.
func (r *Reporter) Write(values Observation) {
	r.Report(values, nil)
}

// Observation returns the current observation mapping.
func (r *Reporter) Observation() Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observation
}

// Len returns the number of recorded metrics.
func (r *Reporter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observation)
}

// Reset discards the current observation, keeping registered observers.
func (r *Reporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observation = make(Observation)
}
