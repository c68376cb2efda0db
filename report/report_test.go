package report

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObservationEqual(t *testing.T) {
	a := Observation{"main/map": 0.5, "main/ap/cls0": math.NaN()}
	b := Observation{"main/map": 0.5, "main/ap/cls0": math.NaN()}
	assert.True(t, a.Equal(b))

	b["main/map"] = 0.6
	assert.False(t, a.Equal(b))

	assert.False(t, a.Equal(Observation{"main/map": 0.5}))
	assert.False(t, a.Equal(Observation{"main/map": 0.5, "main/ap/cls1": math.NaN()}))
	assert.True(t, Observation{}.Equal(Observation{}))
}

func TestReporterObserverPrefix(t *testing.T) {
	type model struct{ name string }
	target := &model{name: "detector"}

	r := NewReporter()
	r.AddObserver("target", target)
	r.Report(Observation{"map": 1.0}, target)
	r.Report(Observation{"loss": 0.1}, nil)

	obs := r.Observation()
	assert.True(t, obs.Equal(Observation{"target/map": 1.0, "loss": 0.1}))
}

func TestReporterWrite(t *testing.T) {
	r := NewReporter()
	values := Observation{"main/map": 0.25, "main/ap/cls0": math.NaN()}
	r.Write(values)

	assert.True(t, r.Observation().Equal(values))
	assert.Equal(t, 2, r.Len())
}

func TestReporterReset(t *testing.T) {
	r := NewReporter()
	r.AddObserver("m", "t")
	r.Write(Observation{"x": 1})
	r.Reset()

	assert.Equal(t, 0, r.Len())
	r.Report(Observation{"y": 2}, "t")
	assert.True(t, r.Observation().Equal(Observation{"m/y": 2}))
}

func TestObservationClone(t *testing.T) {
	a := Observation{"k": 1}
	b := a.Clone()
	b["k"] = 2
	assert.Equal(t, 1.0, a["k"])
}
