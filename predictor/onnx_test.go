package predictor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-eval/detection"
)

func TestPostprocess(t *testing.T) {
	p := &ONNXPredictor{config: ONNXConfig{
		NumClasses:          2,
		Candidates:          3,
		ConfidenceThreshold: 0.5,
		NMSThreshold:        0.7,
	}}

	// Three candidate rows: [cx, cy, w, h, objectness, cls0, cls1].
	raw := []float32{
		100, 100, 40, 40, 0.9, 0.1, 0.95, // strong cls1 hit
		300, 300, 20, 20, 0.3, 0.9, 0.1, // below objectness threshold
		200, 200, 40, 40, 0.8, 0.2, 0.4, // objectness ok, weak class score
	}

	dets := p.postprocess(raw)
	require.Len(t, dets, 1)
	assert.Equal(t, 1, dets[0].Label)
	assert.InDelta(t, 0.9*0.95, float64(dets[0].Score), 1e-5)
	assert.Equal(t, detection.Box{X1: 80, Y1: 80, X2: 120, Y2: 120}, dets[0].Box)
}

func TestApplyNMS(t *testing.T) {
	dets := detection.Detections{
		{Box: detection.Box{0, 0, 100, 100}, Label: 0, Score: 0.8},
		{Box: detection.Box{5, 5, 105, 105}, Label: 0, Score: 0.9},
		{Box: detection.Box{5, 5, 105, 105}, Label: 1, Score: 0.7},
		{Box: detection.Box{300, 300, 400, 400}, Label: 0, Score: 0.6},
	}

	kept := applyNMS(dets, 0.5)
	require.Len(t, kept, 3)
	// Highest score first, heavy same-class overlap suppressed, other class
	// and distant boxes survive.
	assert.Equal(t, float32(0.9), kept[0].Score)
	assert.Equal(t, 1, kept[1].Label)
	assert.Equal(t, float32(0.6), kept[2].Score)
}

func TestApplyNMSEmpty(t *testing.T) {
	assert.Empty(t, applyNMS(nil, 0.5))
}
