// Package predictor - Model prediction contracts for detection evaluation.
package predictor

import (
	"github.com/nvr-ai/go-eval/dataset"
	"github.com/nvr-ai/go-eval/detection"
)

// Predictor runs a detection model over a batch of images.
//
// Outputs are positionally aligned with the input: Predict returns exactly
// one Detections slice per image, in input order. Returning any other count
// is a contract violation the caller treats as fatal.
type Predictor interface {
	Predict(images []dataset.Image) ([]detection.Detections, error)
}
