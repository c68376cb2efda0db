package evaluator

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-eval/dataset"
	"github.com/nvr-ai/go-eval/detection"
	"github.com/nvr-ai/go-eval/predictor"
)

// collect drives the iterator through the predictor once, pairing each
// example's detections with its ground truth in iteration order. A predictor
// that returns a different number of results than the batch holds violates
// its contract and aborts the run.
func collect(it dataset.Iterator, pred predictor.Predictor) ([]detection.Detections, []detection.GroundTruth, error) {
	var preds []detection.Detections
	var truths []detection.GroundTruth
	for {
		batch, err := it.Next()
		if errors.Is(err, dataset.Done) {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		out, err := pred.Predict(batch.Images)
		if err != nil {
			return nil, nil, errors.Wrap(err, "prediction failed")
		}
		if len(out) != batch.Len() {
			return nil, nil, errors.Errorf("predictor returned %d results for a batch of %d", len(out), batch.Len())
		}

		preds = append(preds, out...)
		truths = append(truths, batch.Truth...)
	}
	return preds, truths, nil
}
