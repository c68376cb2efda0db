package evaluator

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-eval/comm"
	"github.com/nvr-ai/go-eval/dataset"
	"github.com/nvr-ai/go-eval/detection"
)

// localResult is one rank's contribution to the gather: the ordered
// prediction/ground-truth pairs of its shard.
type localResult struct {
	Preds  []detection.Detections
	Truths []detection.GroundTruth
}

// aggregate produces the globally ordered result set. In a single-process
// run it is a pass-through over the iterator. In a distributed run the root
// drains its iterator and broadcasts the dataset; every rank then predicts
// its contiguous shard and contributes it to a gather, which the root
// reassembles in ascending rank order so the concatenation matches
// single-process iteration exactly. Workers get a nil result back: their
// shard has been contributed and their evaluation path ends there.
func (e *Evaluator) aggregate() (*localResult, error) {
	if !comm.Distributed(e.Comm) {
		preds, truths, err := collect(e.Iterator, e.Target)
		if err != nil {
			return nil, err
		}
		return &localResult{Preds: preds, Truths: truths}, nil
	}

	rank, size := e.Comm.Rank(), e.Comm.Size()

	var full *dataset.SliceDataset
	if rank == 0 {
		var err error
		full, err = dataset.Drain(e.Iterator)
		if err != nil {
			return nil, err
		}
	}

	obj, err := e.Comm.Broadcast(full)
	if err != nil {
		return nil, errors.Wrap(err, "broadcast failed")
	}
	full, ok := obj.(*dataset.SliceDataset)
	if !ok {
		return nil, errors.Errorf("unexpected broadcast payload %T", obj)
	}

	// Contiguous disjoint shards: rank r owns [r*S, (r+1)*S) with
	// S = ceil(N/size), the last shard clamped to the tail.
	shardSize := (full.Len() + size - 1) / size
	shard := full.Slice(rank*shardSize, (rank+1)*shardSize)

	preds, truths, err := collect(shard.Iterator(e.BatchSize), e.Target)
	if err != nil {
		return nil, err
	}

	gathered, err := e.Comm.Gather(&localResult{Preds: preds, Truths: truths})
	if err != nil {
		return nil, errors.Wrap(err, "gather failed")
	}
	if rank != 0 {
		return nil, nil
	}

	merged := &localResult{}
	for r, g := range gathered {
		res, ok := g.(*localResult)
		if !ok {
			return nil, errors.Errorf("rank %d contributed unexpected payload %T", r, g)
		}
		merged.Preds = append(merged.Preds, res.Preds...)
		merged.Truths = append(merged.Truths, res.Truths...)
	}
	if len(merged.Preds) != full.Len() {
		return nil, errors.Errorf("gathered %d results for a dataset of %d examples", len(merged.Preds), full.Len())
	}
	return merged, nil
}
