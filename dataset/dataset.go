// Package dataset - Batch iteration over detection datasets.
package dataset

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-eval/detection"
)

// Image is one decoded example in CHW float32 layout.
type Image = *tensor.Dense

// Batch groups images with their positionally aligned ground truth.
type Batch struct {
	Images []Image
	Truth  []detection.GroundTruth
}

// Len returns the number of examples in the batch.
func (b *Batch) Len() int { return len(b.Images) }

// Done is returned by Iterator.Next once the sequence is exhausted.
var Done = errors.New("dataset: iterator exhausted")

// Iterator yields a finite sequence of batches in a fixed order. The
// sequence is consumed exactly once: no repetition, no reshuffling.
type Iterator interface {
	// Next returns the next batch, or Done when the sequence is exhausted.
	Next() (*Batch, error)
}

// SliceDataset is an in-memory ordered dataset of examples.
type SliceDataset struct {
	Images []Image
	Truth  []detection.GroundTruth
}

// Len returns the number of examples.
func (d *SliceDataset) Len() int { return len(d.Images) }

// Slice returns the contiguous sub-dataset [lo, hi). Bounds are clamped to
// the dataset length.
func (d *SliceDataset) Slice(lo, hi int) *SliceDataset {
	n := d.Len()
	lo = min(max(lo, 0), n)
	hi = min(max(hi, lo), n)
	return &SliceDataset{Images: d.Images[lo:hi], Truth: d.Truth[lo:hi]}
}

// Iterator returns a single-pass iterator over the dataset. A batchSize of
// zero or less yields the whole dataset as one batch.
func (d *SliceDataset) Iterator(batchSize int) *SliceIterator {
	if batchSize <= 0 {
		batchSize = d.Len()
	}
	return &SliceIterator{dataset: d, batchSize: batchSize}
}

// SliceIterator walks a SliceDataset in order, once.
type SliceIterator struct {
	dataset   *SliceDataset
	batchSize int
	pos       int
}

// Next returns the next batch, or Done when the dataset is exhausted.
func (it *SliceIterator) Next() (*Batch, error) {
	if it.pos >= it.dataset.Len() {
		return nil, Done
	}
	end := min(it.pos+it.batchSize, it.dataset.Len())
	batch := &Batch{
		Images: it.dataset.Images[it.pos:end],
		Truth:  it.dataset.Truth[it.pos:end],
	}
	it.pos = end
	return batch, nil
}

// Drain consumes an iterator to completion and collects the examples into a
// single in-memory dataset, preserving order.
func Drain(it Iterator) (*SliceDataset, error) {
	out := &SliceDataset{}
	for {
		batch, err := it.Next()
		if errors.Is(err, Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out.Images = append(out.Images, batch.Images...)
		out.Truth = append(out.Truth, batch.Truth...)
	}
}
