// Package eval - VOC-style average precision over detection results.
package eval

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-eval/detection"
)

// DefaultIoUThreshold is the VOC challenge overlap for a true positive.
const DefaultIoUThreshold = 0.5

// Options control the AP computation.
type Options struct {
	// IoUThreshold is the minimum overlap for a detection to match ground
	// truth. Zero selects DefaultIoUThreshold.
	IoUThreshold float32
	// Use07Metric selects the 11-point interpolated AP of the 2007
	// challenge. The default integrates the full precision envelope.
	Use07Metric bool
}

// Result holds per-class AP and the summary mAP.
//
// AP for a class with no ground-truth instance anywhere in the dataset is
// undefined and reported as NaN, regardless of any spurious detections of
// that class. MAP averages the defined classes only; if every class is
// undefined, MAP is NaN.
type Result struct {
	AP  []float64
	MAP float64
}

// ClassCurve is the cumulative precision/recall curve for one class,
// ordered by descending detection score across the whole dataset.
type ClassCurve struct {
	Precision []float64
	// Recall is nil when the class has no ground-truth positives.
	Recall []float64
	// Positives counts non-difficult ground-truth boxes of the class.
	Positives int
}

// match flags for one scored detection.
const (
	matchFalse   int8 = 0
	matchTrue    int8 = 1
	matchIgnored int8 = -1 // matched a difficult box; neither TP nor FP
)

type classStats struct {
	scores []float32
	match  []int8
	npos   int
}

// Evaluate computes per-class AP and mAP over positionally paired
// predictions and ground truths.
func Evaluate(preds []detection.Detections, truths []detection.GroundTruth, opts Options) (*Result, error) {
	curves, err := PrecisionRecall(preds, truths, opts.IoUThreshold)
	if err != nil {
		return nil, err
	}

	result := &Result{AP: make([]float64, len(curves))}
	for l, curve := range curves {
		if v, ok := AveragePrecision(curve, opts.Use07Metric); ok {
			result.AP[l] = v
		} else {
			result.AP[l] = math.NaN()
		}
	}
	result.MAP = NaNMean(result.AP)
	return result, nil
}

// PrecisionRecall accumulates detections across the dataset and builds the
// cumulative precision/recall curve per class.
//
// Matching is greedy in descending score order within each example: a
// detection matches the ground-truth box of its class with the highest
// overlap, and counts as a true positive when that overlap clears the
// threshold and the box was not already consumed. Matches against difficult
// boxes are ignored entirely. The per-class curve orders detections by
// descending score over the whole dataset, ties broken by original
// (example, position) order so the curve is identical however the dataset
// was sharded.
func PrecisionRecall(preds []detection.Detections, truths []detection.GroundTruth, iouThreshold float32) ([]ClassCurve, error) {
	if len(preds) != len(truths) {
		return nil, errors.Errorf("%d predictions paired with %d ground truths", len(preds), len(truths))
	}
	if iouThreshold <= 0 {
		iouThreshold = DefaultIoUThreshold
	}

	stats := make(map[int]*classStats)
	classes := 0
	stat := func(l int) *classStats {
		s := stats[l]
		if s == nil {
			s = &classStats{}
			stats[l] = s
		}
		if l+1 > classes {
			classes = l + 1
		}
		return s
	}

	for i := range preds {
		gt := truths[i]
		if len(gt.Boxes) != len(gt.Labels) {
			return nil, errors.Errorf("example %d: %d ground-truth boxes for %d labels", i, len(gt.Boxes), len(gt.Labels))
		}
		if gt.Difficult != nil && len(gt.Difficult) != len(gt.Boxes) {
			return nil, errors.Errorf("example %d: %d difficult flags for %d boxes", i, len(gt.Difficult), len(gt.Boxes))
		}

		for j, l := range gt.Labels {
			if l < 0 {
				return nil, errors.Errorf("example %d: negative ground-truth label %d", i, l)
			}
			if !gt.IsDifficult(j) {
				stat(l).npos++
			}
		}

		for l, predL := range groupByLabel(preds[i]) {
			if l < 0 {
				return nil, errors.Errorf("example %d: negative predicted label %d", i, l)
			}
			s := stat(l)

			var gtIdx []int
			for j, gl := range gt.Labels {
				if gl == l {
					gtIdx = append(gtIdx, j)
				}
			}
			selected := make([]bool, len(gtIdx))

			for _, d := range predL {
				s.scores = append(s.scores, d.Score)

				best, bestIoU := -1, float32(0)
				for k, j := range gtIdx {
					iou := detection.VOCIoU(d.Box, gt.Boxes[j])
					if iou > bestIoU {
						bestIoU = iou
						best = k
					}
				}
				if best < 0 || bestIoU < iouThreshold {
					s.match = append(s.match, matchFalse)
					continue
				}

				j := gtIdx[best]
				switch {
				case gt.IsDifficult(j):
					s.match = append(s.match, matchIgnored)
				case selected[best]:
					s.match = append(s.match, matchFalse)
				default:
					s.match = append(s.match, matchTrue)
				}
				selected[best] = true
			}
		}
	}

	curves := make([]ClassCurve, classes)
	for l := 0; l < classes; l++ {
		if s := stats[l]; s != nil {
			curves[l] = s.curve()
		}
	}
	return curves, nil
}

// groupByLabel splits one example's detections per class, each group in
// descending score order with the original order preserved for ties.
func groupByLabel(dets detection.Detections) map[int]detection.Detections {
	grouped := make(map[int]detection.Detections)
	for _, d := range dets {
		grouped[d.Label] = append(grouped[d.Label], d)
	}
	for _, g := range grouped {
		sort.SliceStable(g, func(i, j int) bool { return g[i].Score > g[j].Score })
	}
	return grouped
}

// curve orders the accumulated detections by descending score and walks the
// cumulative TP/FP counts. Precision at a point where nothing has been
// counted yet (leading ignored matches) is NaN, mirroring 0/0.
func (s *classStats) curve() ClassCurve {
	order := make([]int, len(s.scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return s.scores[order[a]] > s.scores[order[b]] })

	c := ClassCurve{Positives: s.npos}
	tp, fp := 0, 0
	for _, k := range order {
		switch s.match[k] {
		case matchTrue:
			tp++
		case matchFalse:
			fp++
		}
		if tp+fp == 0 {
			c.Precision = append(c.Precision, math.NaN())
		} else {
			c.Precision = append(c.Precision, float64(tp)/float64(tp+fp))
		}
		if s.npos > 0 {
			c.Recall = append(c.Recall, float64(tp)/float64(s.npos))
		}
	}
	return c
}

// AveragePrecision integrates one class curve to a scalar. The second return
// is false when the class has no positives and AP is undefined.
func AveragePrecision(c ClassCurve, use07Metric bool) (float64, bool) {
	if c.Positives == 0 {
		return 0, false
	}
	if use07Metric {
		return elevenPointAP(c), true
	}
	return continuousAP(c), true
}

// continuousAP sums the precision envelope over every recall step.
func continuousAP(c ClassCurve) float64 {
	n := len(c.Precision)
	mpre := make([]float64, n+2)
	mrec := make([]float64, n+2)
	for i := 0; i < n; i++ {
		mpre[i+1] = nanToNum(c.Precision[i])
		mrec[i+1] = c.Recall[i]
	}
	mrec[n+1] = 1

	// Monotone non-increasing precision envelope, right to left.
	for i := n; i >= 0; i-- {
		mpre[i] = math.Max(mpre[i], mpre[i+1])
	}

	ap := 0.0
	for i := 0; i < n+1; i++ {
		if mrec[i+1] != mrec[i] {
			ap += (mrec[i+1] - mrec[i]) * mpre[i+1]
		}
	}
	return ap
}

// elevenPointAP averages the max precision at the eleven recall anchors of
// the 2007 challenge.
func elevenPointAP(c ClassCurve) float64 {
	ap := 0.0
	for k := 0; k <= 10; k++ {
		t := float64(k) / 10
		p := 0.0
		for i := range c.Recall {
			if c.Recall[i] >= t {
				if v := nanToNum(c.Precision[i]); v > p {
					p = v
				}
			}
		}
		ap += p / 11
	}
	return ap
}

// NaNMean averages the defined values; all-NaN input yields NaN.
func NaNMean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func nanToNum(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
