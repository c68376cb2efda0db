package detection

import "fmt"

// Detection represents a single detection result.
type Detection struct {
	// The bounding box of the result.
	Box Box
	// The predicted class index of the result.
	Label int
	// The confidence score of the result.
	Score float32
}

func (d Detection) String() string {
	return fmt.Sprintf("Object %d (confidence %f): %s", d.Label, d.Score, d.Box)
}

// Detections are the ordered model outputs for a single example.
type Detections []Detection

// GroundTruth is the annotated truth for a single example.
type GroundTruth struct {
	Boxes  []Box
	Labels []int
	// Difficult marks boxes that are matchable but excluded from the class
	// positive count. Nil means no box is difficult.
	Difficult []bool
}

// IsDifficult reports whether ground-truth box i carries the difficult flag.
func (g GroundTruth) IsDifficult(i int) bool {
	return g.Difficult != nil && g.Difficult[i]
}
