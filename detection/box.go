// Package detection - Value types for detector outputs and ground truth.
package detection

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Box is a lightweight bounding box with float32 corners.
type Box struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 float32
}

func (b Box) String() string {
	return fmt.Sprintf("(%f, %f), (%f, %f)", b.X1, b.Y1, b.X2, b.Y2)
}

// Area returns the box area, zero for degenerate boxes.
func (b Box) Area() float32 {
	w := b.X2 - b.X1
	h := b.Y2 - b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU (Intersection over Union) measures the extent of overlap between two
// boxes: Area of Intersection / Area of Union. 1.0 means identical boxes,
// 0.0 means no overlap at all. Detections are scored as hits against ground
// truth when this value clears a threshold.
func IoU(b, o Box) float32 {
	// The intersection rectangle is bounded by the maximum of the starting
	// coordinates and the minimum of the ending coordinates.
	ix1 := math32.Max(b.X1, o.X1)
	iy1 := math32.Max(b.Y1, o.Y1)
	ix2 := math32.Min(b.X2, o.X2)
	iy2 := math32.Min(b.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0
	}
	interArea := interW * interH

	// Inclusion-exclusion: Union(A, B) = Area(A) + Area(B) - Intersection(A, B).
	unionArea := b.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0
	}
	return interArea / unionArea
}

// VOCIoU computes IoU under the PASCAL VOC convention where pixel
// coordinates are inclusive, so each box gains one pixel on its max corner
// before areas are taken. This is the overlap used for AP matching.
func VOCIoU(b, o Box) float32 {
	return IoU(b.vocInflate(), o.vocInflate())
}

func (b Box) vocInflate() Box {
	return Box{X1: b.X1, Y1: b.Y1, X2: b.X2 + 1, Y2: b.Y2 + 1}
}
