// Package geometry holds the bounding-box primitives used by the stability
// buffers and step policies.
//
// Stability is judged on box size, not box position: Extent is the (w, h)
// vector of a box and ExtentDistance compares two of them.
package geometry

import (
	"math"

	"github.com/ashureev/assembly-coach/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// Relation is the outcome of CompareHeight.
type Relation string

const (
	Same   Relation = "same"
	First  Relation = "first"  // first box is taller
	Second Relation = "second" // second box is taller
)

// Axis selects the coordinate used by OrderPair.
type Axis int

const (
	AxisX Axis = iota // left/right, compares x1
	AxisY             // top/bottom, compares y1
)

// Extent returns the width and height of box.
func Extent(box domain.BBox) (w, h float64) {
	return box.X2() - box.X1(), box.Y2() - box.Y1()
}

// Height returns y2 - y1.
func Height(box domain.BBox) float64 {
	return box.Y2() - box.Y1()
}

// ExtentDistance is the Euclidean distance between the extents of a and b.
func ExtentDistance(a, b domain.BBox) float64 {
	aw, ah := Extent(a)
	bw, bh := Extent(b)
	return floats.Distance([]float64{aw, ah}, []float64{bw, bh}, 2)
}

// CompareHeight reports Same when the heights differ by less than threshold,
// otherwise which of the two boxes is taller.
func CompareHeight(a, b domain.BBox, threshold float64) Relation {
	ha, hb := Height(a), Height(b)
	if math.Abs(ha-hb) < threshold {
		return Same
	}
	if ha > hb {
		return First
	}
	return Second
}

// OrderPair returns the object with the lower coordinate on axis first. On a
// tie b is returned first.
func OrderPair(a, b domain.DetectedObject, axis Axis) (lower, higher domain.DetectedObject) {
	if coordinate(a.Box, axis) < coordinate(b.Box, axis) {
		return a, b
	}
	return b, a
}

func coordinate(box domain.BBox, axis Axis) float64 {
	if axis == AxisY {
		return box.Y1()
	}
	return box.X1()
}

// Side names one end of the chassis frame.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// FrameFlipped reports whether the frame is held back to front: the horn
// appears on the same side as the marker, whose printed side is markerSide.
func FrameFlipped(marker, horn domain.DetectedObject, markerSide Side) bool {
	lower, higher := OrderPair(marker, horn, AxisX)
	if markerSide == Left {
		return lower == horn
	}
	return higher == horn
}
