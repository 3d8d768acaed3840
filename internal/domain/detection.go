// Package domain contains core domain types for the assembly coach.
package domain

// BBox is an axis-aligned bounding box ordered as x1, y1, x2, y2.
type BBox [4]float64

// X1 returns the left edge.
func (b BBox) X1() float64 { return b[0] }

// Y1 returns the top edge.
func (b BBox) Y1() float64 { return b[1] }

// X2 returns the right edge.
func (b BBox) X2() float64 { return b[2] }

// Y2 returns the bottom edge.
func (b BBox) Y2() float64 { return b[3] }

// DetectedObject is a single detector result. Values are never mutated after
// the detector produces them.
type DetectedObject struct {
	ClassName  string  `json:"class_name"`
	Box        BBox    `json:"bbox"`
	FrameIndex int     `json:"frame"`
	Score      float64 `json:"score,omitempty"`
}

// Frame is one encoded camera image as received from a client.
type Frame struct {
	Data        []byte
	ContentType string
}

// FilterByClass returns the objects whose class is in classes, preserving
// detector order.
func FilterByClass(objects []DetectedObject, classes []string) []DetectedObject {
	want := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		want[c] = struct{}{}
	}

	var out []DetectedObject
	for _, obj := range objects {
		if _, ok := want[obj.ClassName]; ok {
			out = append(out, obj)
		}
	}
	return out
}
