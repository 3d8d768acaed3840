package geometry

import (
	"testing"

	"github.com/ashureev/assembly-coach/internal/domain"
	"github.com/stretchr/testify/assert"
)

func box(x1, y1, x2, y2 float64) domain.BBox {
	return domain.BBox{x1, y1, x2, y2}
}

func TestExtentIsSizeNotPosition(t *testing.T) {
	t.Parallel()

	w, h := Extent(box(100, 200, 130, 250))
	assert.InDelta(t, 30, w, 1e-9)
	assert.InDelta(t, 50, h, 1e-9)

	// Same size at a different position has zero distance.
	assert.InDelta(t, 0, ExtentDistance(box(0, 0, 30, 50), box(400, 300, 430, 350)), 1e-9)
}

func TestHeight(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 110, Height(box(0, 0, 0, 110)), 1e-9)
}

func TestExtentDistance(t *testing.T) {
	t.Parallel()

	// Extents (3,4) vs (0,0).
	assert.InDelta(t, 5, ExtentDistance(box(0, 0, 3, 4), box(10, 10, 10, 10)), 1e-9)
	assert.InDelta(t, ExtentDistance(box(0, 0, 12, 7), box(0, 0, 1, 2)),
		ExtentDistance(box(0, 0, 1, 2), box(0, 0, 12, 7)), 1e-9)
}

func TestCompareHeight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		a, b      domain.BBox
		threshold float64
		want      Relation
	}{
		{"within threshold", box(0, 0, 0, 100), box(0, 0, 0, 110), 15, Same},
		{"second taller", box(0, 0, 0, 100), box(0, 0, 0, 130), 15, Second},
		{"first taller", box(0, 0, 0, 130), box(0, 0, 0, 100), 15, First},
		{"exactly threshold is not same", box(0, 0, 0, 100), box(0, 0, 0, 115), 15, Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareHeight(tt.a, tt.b, tt.threshold))
		})
	}
}

func TestCompareHeightSymmetry(t *testing.T) {
	t.Parallel()

	heights := []float64{0, 5, 14, 15, 16, 40, 100}
	for _, ha := range heights {
		for _, hb := range heights {
			a, b := box(0, 0, 1, ha), box(0, 0, 1, hb)
			ab := CompareHeight(a, b, 15)
			ba := CompareHeight(b, a, 15)
			if ab == Same {
				assert.Equal(t, Same, ba, "heights %v/%v", ha, hb)
				continue
			}
			assert.ElementsMatch(t, []Relation{First, Second}, []Relation{ab, ba}, "heights %v/%v", ha, hb)
		}
	}
}

func TestOrderPair(t *testing.T) {
	t.Parallel()

	left := domain.DetectedObject{ClassName: "left", Box: box(10, 90, 20, 100)}
	right := domain.DetectedObject{ClassName: "right", Box: box(50, 5, 60, 15)}

	t.Run("by x", func(t *testing.T) {
		lo, hi := OrderPair(right, left, AxisX)
		assert.Equal(t, "left", lo.ClassName)
		assert.Equal(t, "right", hi.ClassName)
	})

	t.Run("by y", func(t *testing.T) {
		lo, hi := OrderPair(left, right, AxisY)
		assert.Equal(t, "right", lo.ClassName)
		assert.Equal(t, "left", hi.ClassName)
	})

	t.Run("tie returns second argument first", func(t *testing.T) {
		a := domain.DetectedObject{ClassName: "a", Box: box(10, 0, 20, 10)}
		b := domain.DetectedObject{ClassName: "b", Box: box(10, 50, 20, 60)}
		lo, hi := OrderPair(a, b, AxisX)
		assert.Equal(t, "b", lo.ClassName)
		assert.Equal(t, "a", hi.ClassName)
	})
}

func TestFrameFlipped(t *testing.T) {
	t.Parallel()

	marker := func(x float64) domain.DetectedObject {
		return domain.DetectedObject{ClassName: "frame_marker", Box: box(x, 0, x+10, 10)}
	}
	horn := func(x float64) domain.DetectedObject {
		return domain.DetectedObject{ClassName: "frame_horn", Box: box(x, 0, x+10, 10)}
	}

	tests := []struct {
		name    string
		marker  domain.DetectedObject
		horn    domain.DetectedObject
		side    Side
		flipped bool
	}{
		{"left marker horn right", marker(0), horn(100), Left, false},
		{"left marker horn left", marker(100), horn(0), Left, true},
		{"right marker horn left", marker(100), horn(0), Right, false},
		{"right marker horn right", marker(0), horn(100), Right, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.flipped, FrameFlipped(tt.marker, tt.horn, tt.side))
		})
	}
}
