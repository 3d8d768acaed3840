package coach

import (
	"context"
	"fmt"

	"github.com/ashureev/assembly-coach/internal/geometry"
	"github.com/ashureev/assembly-coach/internal/stability"
)

// axleIntoWheelStep has the user hold up an axle pushed through one wheel.
//
// The intro asks for the requested size, yet a stable wheel of that size is
// rejected and a stable wheel of the other size advances.
type axleIntoWheelStep struct {
	want, other string

	requested *stability.Buffer
	swapped   *stability.Buffer
}

func newAxleIntoWheelStep(part int, newBuffer bufferFactory) *axleIntoWheelStep {
	want, other := wheelSizes(part)
	return &axleIntoWheelStep{
		want:      want,
		other:     other,
		requested: newBuffer(),
		swapped:   newBuffer(),
	}
}

func (s *axleIntoWheelStep) Introduction() Outcome {
	return Outcome{
		Speech: fmt.Sprintf("Great! Please insert the axle into one of the %s wheels. Then hold it up like this.", s.want),
		Image:  fmt.Sprintf("wheel_in_axle_%s.jpg", s.want),
	}
}

func (s *axleIntoWheelStep) Reset() {
	clearAll(s.requested, s.swapped)
}

func (s *axleIntoWheelStep) Verify(ctx context.Context, fc *frameContext) (Outcome, error) {
	want, err := fc.query(ctx, "wheel_in_axle_"+s.want)
	if err != nil {
		return Outcome{}, err
	}
	other, err := fc.query(ctx, "wheel_in_axle_"+s.other)
	if err != nil {
		return Outcome{}, err
	}

	if len(want) != 1 && len(other) != 1 {
		stagedClearAll(s.requested, s.swapped)
		return Outcome{}, nil
	}

	var out Outcome
	if len(want) == 1 {
		if s.requested.AddAndCheckStable(want[0]) {
			out.Speech = fmt.Sprintf("You have the %s wheel. Please use the %s wheel instead", s.want, s.other)
			out.HoldUnits = correctionHoldUnits
			s.Reset()
		}
	} else {
		s.requested.StagedClear()
	}

	if len(other) == 1 {
		if s.swapped.AddAndCheckStable(other[0]) {
			out.Advance = true
		}
	} else {
		s.swapped.StagedClear()
	}
	return out, nil
}

// blackFrameStep waits for the chassis frame to be held up with both its
// side marker and its horn in view.
type blackFrameStep struct {
	marker *stability.Buffer
	horn   *stability.Buffer
}

func newBlackFrameStep(newBuffer bufferFactory) *blackFrameStep {
	return &blackFrameStep{marker: newBuffer(), horn: newBuffer()}
}

func (s *blackFrameStep) Introduction() Outcome {
	return Outcome{
		Speech: "Put the axle down and grab the black frame. Show it to me like this.",
		Video:  "get_frame.mp4",
	}
}

func (s *blackFrameStep) Reset() {
	clearAll(s.marker, s.horn)
}

func (s *blackFrameStep) Verify(ctx context.Context, fc *frameContext) (Outcome, error) {
	markers, err := fc.query(ctx, classFrameMarkerRight, classFrameMarkerLeft)
	if err != nil {
		return Outcome{}, err
	}
	horns, err := fc.query(ctx, classFrameHorn)
	if err != nil {
		return Outcome{}, err
	}

	if len(markers) != 1 && len(horns) != 1 {
		stagedClearAll(s.marker, s.horn)
		return Outcome{}, nil
	}

	markerStable := len(markers) == 1 && s.marker.AddAndCheckStable(markers[0])
	hornStable := len(horns) == 1 && s.horn.AddAndCheckStable(horns[0])
	if !markerStable || !hornStable {
		return Outcome{}, nil
	}

	side := geometry.Right
	if markers[0].ClassName == classFrameMarkerLeft {
		side = geometry.Left
	}
	if geometry.FrameFlipped(markers[0], horns[0], side) {
		s.Reset()
		return Outcome{Speech: "Please turn the frame around.", HoldUnits: correctionHoldUnits}, nil
	}
	return Outcome{Advance: true}, nil
}
