package coach

import (
	"context"
	"fmt"

	"github.com/ashureev/assembly-coach/internal/domain"
	"github.com/ashureev/assembly-coach/internal/geometry"
	"github.com/ashureev/assembly-coach/internal/stability"
)

// axleStep pushes the wheel axle through the frame with a wheel of the right
// size on it.
type axleStep struct {
	part        int
	want, other string

	wrongWheel *stability.Buffer
	rightWheel *stability.Buffer
	axle       *stability.Buffer
}

func newAxleStep(part int, newBuffer bufferFactory) *axleStep {
	want, other := wheelSizes(part)
	return &axleStep{
		part:       part,
		want:       want,
		other:      other,
		wrongWheel: newBuffer(),
		rightWheel: newBuffer(),
		axle:       newBuffer(),
	}
}

func (s *axleStep) Introduction() Outcome {
	return Outcome{
		Speech: "Great, now insert the axle through the washers and the pink gear.",
		Video:  fmt.Sprintf("axle_into_frame_%d.mp4", s.part),
	}
}

func (s *axleStep) Reset() {
	clearAll(s.wrongWheel, s.rightWheel, s.axle)
}

func (s *axleStep) Verify(ctx context.Context, fc *frameContext) (Outcome, error) {
	axles, err := fc.query(ctx, classWheelAxle)
	if err != nil {
		return Outcome{}, err
	}
	right, err := fc.query(ctx, "wheel_in_axle_"+s.want)
	if err != nil {
		return Outcome{}, err
	}
	wrong, err := fc.query(ctx, "wheel_in_axle_"+s.other)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	if len(wrong) == 1 {
		if s.wrongWheel.AddAndCheckStable(wrong[0]) {
			out.Speech = fmt.Sprintf("You have the %s wheel. Please use the %s wheel instead.", s.other, s.want)
			out.HoldUnits = correctionHoldUnits
			s.Reset()
		}
	} else {
		s.stagedClear()
	}

	if len(right) == 1 && len(axles) == 1 {
		wheelStable := s.rightWheel.AddAndCheckStable(right[0])
		axleStable := s.axle.AddAndCheckStable(axles[0])
		out.Advance = wheelStable && axleStable
	} else {
		s.stagedClear()
	}
	return out, nil
}

func (s *axleStep) stagedClear() {
	stagedClearAll(s.wrongWheel, s.rightWheel, s.axle)
}

// pressWheelStep waits for two wheels of the same size on the axle.
type pressWheelStep struct {
	part int
	size string

	first  *stability.Buffer
	second *stability.Buffer
}

func newPressWheelStep(part int, newBuffer bufferFactory) *pressWheelStep {
	size, _ := wheelSizes(part)
	return &pressWheelStep{part: part, size: size, first: newBuffer(), second: newBuffer()}
}

func (s *pressWheelStep) Introduction() Outcome {
	return Outcome{
		Speech: fmt.Sprintf("Finally, press the other %s wheel into the axle. It should be the same size as the first wheel.", s.size),
		Video:  fmt.Sprintf("press_wheel_%d.mp4", s.part),
	}
}

func (s *pressWheelStep) Reset() {
	clearAll(s.first, s.second)
}

func (s *pressWheelStep) Verify(ctx context.Context, fc *frameContext) (Outcome, error) {
	wheels, err := fc.query(ctx, s.size+"_wheel_side")
	if err != nil {
		return Outcome{}, err
	}
	if len(wheels) != 2 {
		s.first.StagedClear()
		return Outcome{}, nil
	}
	advance := s.first.AddAndCheckStable(wheels[0]) && s.second.AddAndCheckStable(wheels[1])
	return Outcome{Advance: advance}, nil
}

// gearAxleStep joins the front and back gear trains with the gear axle.
type gearAxleStep struct {
	left  *stability.Buffer
	right *stability.Buffer
}

func newGearAxleStep(newBuffer bufferFactory) *gearAxleStep {
	return &gearAxleStep{left: newBuffer(), right: newBuffer()}
}

func (s *gearAxleStep) Introduction() Outcome {
	return Outcome{
		Speech: "Finally, find the gear axle. Use it to connect the two gear systems together.",
		Video:  "add_gear_axle.mp4",
	}
}

func (s *gearAxleStep) Reset() {
	clearAll(s.left, s.right)
}

func (s *gearAxleStep) Verify(ctx context.Context, fc *frameContext) (Outcome, error) {
	var found [4][]domain.DetectedObject
	for i, class := range []string{classGearOnAxle, classFrontGearGood, classBackPinkGearGood, classBackBrownGear} {
		objs, err := fc.query(ctx, class)
		if err != nil {
			return Outcome{}, err
		}
		found[i] = objs
	}
	axleEnds, front, backPink, backBrown := found[0], found[1], found[2], found[3]

	if len(axleEnds) != 2 || len(front) != 1 || len(backPink) != 1 || len(backBrown) != 1 {
		stagedClearAll(s.left, s.right)
		return Outcome{}, nil
	}

	l, r := geometry.OrderPair(axleEnds[0], axleEnds[1], geometry.AxisX)
	if !s.left.AddAndCheckStable(l) || !s.right.AddAndCheckStable(r) {
		return Outcome{}, nil
	}

	// TODO: check the gears against the axle ends once the rig's alignment
	// tolerance has been measured. Until then a stable axle advances.
	return Outcome{Advance: true}, nil
}

// finalCheckStep wants both finished wheel assemblies held one above the
// other at a matching size.
type finalCheckStep struct {
	compareThreshold float64

	top    *stability.Buffer
	bottom *stability.Buffer
}

func newFinalCheckStep(compareThreshold float64, newBuffer bufferFactory) *finalCheckStep {
	return &finalCheckStep{compareThreshold: compareThreshold, top: newBuffer(), bottom: newBuffer()}
}

func (s *finalCheckStep) Introduction() Outcome {
	return Outcome{Speech: "Please show me what you have, like this.", Image: "final_check.jpg"}
}

func (s *finalCheckStep) Reset() {
	clearAll(s.top, s.bottom)
}

func (s *finalCheckStep) Verify(ctx context.Context, fc *frameContext) (Outcome, error) {
	wheels, err := fc.query(ctx, classThinWheelSide, classThickWheelSide)
	if err != nil {
		return Outcome{}, err
	}
	if len(wheels) != 2 {
		stagedClearAll(s.top, s.bottom)
		return Outcome{}, nil
	}

	top, bottom := geometry.OrderPair(wheels[0], wheels[1], geometry.AxisY)
	topStable := s.top.AddAndCheckStable(top)
	bottomStable := s.bottom.AddAndCheckStable(bottom)
	if !topStable || !bottomStable {
		return Outcome{}, nil
	}

	topBox, _ := s.top.AveragedBBox()
	bottomBox, _ := s.bottom.AveragedBBox()
	return Outcome{Advance: geometry.CompareHeight(topBox, bottomBox, s.compareThreshold) == geometry.Same}, nil
}
