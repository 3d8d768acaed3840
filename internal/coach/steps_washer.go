package coach

import (
	"context"
	"fmt"

	"github.com/ashureev/assembly-coach/internal/geometry"
	"github.com/ashureev/assembly-coach/internal/stability"
)

// washerStep waits for a washer to show up in the target hole of the frame.
// Parts 1 and 2 use the left hole of the pair in view, parts 3 and 4 the
// right one.
type washerStep struct {
	part    int
	target  string
	classes []string
	speech  string
	video   string

	hole *stability.Buffer
}

func newGreenWasherStep(part int, newBuffer bufferFactory) *washerStep {
	return &washerStep{
		part:    part,
		target:  classHoleGreen,
		classes: []string{classHoleEmpty, classHoleGreen},
		speech:  "Insert the green washer into the left hole.",
		video:   fmt.Sprintf("green_washer_%d.mp4", part),
		hole:    newBuffer(),
	}
}

func newGoldWasherStep(part int, newBuffer bufferFactory) *washerStep {
	return &washerStep{
		part:    part,
		target:  classHoleGold,
		classes: []string{classHoleEmpty, classHoleGreen, classHoleGold},
		speech:  "Great, now insert the gold washer into the green washer.",
		video:   fmt.Sprintf("gold_washer_%d.mp4", part),
		hole:    newBuffer(),
	}
}

func (s *washerStep) Introduction() Outcome {
	return Outcome{Speech: s.speech, Video: s.video}
}

func (s *washerStep) Reset() {
	s.hole.Clear()
}

func (s *washerStep) Verify(ctx context.Context, fc *frameContext) (Outcome, error) {
	holes, err := fc.query(ctx, s.classes...)
	if err != nil {
		return Outcome{}, err
	}
	if len(holes) != 2 {
		s.hole.StagedClear()
		return Outcome{}, nil
	}

	left, right := geometry.OrderPair(holes[0], holes[1], geometry.AxisX)
	hole := left
	if s.part > 2 {
		hole = right
	}
	if hole.ClassName != s.target {
		s.hole.StagedClear()
		return Outcome{}, nil
	}
	return Outcome{Advance: s.hole.AddAndCheckStable(hole)}, nil
}

// orientationStep places a single gear that the detector can see in a good
// or a bad orientation. Any bad sighting is corrected at once.
type orientationStep struct {
	good, bad  string
	speech     string
	video      string
	correction string

	gear *stability.Buffer
}

func newPinkGearFrontStep(newBuffer bufferFactory) *orientationStep {
	return &orientationStep{
		good:       classFrontGearGood,
		bad:        classFrontGearBad,
		speech:     "Lay the black frame down. Now place a pink gear as shown.",
		video:      "pink_gear_1.mp4",
		correction: "Please flip the pink gear around.",
		gear:       newBuffer(),
	}
}

func newBrownGearStep(newBuffer bufferFactory) *orientationStep {
	return &orientationStep{
		good:       classBrownGearGood,
		bad:        classBrownGearBad,
		speech:     "Place the brown gear as shown. Orient it such that the part that sticks out is facing in.",
		video:      "brown_gear.mp4",
		correction: "Make sure the gear is oriented correctly. The part that sticks out should be facing the inside of the frame.",
		gear:       newBuffer(),
	}
}

func newPinkGearBackStep(newBuffer bufferFactory) *orientationStep {
	return &orientationStep{
		good:       classBackPinkGearGood,
		bad:        classBackPinkGearBad,
		speech:     "Now, place the pink gear next to the brown gear as shown. The teeth should be facing out.",
		video:      "brown_gear.mp4",
		correction: "Make sure the gear is oriented correctly. The teeth should be facing out.",
		gear:       newBuffer(),
	}
}

func (s *orientationStep) Introduction() Outcome {
	return Outcome{Speech: s.speech, Video: s.video}
}

func (s *orientationStep) Reset() {
	s.gear.Clear()
}

func (s *orientationStep) Verify(ctx context.Context, fc *frameContext) (Outcome, error) {
	bad, err := fc.query(ctx, s.bad)
	if err != nil {
		return Outcome{}, err
	}
	if len(bad) > 0 {
		s.gear.Clear()
		return Outcome{Speech: s.correction, HoldUnits: correctionHoldUnits}, nil
	}

	good, err := fc.query(ctx, s.good)
	if err != nil {
		return Outcome{}, err
	}
	if len(good) != 1 {
		s.gear.StagedClear()
		return Outcome{}, nil
	}
	return Outcome{Advance: s.gear.AddAndCheckStable(good[0])}, nil
}
