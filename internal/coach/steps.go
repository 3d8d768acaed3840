// Package coach drives an assembly session: it sequences the steps, decides
// when a step has been introduced, and dispatches each frame to the policy of
// the current step.
package coach

import "fmt"

// StepID names a state in the session's step graph.
type StepID string

// Step identifiers, in table order.
const (
	StepStart               StepID = "start"
	StepLayoutWheelsRims1   StepID = "layout_wheels_rims_1"
	StepCombineWheelRim1    StepID = "combine_wheel_rim_1"
	StepLayoutWheelsRims2   StepID = "layout_wheels_rims_2"
	StepCombineWheelRim2    StepID = "combine_wheel_rim_2"
	StepAxleIntoWheel1      StepID = "axle_into_wheel_1"
	StepAcquireBlackFrame   StepID = "acquire_black_frame"
	StepInsertGreenWasher1  StepID = "insert_green_washer_1"
	StepInsertGoldWasher1   StepID = "insert_gold_washer_1"
	StepInsertPinkGearFront StepID = "insert_pink_gear_front"
	StepInsertAxle1         StepID = "insert_axle_1"
	StepInsertGreenWasher2  StepID = "insert_green_washer_2"
	StepInsertGoldWasher2   StepID = "insert_gold_washer_2"
	StepPressWheel1         StepID = "press_wheel_1"
	StepInsertGreenWasher3  StepID = "insert_green_washer_3"
	StepInsertGoldWasher3   StepID = "insert_gold_washer_3"
	StepInsertBrownGear     StepID = "insert_brown_gear"
	StepInsertPinkGearBack  StepID = "insert_pink_gear_back"
	StepInsertAxle2         StepID = "insert_axle_2"
	StepInsertGreenWasher4  StepID = "insert_green_washer_4"
	StepInsertGoldWasher4   StepID = "insert_gold_washer_4"
	StepPressWheel2         StepID = "press_wheel_2"
	StepAddGearAxle         StepID = "add_gear_axle"
	StepFinalCheck          StepID = "final_check"
	StepComplete            StepID = "complete"
	StepNothing             StepID = "nothing"
)

// Kind classifies how a step decides to advance.
type Kind string

const (
	// KindControl steps are run by the machine itself and never look at the
	// frame.
	KindControl Kind = "control"
	// KindVision steps advance once the detector confirms a stable layout.
	KindVision Kind = "vision"
	// KindVideo steps show a demonstration and advance on the next frame.
	KindVideo Kind = "video"
)

// ParseStepID validates s against the step table.
func ParseStepID(s string) (StepID, error) {
	id := StepID(s)
	if _, ok := lookup(id); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, s)
	}
	return id, nil
}

// Class labels emitted by the detector.
const (
	classThickWheelSide   = "thick_wheel_side"
	classThinWheelSide    = "thin_wheel_side"
	classThickRimSide     = "thick_rim_side"
	classThinRimSide      = "thin_rim_side"
	classFrameMarkerLeft  = "frame_marker_left"
	classFrameMarkerRight = "frame_marker_right"
	classFrameHorn        = "frame_horn"
	classHoleEmpty        = "hole_empty"
	classHoleGreen        = "hole_green"
	classHoleGold         = "hole_gold"
	classFrontGearBad     = "front_gear_bad"
	classFrontGearGood    = "front_gear_good"
	classBrownGearBad     = "brown_gear_bad"
	classBrownGearGood    = "brown_gear_good"
	classBackPinkGearBad  = "back_pink_gear_bad"
	classBackPinkGearGood = "back_pink_gear_good"
	classBackBrownGear    = "back_brown_gear_good"
	classGearOnAxle       = "gear_on_axle"
	classWheelAxle        = "wheel_axle"
)

// Wheel sizes, used to build class names like "wheel_in_axle_thin".
const (
	sizeThin  = "thin"
	sizeThick = "thick"
)

// wheelSizes returns the requested and the other wheel size for a part.
// The first half of the car uses thin wheels, the second thick.
func wheelSizes(part int) (want, other string) {
	if part == 1 {
		return sizeThin, sizeThick
	}
	return sizeThick, sizeThin
}
